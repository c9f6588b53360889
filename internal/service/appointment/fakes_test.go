package appointment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/schedule"
)

// memoryAppointments enforces the (doctor, day, slot) unique index the way
// the appointments table does.
type memoryAppointments struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]model.Appointment
	slots  map[string]uuid.UUID
	events []*model.OutboxEvent
}

func newMemoryAppointments() *memoryAppointments {
	return &memoryAppointments{
		byID:  map[uuid.UUID]model.Appointment{},
		slots: map[string]uuid.UUID{},
	}
}

func slotKey(doctorID uuid.UUID, day time.Time, slot string) string {
	return doctorID.String() + "|" + schedule.FormatDate(day) + "|" + slot
}

func (m *memoryAppointments) Create(ctx context.Context, apt *model.Appointment, evt *model.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := slotKey(apt.DoctorID, apt.Date, apt.TimeSlot)
	if _, taken := m.slots[key]; taken {
		return repository.ErrDuplicate
	}
	m.slots[key] = apt.ID
	m.byID[apt.ID] = *apt
	m.events = append(m.events, evt)
	return nil
}

func (m *memoryAppointments) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	apt, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &apt, nil
}

func (m *memoryAppointments) UpdateStatus(ctx context.Context, apt *model.Appointment, evt *model.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.byID[apt.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Status = apt.Status
	m.byID[apt.ID] = stored
	m.events = append(m.events, evt)
	return nil
}

func (m *memoryAppointments) Reschedule(ctx context.Context, apt *model.Appointment, evt *model.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.byID[apt.ID]
	if !ok {
		return repository.ErrNotFound
	}
	key := slotKey(apt.DoctorID, apt.Date, apt.TimeSlot)
	if holder, taken := m.slots[key]; taken && holder != apt.ID {
		return repository.ErrDuplicate
	}
	delete(m.slots, slotKey(stored.DoctorID, stored.Date, stored.TimeSlot))
	m.slots[key] = apt.ID

	stored.Date, stored.TimeSlot, stored.Status = apt.Date, apt.TimeSlot, apt.Status
	m.byID[apt.ID] = stored
	m.events = append(m.events, evt)
	return nil
}

func (m *memoryAppointments) Delete(ctx context.Context, id uuid.UUID, evt *model.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(m.slots, slotKey(stored.DoctorID, stored.Date, stored.TimeSlot))
	delete(m.byID, id)
	m.events = append(m.events, evt)
	return nil
}

func (m *memoryAppointments) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*model.Appointment{}
	for _, apt := range m.byID {
		if filters.DoctorID != uuid.Nil && apt.DoctorID != filters.DoctorID {
			continue
		}
		if filters.PatientID != uuid.Nil && apt.PatientID != filters.PatientID {
			continue
		}
		apt := apt
		out = append(out, &apt)
	}
	return out, nil
}

func (m *memoryAppointments) ListSummaries(ctx context.Context, doctorID uuid.UUID) ([]*model.AppointmentSummary, error) {
	apts, _ := m.List(ctx, &model.AppointmentFilters{DoctorID: doctorID})
	out := make([]*model.AppointmentSummary, 0, len(apts))
	for _, a := range apts {
		out = append(out, &model.AppointmentSummary{
			ID: a.ID, PatientName: a.PatientName, Date: a.Date, TimeSlot: a.TimeSlot, Status: a.Status,
		})
	}
	return out, nil
}

func (m *memoryAppointments) BookedSlots(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start, end := schedule.DayBounds(day)
	out := []string{}
	for _, apt := range m.byID {
		if apt.DoctorID == doctorID && !apt.Date.Before(start) && apt.Date.Before(end) {
			out = append(out, apt.TimeSlot)
		}
	}
	return out, nil
}

func (m *memoryAppointments) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	types := make([]string, 0, len(m.events))
	for _, e := range m.events {
		types = append(types, e.EventType)
	}
	return types
}

type memoryDoctors struct {
	byID map[uuid.UUID]*model.Doctor
}

func (m *memoryDoctors) Create(ctx context.Context, d *model.Doctor) error {
	m.byID[d.ID] = d
	return nil
}

func (m *memoryDoctors) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	d, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return d, nil
}

func (m *memoryDoctors) GetByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	for _, d := range m.byID {
		if d.Email == email {
			return d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryDoctors) Update(ctx context.Context, d *model.Doctor) error {
	m.byID[d.ID] = d
	return nil
}

func (m *memoryDoctors) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.byID, id)
	return nil
}

func (m *memoryDoctors) List(ctx context.Context) ([]*model.Doctor, error) {
	out := []*model.Doctor{}
	for _, d := range m.byID {
		out = append(out, d)
	}
	return out, nil
}

func (m *memoryAppointments) lastEvent() *model.OutboxEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return nil
	}
	return m.events[len(m.events)-1]
}
