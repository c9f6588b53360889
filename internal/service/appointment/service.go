package appointment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/schedule"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/event"
)

const msgSlotTaken = "this time slot is already booked"

type Service struct {
	repo    repository.AppointmentRepository
	doctors repository.DoctorRepository
	now     func() time.Time
}

func NewService(repo repository.AppointmentRepository, doctors repository.DoctorRepository) *Service {
	return &Service{
		repo:    repo,
		doctors: doctors,
		now:     time.Now,
	}
}

// Create books a slot for the calling patient. The patient details in req are
// stored as given and never re-read from the patient's profile.
func (s *Service) Create(ctx context.Context, p *model.Principal, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	if missingField(req) {
		return nil, apperrors.BadRequest("missing required fields for appointment", nil)
	}

	doctor, err := s.requireDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		return nil, apperrors.BadRequest("invalid appointment date", err)
	}
	if !schedule.IsValid(req.TimeSlot) {
		return nil, apperrors.BadRequest("invalid time slot", nil)
	}

	now := s.now().UTC()
	apt := &model.Appointment{
		Base:          model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		DoctorID:      doctor.ID,
		PatientID:     p.ID,
		Date:          date,
		TimeSlot:      req.TimeSlot,
		Status:        model.AppointmentStatusPending,
		PatientName:   strings.TrimSpace(req.PatientName),
		PatientEmail:  strings.TrimSpace(req.PatientEmail),
		PatientPhone:  strings.TrimSpace(req.PatientPhone),
		HealthConcern: strings.TrimSpace(req.HealthConcern),

		DoctorName:      doctor.Name,
		DoctorSpecialty: doctor.Specialty,
	}

	evt, err := event.ForAppointment(model.EventAppointmentCreated, apt)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if err := s.repo.Create(ctx, apt, evt); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict(msgSlotTaken, err)
		}
		return nil, apperrors.Internal(err)
	}
	return apt, nil
}

// Get returns the appointment to its patient, its doctor or an admin.
func (s *Service) Get(ctx context.Context, p *model.Principal, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && !p.Is(model.RolePatient, apt.PatientID) && !p.Is(model.RoleDoctor, apt.DoctorID) {
		return nil, apperrors.Forbidden("not authorized to view this appointment")
	}
	return apt, nil
}

// Cancel deletes the appointment. Only its patient or an admin may cancel.
func (s *Service) Cancel(ctx context.Context, p *model.Principal, id uuid.UUID) error {
	apt, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !p.IsAdmin() && !p.Is(model.RolePatient, apt.PatientID) {
		return apperrors.Unauthorized("not authorized to cancel this appointment")
	}

	apt.UpdatedAt = s.now().UTC()
	evt, err := event.ForAppointment(model.EventAppointmentCancelled, apt)
	if err != nil {
		return apperrors.Internal(err)
	}
	if err := s.repo.Delete(ctx, apt.ID, evt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("appointment", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}

// UpdateStatus lets the assigned doctor approve or reject.
func (s *Service) UpdateStatus(ctx context.Context, p *model.Principal, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error) {
	if !status.IsDecision() {
		return nil, apperrors.BadRequest("invalid status value", nil)
	}

	apt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Is(model.RoleDoctor, apt.DoctorID) {
		return nil, apperrors.Forbidden("not authorized to update this appointment")
	}

	apt.Status = status
	apt.UpdatedAt = s.now().UTC()
	evt, err := event.ForAppointment(model.EventAppointmentStatusUpdated, apt)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := s.repo.UpdateStatus(ctx, apt, evt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(err)
	}
	return apt, nil
}

// Reschedule moves the appointment to another day or slot and marks it
// Rescheduled. The target slot is claimed the same way Create claims one, so
// a slot held by another appointment is a Conflict.
func (s *Service) Reschedule(ctx context.Context, p *model.Principal, id uuid.UUID, req *model.RescheduleRequest) (*model.Appointment, error) {
	apt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && !p.Is(model.RolePatient, apt.PatientID) && !p.Is(model.RoleDoctor, apt.DoctorID) {
		return nil, apperrors.Forbidden("not authorized to reschedule this appointment")
	}

	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		return nil, apperrors.BadRequest("invalid appointment date", err)
	}
	if !schedule.IsValid(req.TimeSlot) {
		return nil, apperrors.BadRequest("invalid time slot", nil)
	}

	apt.Date = date
	apt.TimeSlot = req.TimeSlot
	apt.Status = model.AppointmentStatusRescheduled
	apt.UpdatedAt = s.now().UTC()

	evt, err := event.ForAppointment(model.EventAppointmentRescheduled, apt)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := s.repo.Reschedule(ctx, apt, evt); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperrors.Conflict(msgSlotTaken, err)
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(err)
	}
	return apt, nil
}

// List returns every appointment to an admin and the caller's own bookings to
// anyone else.
func (s *Service) List(ctx context.Context, p *model.Principal) ([]*model.Appointment, error) {
	filters := &model.AppointmentFilters{}
	if !p.IsAdmin() {
		filters.PatientID = p.ID
	}
	return s.list(ctx, filters)
}

// ListForDoctor returns the appointments assigned to the calling doctor.
func (s *Service) ListForDoctor(ctx context.Context, p *model.Principal) ([]*model.Appointment, error) {
	return s.list(ctx, &model.AppointmentFilters{DoctorID: p.ID})
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID string) ([]*model.AppointmentSummary, error) {
	id, err := uuid.Parse(doctorID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid doctor id", err)
	}
	summaries, err := s.repo.ListSummaries(ctx, id)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return summaries, nil
}

// AvailableSlots returns the catalog slots still free for the doctor on date.
func (s *Service) AvailableSlots(ctx context.Context, doctorID, date string) ([]string, error) {
	day, err := schedule.ParseDate(date)
	if err != nil {
		return nil, apperrors.BadRequest("invalid date", err)
	}

	doctor, err := s.requireDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	booked, err := s.repo.BookedSlots(ctx, doctor.ID, day)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return schedule.Available(booked), nil
}

func (s *Service) list(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	apts, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return apts, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(err)
	}
	return apt, nil
}

// requireDoctor resolves raw to an existing doctor. Malformed ids are
// reported the same as unknown ones.
func (s *Service) requireDoctor(ctx context.Context, raw string) (*model.Doctor, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, apperrors.NotFound("doctor", err)
	}
	doctor, err := s.doctors.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Internal(err)
	}
	return doctor, nil
}

func missingField(req *model.CreateAppointmentRequest) bool {
	if req == nil {
		return true
	}
	for _, v := range []string{
		req.DoctorID, req.Date, req.TimeSlot, req.PatientName,
		req.PatientEmail, req.PatientPhone, req.HealthConcern,
	} {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
