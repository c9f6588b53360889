// Package event builds the outbox records written alongside appointment changes
// and decodes them again on the consuming side.
package event

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/schedule"
)

// New wraps payload into a pending outbox event.
func New(eventType string, payload interface{}) (*model.OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   data,
		Status:    model.OutboxStatusPending,
	}, nil
}

// ForAppointment snapshots apt as it is after the change. Callers stamp
// apt.UpdatedAt first; it becomes the event time.
func ForAppointment(eventType string, apt *model.Appointment) (*model.OutboxEvent, error) {
	return New(eventType, model.AppointmentEvent{
		AppointmentID: apt.ID,
		DoctorID:      apt.DoctorID,
		PatientID:     apt.PatientID,
		PatientName:   apt.PatientName,
		PatientEmail:  apt.PatientEmail,
		Date:          schedule.FormatDate(apt.Date),
		TimeSlot:      apt.TimeSlot,
		Status:        apt.Status,
		OccurredAt:    apt.UpdatedAt,
	})
}

func DecodeAppointment(payload []byte) (*model.AppointmentEvent, error) {
	var evt model.AppointmentEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("failed to decode appointment event: %w", err)
	}
	if evt.AppointmentID == uuid.Nil {
		return nil, fmt.Errorf("appointment event without appointment_id")
	}
	return &evt, nil
}
