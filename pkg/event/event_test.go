package event

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
)

func TestForAppointment(t *testing.T) {
	apt := &model.Appointment{
		Base:         model.Base{ID: uuid.New(), UpdatedAt: time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)},
		DoctorID:     uuid.New(),
		PatientID:    uuid.New(),
		Date:         time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		TimeSlot:     "9:00 AM",
		Status:       model.AppointmentStatusPending,
		PatientName:  "Jane Roe",
		PatientEmail: "jane@example.com",
	}

	evt, err := ForAppointment(model.EventAppointmentCreated, apt)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, evt.ID)
	assert.Equal(t, model.OutboxStatusPending, evt.Status)
	assert.Contains(t, string(evt.Payload), `"date":"2024-06-10"`)

	decoded, err := DecodeAppointment(evt.Payload)
	require.NoError(t, err)
	assert.Equal(t, apt.ID, decoded.AppointmentID)
	assert.Equal(t, "jane@example.com", decoded.PatientEmail)
	assert.Equal(t, "9:00 AM", decoded.TimeSlot)
	assert.True(t, decoded.OccurredAt.Equal(apt.UpdatedAt))
}

func TestDecodeAppointment_Invalid(t *testing.T) {
	_, err := DecodeAppointment([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeAppointment([]byte(`{"time_slot":"9:00 AM"}`))
	assert.Error(t, err)
}
