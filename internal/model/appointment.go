package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending     AppointmentStatus = "Pending"
	AppointmentStatusApproved    AppointmentStatus = "Approved"
	AppointmentStatusRejected    AppointmentStatus = "Rejected"
	AppointmentStatusRescheduled AppointmentStatus = "Rescheduled"
)

// IsDecision reports whether a doctor may set the status directly.
func (s AppointmentStatus) IsDecision() bool {
	return s == AppointmentStatusApproved || s == AppointmentStatusRejected
}

// Appointment is a booked slot. The Patient* fields and HealthConcern are a
// snapshot taken at booking time and are not re-synced with the profile.
type Appointment struct {
	Base
	DoctorID      uuid.UUID         `db:"doctor_id" json:"doctorId"`
	PatientID     uuid.UUID         `db:"patient_id" json:"patientId"`
	Date          time.Time         `db:"date" json:"date"`
	TimeSlot      string            `db:"time_slot" json:"timeSlot"`
	Status        AppointmentStatus `db:"status" json:"status"`
	PatientName   string            `db:"patient_name" json:"patientName"`
	PatientEmail  string            `db:"patient_email" json:"patientEmail"`
	PatientPhone  string            `db:"patient_phone" json:"patientPhone"`
	HealthConcern string            `db:"health_concern" json:"healthConcern"`

	// Filled from the doctors table on reads; never written.
	DoctorName      string `db:"doctor_name" json:"doctorName"`
	DoctorSpecialty string `db:"doctor_specialty" json:"doctorSpecialty"`
}

// AppointmentSummary is the projection returned to admins browsing a doctor's book.
type AppointmentSummary struct {
	ID          uuid.UUID         `db:"id" json:"id"`
	PatientName string            `db:"patient_name" json:"patientName"`
	Date        time.Time         `db:"date" json:"date"`
	TimeSlot    string            `db:"time_slot" json:"timeSlot"`
	Status      AppointmentStatus `db:"status" json:"status"`
}

type CreateAppointmentRequest struct {
	DoctorID      string `json:"doctorId" binding:"required"`
	Date          string `json:"date" binding:"required"`
	TimeSlot      string `json:"timeSlot" binding:"required,timeslot"`
	PatientName   string `json:"patientName" binding:"required"`
	PatientEmail  string `json:"patientEmail" binding:"required,email"`
	PatientPhone  string `json:"patientPhone" binding:"required"`
	HealthConcern string `json:"healthConcern" binding:"required"`
}

type UpdateStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required"`
}

type RescheduleRequest struct {
	Date     string `json:"date" binding:"required"`
	TimeSlot string `json:"timeSlot" binding:"required,timeslot"`
}

// AppointmentFilters scopes a listing. Zero values are ignored.
type AppointmentFilters struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Status    AppointmentStatus
}
