package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write hits a unique constraint, e.g. a
	// second booking of the same doctor/day/slot.
	ErrDuplicate = errors.New("duplicate record")
)

// All repository interfaces in one file
type (
	// AppointmentRepository persists appointments. Every mutation takes the
	// outbox event describing it and commits both atomically.
	AppointmentRepository interface {
		// Create claims the (doctor, day, slot) tuple; ErrDuplicate when taken.
		Create(ctx context.Context, apt *model.Appointment, evt *model.OutboxEvent) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		UpdateStatus(ctx context.Context, apt *model.Appointment, evt *model.OutboxEvent) error
		// Reschedule moves the appointment to apt.Date/apt.TimeSlot; ErrDuplicate when taken.
		Reschedule(ctx context.Context, apt *model.Appointment, evt *model.OutboxEvent) error
		Delete(ctx context.Context, id uuid.UUID, evt *model.OutboxEvent) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		ListSummaries(ctx context.Context, doctorID uuid.UUID) ([]*model.AppointmentSummary, error)
		// BookedSlots returns the time slots taken for the doctor on day's calendar day.
		BookedSlots(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]string, error)
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		GetByEmail(ctx context.Context, email string) (*model.Doctor, error)
		Update(ctx context.Context, doctor *model.Doctor) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Doctor, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	}

	OutboxRepository interface {
		// ClaimPending marks up to limit due events as processing and returns them.
		ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	// TokenStore keeps short-lived auth state: revoked token ids and
	// single-use password reset tokens.
	TokenStore interface {
		Revoke(ctx context.Context, jti string, ttl time.Duration) error
		IsRevoked(ctx context.Context, jti string) (bool, error)
		StoreResetToken(ctx context.Context, token string, subject ResetSubject, ttl time.Duration) error
		ConsumeResetToken(ctx context.Context, token string) (*ResetSubject, error)
	}
)

// ResetSubject identifies the account a reset token was issued for.
type ResetSubject struct {
	ID   uuid.UUID  `json:"id"`
	Role model.Role `json:"role"`
}
