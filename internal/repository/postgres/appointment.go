package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/schedule"
)

var appointmentColumns = []string{
	"id", "doctor_id", "patient_id", "date", "time_slot", "status",
	"patient_name", "patient_email", "patient_phone", "health_concern",
	"created_at", "updated_at",
}

// listColumns selects the appointment row aliased "a" plus the doctor's name
// and specialty from the joined "d". A missing doctor reads as empty strings.
func listColumns() []interface{} {
	cols := make([]interface{}, 0, len(appointmentColumns)+2)
	for _, c := range appointmentColumns {
		cols = append(cols, goqu.I("a."+c))
	}
	return append(cols,
		goqu.L(`COALESCE("d"."name", '')`).As("doctor_name"),
		goqu.L(`COALESCE("d"."specialty", '')`).As("doctor_specialty"),
	)
}

// Create inserts the appointment unless the slot is already taken. The unique
// index on (doctor_id, date, time_slot) decides races between concurrent bookings.
func (r *appointmentRepository) Create(ctx context.Context, apt *model.Appointment, evt *model.OutboxEvent) error {
	query := `
		INSERT INTO appointments (
			id, doctor_id, patient_id, date, time_slot, status,
			patient_name, patient_email, patient_phone, health_concern,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (doctor_id, date, time_slot) DO NOTHING
	`
	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	if apt.CreatedAt.IsZero() {
		apt.CreatedAt = time.Now().UTC()
	}
	if apt.UpdatedAt.IsZero() {
		apt.UpdatedAt = apt.CreatedAt
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, query,
			apt.ID,
			apt.DoctorID,
			apt.PatientID,
			schedule.FormatDate(apt.Date),
			apt.TimeSlot,
			apt.Status,
			apt.PatientName,
			apt.PatientEmail,
			apt.PatientPhone,
			apt.HealthConcern,
			apt.CreatedAt,
			apt.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create appointment: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return repository.ErrDuplicate
		}

		return insertOutboxEvent(ctx, tx, evt)
	})
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT a.id, a.doctor_id, a.patient_id, a.date, a.time_slot, a.status,
			   a.patient_name, a.patient_email, a.patient_phone, a.health_concern,
			   a.created_at, a.updated_at,
			   COALESCE(d.name, '') AS doctor_name, COALESCE(d.specialty, '') AS doctor_specialty
		FROM appointments a
		LEFT JOIN doctors d ON d.id = a.doctor_id
		WHERE a.id = $1
	`
	var apt model.Appointment
	if err := r.db.GetContext(ctx, &apt, query, id); err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", translate(err))
	}
	return &apt, nil
}

// UpdateStatus persists apt.Status with the caller's apt.UpdatedAt, stamping
// it only when unset.
func (r *appointmentRepository) UpdateStatus(ctx context.Context, apt *model.Appointment, evt *model.OutboxEvent) error {
	query := `
		UPDATE appointments
		SET status = $1, updated_at = $2
		WHERE id = $3
	`
	if apt.UpdatedAt.IsZero() {
		apt.UpdatedAt = time.Now().UTC()
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, query, apt.Status, apt.UpdatedAt, apt.ID)
		if err != nil {
			return fmt.Errorf("failed to update appointment status: %w", err)
		}
		if err := checkAffected(result); err != nil {
			return err
		}
		return insertOutboxEvent(ctx, tx, evt)
	})
}

// Reschedule moves the appointment. A target slot held by another appointment
// violates the slot index and surfaces as repository.ErrDuplicate.
func (r *appointmentRepository) Reschedule(ctx context.Context, apt *model.Appointment, evt *model.OutboxEvent) error {
	query := `
		UPDATE appointments
		SET date = $1, time_slot = $2, status = $3, updated_at = $4
		WHERE id = $5
	`
	if apt.UpdatedAt.IsZero() {
		apt.UpdatedAt = time.Now().UTC()
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, query,
			schedule.FormatDate(apt.Date),
			apt.TimeSlot,
			apt.Status,
			apt.UpdatedAt,
			apt.ID,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return repository.ErrDuplicate
			}
			return fmt.Errorf("failed to reschedule appointment: %w", err)
		}
		if err := checkAffected(result); err != nil {
			return err
		}
		return insertOutboxEvent(ctx, tx, evt)
	})
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID, evt *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete appointment: %w", err)
		}
		if err := checkAffected(result); err != nil {
			return err
		}
		return insertOutboxEvent(ctx, tx, evt)
	})
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	ds := r.dialect.From(goqu.T("appointments").As("a")).
		Select(listColumns()...).
		LeftJoin(goqu.T("doctors").As("d"), goqu.On(goqu.Ex{"a.doctor_id": goqu.I("d.id")})).
		Order(goqu.I("a.date").Asc(), goqu.I("a.created_at").Asc()).
		Prepared(true)

	if filters != nil {
		if filters.DoctorID != uuid.Nil {
			ds = ds.Where(goqu.Ex{"a.doctor_id": filters.DoctorID.String()})
		}
		if filters.PatientID != uuid.Nil {
			ds = ds.Where(goqu.Ex{"a.patient_id": filters.PatientID.String()})
		}
		if filters.Status != "" {
			ds = ds.Where(goqu.Ex{"a.status": string(filters.Status)})
		}
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build appointment query: %w", err)
	}

	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListSummaries(ctx context.Context, doctorID uuid.UUID) ([]*model.AppointmentSummary, error) {
	query := `
		SELECT id, patient_name, date, time_slot, status
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY date ASC, created_at ASC
	`
	summaries := []*model.AppointmentSummary{}
	if err := r.db.SelectContext(ctx, &summaries, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list appointment summaries: %w", err)
	}
	return summaries, nil
}

func (r *appointmentRepository) BookedSlots(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]string, error) {
	query := `
		SELECT time_slot
		FROM appointments
		WHERE doctor_id = $1 AND date >= $2 AND date < $3
	`
	start, end := schedule.DayBounds(day)

	slots := []string{}
	err := r.db.SelectContext(ctx, &slots, query,
		doctorID,
		schedule.FormatDate(start),
		schedule.FormatDate(end),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get booked slots: %w", err)
	}
	return slots, nil
}
