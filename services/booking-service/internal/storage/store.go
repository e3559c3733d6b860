// Package storage is the pgx persistence layer for the booking service. The
// Store runs arbiter transactions; the repositories serve the read and admin
// paths outside of them.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pramenzivota/rezervace/libs/db"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/arbiter"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/availability"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/model"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/outbox"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/reminders"
)

type Store struct {
	pool      *db.Pool
	outbox    *outbox.Repository
	reminders *reminders.Repository
}

func NewStore(pool *db.Pool) *Store {
	return &Store{
		pool:      pool,
		outbox:    outbox.NewRepository(),
		reminders: reminders.NewRepository(),
	}
}

// InTx runs fn inside one database transaction. The transaction is rolled
// back on any error, including a panic in fn.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx arbiter.Tx) error) error {
	pgtx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer pgtx.Rollback(ctx)

	if err := fn(ctx, &txSession{tx: pgtx, store: s}); err != nil {
		return err
	}
	return pgtx.Commit(ctx)
}

// txSession is the arbiter.Tx implementation bound to one open transaction.
type txSession struct {
	tx    pgx.Tx
	store *Store
}

func (t *txSession) ServiceByID(ctx context.Context, id string) (model.Service, bool, error) {
	svc, err := scanService(t.tx.QueryRow(ctx, serviceColumns+` WHERE id = $1`, id))
	if IsNotFound(err) {
		return model.Service{}, false, nil
	}
	if err != nil {
		return model.Service{}, false, err
	}
	return svc, true, nil
}

func (t *txSession) EmployeeByID(ctx context.Context, id string) (model.Employee, bool, error) {
	emp, err := scanEmployee(t.tx.QueryRow(ctx, employeeColumns+` WHERE id = $1`, id))
	if IsNotFound(err) {
		return model.Employee{}, false, nil
	}
	if err != nil {
		return model.Employee{}, false, err
	}
	return emp, true, nil
}

func (t *txSession) IsQualified(ctx context.Context, employeeID, serviceID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM employee_services
			WHERE employee_id = $1 AND service_id = $2
		)
	`, employeeID, serviceID).Scan(&exists)
	return exists, err
}

func (t *txSession) WorkingHoursFor(ctx context.Context, employeeID string) ([]model.WorkingHours, error) {
	return queryWorkingHours(ctx, t.tx, employeeID)
}

func (t *txSession) BlockingIntervals(ctx context.Context, employeeID string, from, to time.Time, statuses []model.AppointmentStatus) ([]availability.Interval, error) {
	return queryBlockingIntervals(ctx, t.tx, employeeID, from, to, statuses)
}

func (t *txSession) UpsertCustomerByEmail(ctx context.Context, info arbiter.CustomerInfo) (string, error) {
	var id string
	err := t.tx.QueryRow(ctx, `
		INSERT INTO customers (first_name, last_name, email, phone, note)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE
		SET first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			phone = CASE WHEN EXCLUDED.phone <> '' THEN EXCLUDED.phone ELSE customers.phone END,
			updated_at = now()
		RETURNING id
	`, info.FirstName, info.LastName, info.Email, info.Phone, info.Note).Scan(&id)
	return id, err
}

func (t *txSession) CustomerByID(ctx context.Context, id string) (model.Customer, bool, error) {
	c, err := scanCustomer(t.tx.QueryRow(ctx, customerColumns+` WHERE id = $1`, id))
	if IsNotFound(err) {
		return model.Customer{}, false, nil
	}
	if err != nil {
		return model.Customer{}, false, err
	}
	return c, true, nil
}

func (t *txSession) AdjustCustomerTotals(ctx context.Context, customerID string, deltaAppointments int, deltaSpentCents int64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE customers
		SET total_appointments = GREATEST(total_appointments + $2, 0),
			total_spent_cents = GREATEST(total_spent_cents + $3, 0),
			updated_at = now()
		WHERE id = $1
	`, customerID, deltaAppointments, deltaSpentCents)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("customer not found for totals update")
	}
	return nil
}

func (t *txSession) InsertAppointment(ctx context.Context, appt *model.Appointment) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO appointments
			(service_id, employee_id, customer_id, start_at, end_at,
			duration_minutes, price_cents, currency, status, payment_method, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`, appt.ServiceID, appt.EmployeeID, appt.CustomerID, appt.StartAt, appt.EndAt,
		appt.DurationMinutes, appt.PriceCents, appt.Currency,
		string(appt.Status), string(appt.PaymentMethod), string(appt.PaymentStatus),
	).Scan(&appt.ID, &appt.CreatedAt)
	if IsConflict(err) {
		return arbiter.ErrSlotConflict
	}
	return err
}

func (t *txSession) AppointmentByID(ctx context.Context, id string) (model.Appointment, bool, error) {
	appt, err := scanAppointment(t.tx.QueryRow(ctx, appointmentColumns+` WHERE id = $1`, id))
	if IsNotFound(err) {
		return model.Appointment{}, false, nil
	}
	if err != nil {
		return model.Appointment{}, false, err
	}
	return appt, true, nil
}

func (t *txSession) AppointmentForUpdate(ctx context.Context, id string) (model.Appointment, bool, error) {
	appt, err := scanAppointment(t.tx.QueryRow(ctx, appointmentColumns+` WHERE id = $1 FOR UPDATE`, id))
	if IsNotFound(err) {
		return model.Appointment{}, false, nil
	}
	if err != nil {
		return model.Appointment{}, false, err
	}
	return appt, true, nil
}

func (t *txSession) SetAppointmentStatus(ctx context.Context, id string, status model.AppointmentStatus, canceledAt *time.Time, cancelReason string) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
			canceled_at = $3,
			cancel_reason = NULLIF($4, ''),
			updated_at = now()
		WHERE id = $1
	`, id, string(status), canceledAt, cancelReason)
	return err
}

// LockBookingKey claims the idempotency key for this transaction. The first
// caller inserts the row; concurrent retries block on the row lock until the
// original transaction commits.
func (t *txSession) LockBookingKey(ctx context.Context, key string) (string, bool, error) {
	apptID, err := t.selectBookingKeyForUpdate(ctx, key)
	if err == nil {
		return apptID, apptID != "", nil
	}
	if !IsNotFound(err) {
		return "", false, err
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (idempotency_key)
		VALUES ($1)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, key)
	if err != nil {
		return "", false, err
	}

	apptID, err = t.selectBookingKeyForUpdate(ctx, key)
	if err != nil {
		return "", false, err
	}
	return apptID, apptID != "", nil
}

func (t *txSession) FinalizeBookingKey(ctx context.Context, key, appointmentID string) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET appointment_id = $2, updated_at = now()
		WHERE idempotency_key = $1
	`, key, appointmentID)
	return err
}

func (t *txSession) InsertOutboxEvent(ctx context.Context, ev outbox.Event) error {
	return t.store.outbox.Insert(ctx, t.tx, ev)
}

func (t *txSession) InsertReminderJob(ctx context.Context, job reminders.Job) error {
	return t.store.reminders.Insert(ctx, t.tx, job)
}

func (t *txSession) CancelReminderJobs(ctx context.Context, appointmentID string) error {
	return t.store.reminders.CancelForAppointment(ctx, t.tx, appointmentID)
}

func (t *txSession) selectBookingKeyForUpdate(ctx context.Context, key string) (string, error) {
	var apptID string
	err := t.tx.QueryRow(ctx, `
		SELECT COALESCE(appointment_id::text, '')
		FROM booking_idempotency_keys
		WHERE idempotency_key = $1
		FOR UPDATE
	`, key).Scan(&apptID)
	return apptID, err
}
