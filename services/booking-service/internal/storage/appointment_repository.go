package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pramenzivota/rezervace/libs/db"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/model"
)

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

// ListFilter narrows the admin appointment listing. Zero values mean
// "no filter".
type ListFilter struct {
	EmployeeID string
	ServiceID  string
	Status     model.AppointmentStatus
	From       time.Time
	To         time.Time
	Limit      int
}

func (r *AppointmentRepository) List(ctx context.Context, filter ListFilter) ([]model.Appointment, error) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.EmployeeID != "" {
		add("employee_id = $%d", filter.EmployeeID)
	}
	if filter.ServiceID != "" {
		add("service_id = $%d", filter.ServiceID)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if !filter.From.IsZero() {
		add("end_at > $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("start_at < $%d", filter.To)
	}

	query := appointmentColumns
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY start_at DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	return out, rows.Err()
}

func (r *AppointmentRepository) ByID(ctx context.Context, id string) (model.Appointment, bool, error) {
	appt, err := scanAppointment(r.pool.QueryRow(ctx, appointmentColumns+` WHERE id = $1`, id))
	if IsNotFound(err) {
		return model.Appointment{}, false, nil
	}
	if err != nil {
		return model.Appointment{}, false, err
	}
	return appt, true, nil
}

// ForCustomer lists a customer's appointments, newest first.
func (r *AppointmentRepository) ForCustomer(ctx context.Context, customerID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, appointmentColumns+`
		WHERE customer_id = $1
		ORDER BY start_at DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	return out, rows.Err()
}

// DashboardStats aggregates the admin dashboard numbers for [from, to).
type DashboardStats struct {
	TotalAppointments int
	PendingCount      int
	ApprovedCount     int
	CanceledCount     int
	CompletedCount    int
	RevenueCents      int64
	UniqueCustomers   int
}

func (r *AppointmentRepository) Stats(ctx context.Context, from, to time.Time) (DashboardStats, error) {
	var s DashboardStats
	err := r.pool.QueryRow(ctx, `
		SELECT count(*),
			count(*) FILTER (WHERE status = 'PENDING'),
			count(*) FILTER (WHERE status = 'APPROVED'),
			count(*) FILTER (WHERE status = 'CANCELED'),
			count(*) FILTER (WHERE status = 'COMPLETED'),
			COALESCE(sum(price_cents) FILTER (WHERE status IN ('APPROVED', 'COMPLETED')), 0),
			count(DISTINCT customer_id)
		FROM appointments
		WHERE start_at >= $1 AND start_at < $2
	`, from, to).Scan(
		&s.TotalAppointments,
		&s.PendingCount,
		&s.ApprovedCount,
		&s.CanceledCount,
		&s.CompletedCount,
		&s.RevenueCents,
		&s.UniqueCustomers,
	)
	return s, err
}

func (r *AppointmentRepository) SetPaymentStatus(ctx context.Context, id string, status model.PaymentStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET payment_status = $2, updated_at = now()
		WHERE id = $1
	`, id, string(status))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
