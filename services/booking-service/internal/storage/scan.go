package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/availability"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/model"
)

// querier is satisfied by both pgx.Tx and the pgxpool-backed db.Pool, so the
// same scan helpers serve the transactional and the read-only paths.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const serviceColumns = `
	SELECT id, category_id, name, COALESCE(description, ''), duration_minutes,
		price_cents, currency, COALESCE(color, ''), active, created_at
	FROM services`

const employeeColumns = `
	SELECT id, first_name, last_name, COALESCE(email, ''), COALESCE(phone, ''),
		COALESCE(notes, ''), active, created_at
	FROM employees`

const appointmentColumns = `
	SELECT id, service_id, employee_id, customer_id, start_at, end_at,
		duration_minutes, price_cents, currency, status, payment_method,
		payment_status, created_at, canceled_at, COALESCE(cancel_reason, '')
	FROM appointments`

const customerColumns = `
	SELECT id, first_name, last_name, email, COALESCE(phone, ''), COALESCE(note, ''),
		total_appointments, total_spent_cents, created_at
	FROM customers`

func scanService(row pgx.Row) (model.Service, error) {
	var svc model.Service
	err := row.Scan(&svc.ID, &svc.CategoryID, &svc.Name, &svc.Description,
		&svc.DurationMinutes, &svc.PriceCents, &svc.Currency, &svc.Color,
		&svc.Active, &svc.CreatedAt)
	return svc, err
}

func scanEmployee(row pgx.Row) (model.Employee, error) {
	var emp model.Employee
	err := row.Scan(&emp.ID, &emp.FirstName, &emp.LastName, &emp.Email,
		&emp.Phone, &emp.Notes, &emp.Active, &emp.CreatedAt)
	return emp, err
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var status, method, paymentStatus string
	var canceledAt *time.Time
	err := row.Scan(&appt.ID, &appt.ServiceID, &appt.EmployeeID, &appt.CustomerID,
		&appt.StartAt, &appt.EndAt, &appt.DurationMinutes, &appt.PriceCents,
		&appt.Currency, &status, &method, &paymentStatus, &appt.CreatedAt,
		&canceledAt, &appt.CancelReason)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.AppointmentStatus(status)
	appt.PaymentMethod = model.PaymentMethod(method)
	appt.PaymentStatus = model.PaymentStatus(paymentStatus)
	appt.CanceledAt = canceledAt
	return appt, nil
}

func scanCustomer(row pgx.Row) (model.Customer, error) {
	var c model.Customer
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.Note, &c.TotalAppointments, &c.TotalSpentCents, &c.CreatedAt)
	return c, err
}

func queryWorkingHours(ctx context.Context, q querier, employeeID string) ([]model.WorkingHours, error) {
	rows, err := q.Query(ctx, `
		SELECT employee_id, weekday, start_minute, end_minute
		FROM working_hours
		WHERE employee_id = $1
		ORDER BY weekday, start_minute
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hours []model.WorkingHours
	for rows.Next() {
		var wh model.WorkingHours
		var weekday int
		if err := rows.Scan(&wh.EmployeeID, &weekday, &wh.StartMinute, &wh.EndMinute); err != nil {
			return nil, err
		}
		wh.Weekday = time.Weekday(weekday)
		hours = append(hours, wh)
	}
	return hours, rows.Err()
}

func queryBlockingIntervals(ctx context.Context, q querier, employeeID string, from, to time.Time, statuses []model.AppointmentStatus) ([]availability.Interval, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	rows, err := q.Query(ctx, `
		SELECT start_at, end_at
		FROM appointments
		WHERE employee_id = $1
			AND status = ANY($2)
			AND start_at < $4
			AND end_at > $3
		ORDER BY start_at
	`, employeeID, names, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var busy []availability.Interval
	for rows.Next() {
		var iv availability.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		busy = append(busy, iv)
	}
	return busy, rows.Err()
}
