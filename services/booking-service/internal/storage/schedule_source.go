package storage

import (
	"context"
	"time"

	"github.com/pramenzivota/rezervace/libs/db"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/availability"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/model"
)

// ScheduleSource feeds the schedule index from the pool outside of a booking
// transaction. Slot listings tolerate read skew; the arbiter re-checks inside
// its own transaction before committing.
type ScheduleSource struct {
	pool *db.Pool
}

func NewScheduleSource(pool *db.Pool) *ScheduleSource {
	return &ScheduleSource{pool: pool}
}

func (s *ScheduleSource) WorkingHoursFor(ctx context.Context, employeeID string) ([]model.WorkingHours, bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM employees WHERE id = $1 AND active)
	`, employeeID).Scan(&exists)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, nil
	}

	hours, err := queryWorkingHours(ctx, s.pool, employeeID)
	if err != nil {
		return nil, false, err
	}
	return hours, true, nil
}

func (s *ScheduleSource) BlockingIntervals(ctx context.Context, employeeID string, from, to time.Time, statuses []model.AppointmentStatus) ([]availability.Interval, error) {
	return queryBlockingIntervals(ctx, s.pool, employeeID, from, to, statuses)
}

func (s *ScheduleSource) IsQualified(ctx context.Context, employeeID, serviceID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM employee_services es
			JOIN employees e ON e.id = es.employee_id
			WHERE es.employee_id = $1 AND es.service_id = $2 AND e.active
		)
	`, employeeID, serviceID).Scan(&exists)
	return exists, err
}

func (s *ScheduleSource) QualifiedEmployeeIDs(ctx context.Context, serviceID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.id
		FROM employees e
		JOIN employee_services es ON es.employee_id = e.id
		WHERE es.service_id = $1 AND e.active
		ORDER BY e.last_name, e.first_name
	`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
