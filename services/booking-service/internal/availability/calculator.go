package availability

import (
	"context"
	"errors"
	"time"

	"github.com/pramenzivota/rezervace/services/booking-service/internal/model"
)

var ErrEmployeeNotQualified = errors.New("employee not qualified for service")

// ScheduleView is the read-only schedule surface the calculator consumes.
// Satisfied by schedule.Index.
type ScheduleView interface {
	WorkingWindows(ctx context.Context, employeeID string, date time.Time) ([]Interval, error)
	BookedIntervals(ctx context.Context, employeeID string, date time.Time) ([]Interval, error)
	IsQualified(ctx context.Context, employeeID, serviceID string) (bool, error)
	QualifiedEmployeeIDs(ctx context.Context, serviceID string) ([]string, error)
	Location() *time.Location
}

// CandidateSlot is a bookable (employee, start) candidate. Returning one is
// not a reservation: nothing is held, and the slot may be gone by the time a
// booking for it is submitted.
type CandidateSlot struct {
	EmployeeID string
	Start      time.Time
	End        time.Time
}

type SlotsRequest struct {
	Service model.Service
	// EmployeeID restricts the search to one employee; empty means every
	// qualified employee.
	EmployeeID string
	// From and To are calendar days, inclusive, interpreted in the business
	// timezone.
	From time.Time
	To   time.Time
	Step time.Duration
	// Now plus MinLeadTime is the earliest admissible start.
	Now         time.Time
	MinLeadTime time.Duration
}

type Calculator struct {
	view ScheduleView
}

func NewCalculator(view ScheduleView) *Calculator {
	return &Calculator{view: view}
}

// ComputeSlots subtracts booked intervals from working windows for every
// (employee, day) pair in the request and emits start candidates at step
// granularity. The result is a pure function of the underlying data:
// recomputing with unchanged data yields identical output.
func (c *Calculator) ComputeSlots(ctx context.Context, req SlotsRequest) ([]CandidateSlot, error) {
	duration := req.Service.Duration()
	if duration <= 0 || req.Step <= 0 {
		return nil, nil
	}

	employees, err := c.resolveEmployees(ctx, req)
	if err != nil {
		return nil, err
	}

	loc := c.view.Location()
	earliest := req.Now.Add(req.MinLeadTime)

	var out []CandidateSlot
	for day := startOfDay(req.From, loc); !day.After(startOfDay(req.To, loc)); day = day.AddDate(0, 0, 1) {
		for _, employeeID := range employees {
			windows, err := c.view.WorkingWindows(ctx, employeeID, day)
			if err != nil {
				return nil, err
			}
			if len(windows) == 0 {
				continue
			}
			busy, err := c.view.BookedIntervals(ctx, employeeID, day)
			if err != nil {
				return nil, err
			}

			for _, window := range windows {
				for _, free := range Subtract(window, busy) {
					if free.Duration() < duration {
						continue
					}
					for _, start := range SlotStarts(free, duration, req.Step) {
						if start.Before(earliest) {
							continue
						}
						out = append(out, CandidateSlot{
							EmployeeID: employeeID,
							Start:      start,
							End:        start.Add(duration),
						})
					}
				}
			}
		}
	}
	return out, nil
}

func (c *Calculator) resolveEmployees(ctx context.Context, req SlotsRequest) ([]string, error) {
	if req.EmployeeID != "" {
		ok, err := c.view.IsQualified(ctx, req.EmployeeID, req.Service.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrEmployeeNotQualified
		}
		return []string{req.EmployeeID}, nil
	}
	return c.view.QualifiedEmployeeIDs(ctx, req.Service.ID)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	d := t.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}
