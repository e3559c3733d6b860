// Package schedule answers "what is busy or closed for employee E on date D".
// It is a read-only view over the persistence layer; it owns no records and
// holds no state between requests.
package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/pramenzivota/rezervace/services/booking-service/internal/availability"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/model"
)

var ErrUnknownEmployee = errors.New("unknown employee")

// Source is the storage surface the index reads from.
type Source interface {
	// WorkingHoursFor returns all weekly windows for the employee. found is
	// false when the employee id does not exist at all.
	WorkingHoursFor(ctx context.Context, employeeID string) (hours []model.WorkingHours, found bool, err error)

	// BlockingIntervals returns appointment intervals for the employee whose
	// status is in statuses and which overlap [from, to), sorted by start.
	BlockingIntervals(ctx context.Context, employeeID string, from, to time.Time, statuses []model.AppointmentStatus) ([]availability.Interval, error)

	IsQualified(ctx context.Context, employeeID, serviceID string) (bool, error)

	// QualifiedEmployeeIDs lists active employees able to perform the service.
	QualifiedEmployeeIDs(ctx context.Context, serviceID string) ([]string, error)
}

type Index struct {
	src           Source
	loc           *time.Location
	pendingBlocks bool
}

// New builds an index for one request. loc is the business timezone; when
// pendingBlocks is set, PENDING appointments hold their slot like APPROVED
// ones do.
func New(src Source, loc *time.Location, pendingBlocks bool) *Index {
	if loc == nil {
		loc = time.UTC
	}
	return &Index{src: src, loc: loc, pendingBlocks: pendingBlocks}
}

// BlockingStatuses returns the appointment statuses that remove availability
// under the configured pending policy.
func BlockingStatuses(pendingBlocks bool) []model.AppointmentStatus {
	if pendingBlocks {
		return []model.AppointmentStatus{model.StatusPending, model.StatusApproved}
	}
	return []model.AppointmentStatus{model.StatusApproved}
}

// WorkingWindows returns the employee's windows on the given calendar day,
// materialized as absolute intervals in the business timezone. The sequence
// is empty when the employee does not work that day.
func (ix *Index) WorkingWindows(ctx context.Context, employeeID string, date time.Time) ([]availability.Interval, error) {
	hours, found, err := ix.src.WorkingHoursFor(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUnknownEmployee
	}
	return WindowsOn(hours, date, ix.loc), nil
}

// BookedIntervals returns blocking appointment intervals on the given day,
// sorted by start time.
func (ix *Index) BookedIntervals(ctx context.Context, employeeID string, date time.Time) ([]availability.Interval, error) {
	dayStart, dayEnd := DayBounds(date, ix.loc)
	return ix.src.BlockingIntervals(ctx, employeeID, dayStart, dayEnd, BlockingStatuses(ix.pendingBlocks))
}

func (ix *Index) IsQualified(ctx context.Context, employeeID, serviceID string) (bool, error) {
	return ix.src.IsQualified(ctx, employeeID, serviceID)
}

func (ix *Index) QualifiedEmployeeIDs(ctx context.Context, serviceID string) ([]string, error) {
	return ix.src.QualifiedEmployeeIDs(ctx, serviceID)
}

func (ix *Index) Location() *time.Location {
	return ix.loc
}

// DayBounds returns midnight-to-midnight for date's calendar day in loc.
func DayBounds(date time.Time, loc *time.Location) (time.Time, time.Time) {
	d := date.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// WindowsOn materializes the weekly windows matching date's weekday in loc.
// Pure so the weekday/timezone arithmetic is testable without storage.
func WindowsOn(hours []model.WorkingHours, date time.Time, loc *time.Location) []availability.Interval {
	dayStart, _ := DayBounds(date, loc)
	weekday := dayStart.Weekday()

	var windows []availability.Interval
	for _, wh := range hours {
		if wh.Weekday != weekday || wh.EndMinute <= wh.StartMinute {
			continue
		}
		windows = append(windows, availability.Interval{
			Start: dayStart.Add(time.Duration(wh.StartMinute) * time.Minute),
			End:   dayStart.Add(time.Duration(wh.EndMinute) * time.Minute),
		})
	}
	return availability.Merge(windows)
}
