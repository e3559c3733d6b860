package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pramenzivota/rezervace/services/booking-service/internal/availability"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/model"
)

type fakeSource struct {
	hours       []model.WorkingHours
	found       bool
	gotStatuses []model.AppointmentStatus
	gotFrom     time.Time
	gotTo       time.Time
}

func (s *fakeSource) WorkingHoursFor(context.Context, string) ([]model.WorkingHours, bool, error) {
	return s.hours, s.found, nil
}

func (s *fakeSource) BlockingIntervals(_ context.Context, _ string, from, to time.Time, statuses []model.AppointmentStatus) ([]availability.Interval, error) {
	s.gotFrom, s.gotTo, s.gotStatuses = from, to, statuses
	return nil, nil
}

func (s *fakeSource) IsQualified(context.Context, string, string) (bool, error) {
	return true, nil
}

func (s *fakeSource) QualifiedEmployeeIDs(context.Context, string) ([]string, error) {
	return nil, nil
}

func prague(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Prague")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	return loc
}

func TestWindowsOn(t *testing.T) {
	loc := prague(t)
	hours := []model.WorkingHours{
		{Weekday: time.Monday, StartMinute: 540, EndMinute: 1020},
		{Weekday: time.Tuesday, StartMinute: 600, EndMinute: 720},
		{Weekday: time.Tuesday, StartMinute: 780, EndMinute: 1080},
		{Weekday: time.Wednesday, StartMinute: 600, EndMinute: 600}, // degenerate
	}

	monday := time.Date(2026, time.March, 2, 12, 0, 0, 0, loc)
	got := WindowsOn(hours, monday, loc)
	if len(got) != 1 {
		t.Fatalf("expected 1 window on Monday, got %d", len(got))
	}
	wantStart := time.Date(2026, time.March, 2, 9, 0, 0, 0, loc)
	wantEnd := time.Date(2026, time.March, 2, 17, 0, 0, 0, loc)
	if !got[0].Start.Equal(wantStart) || !got[0].End.Equal(wantEnd) {
		t.Fatalf("expected %v-%v, got %v-%v", wantStart, wantEnd, got[0].Start, got[0].End)
	}

	tuesday := monday.AddDate(0, 0, 1)
	if got := WindowsOn(hours, tuesday, loc); len(got) != 2 {
		t.Fatalf("expected 2 windows on Tuesday, got %d", len(got))
	}

	wednesday := monday.AddDate(0, 0, 2)
	if got := WindowsOn(hours, wednesday, loc); len(got) != 0 {
		t.Fatalf("expected no windows on Wednesday, got %v", got)
	}

	sunday := monday.AddDate(0, 0, -1)
	if got := WindowsOn(hours, sunday, loc); len(got) != 0 {
		t.Fatalf("expected no windows on Sunday, got %v", got)
	}
}

func TestWindowsOnResolvesWeekdayInBusinessTimezone(t *testing.T) {
	loc := prague(t)
	hours := []model.WorkingHours{
		{Weekday: time.Monday, StartMinute: 540, EndMinute: 1020},
	}

	// 23:30 UTC Sunday is already 00:30 Monday in Prague.
	utcSundayNight := time.Date(2026, time.March, 1, 23, 30, 0, 0, time.UTC)
	got := WindowsOn(hours, utcSundayNight, loc)
	if len(got) != 1 {
		t.Fatalf("expected Monday window for late-Sunday UTC instant, got %v", got)
	}
	if got[0].Start.Hour() != 9 {
		t.Fatalf("expected 09:00 local start, got %v", got[0].Start)
	}
}

func TestDayBounds(t *testing.T) {
	loc := prague(t)
	start, end := DayBounds(time.Date(2026, time.March, 2, 15, 45, 0, 0, loc), loc)
	if start.Hour() != 0 || start.Day() != 2 {
		t.Fatalf("unexpected day start %v", start)
	}
	if end.Sub(start) != 24*time.Hour {
		t.Fatalf("expected 24h day, got %v", end.Sub(start))
	}
}

func TestBlockingStatuses(t *testing.T) {
	with := BlockingStatuses(true)
	if len(with) != 2 || with[0] != model.StatusPending || with[1] != model.StatusApproved {
		t.Fatalf("unexpected statuses with pending blocking: %v", with)
	}
	without := BlockingStatuses(false)
	if len(without) != 1 || without[0] != model.StatusApproved {
		t.Fatalf("unexpected statuses without pending blocking: %v", without)
	}
}

func TestIndexBookedIntervalsPassesDayBoundsAndStatuses(t *testing.T) {
	loc := prague(t)
	src := &fakeSource{found: true}
	ix := New(src, loc, true)

	date := time.Date(2026, time.March, 2, 14, 0, 0, 0, loc)
	if _, err := ix.BookedIntervals(context.Background(), "emp-1", date); err != nil {
		t.Fatalf("BookedIntervals: %v", err)
	}

	wantFrom, wantTo := DayBounds(date, loc)
	if !src.gotFrom.Equal(wantFrom) || !src.gotTo.Equal(wantTo) {
		t.Fatalf("expected bounds %v-%v, got %v-%v", wantFrom, wantTo, src.gotFrom, src.gotTo)
	}
	if len(src.gotStatuses) != 2 {
		t.Fatalf("expected PENDING+APPROVED to block, got %v", src.gotStatuses)
	}
}

func TestIndexUnknownEmployee(t *testing.T) {
	ix := New(&fakeSource{found: false}, time.UTC, true)
	_, err := ix.WorkingWindows(context.Background(), "nope", time.Now())
	if !errors.Is(err, ErrUnknownEmployee) {
		t.Fatalf("expected ErrUnknownEmployee, got %v", err)
	}
}
