package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pramenzivota/rezervace/services/booking-service/internal/model"
)

type fakeView struct {
	loc       *time.Location
	windows   map[string][]Interval
	booked    map[string][]Interval
	qualified map[string][]string
}

func (v *fakeView) WorkingWindows(_ context.Context, employeeID string, _ time.Time) ([]Interval, error) {
	return v.windows[employeeID], nil
}

func (v *fakeView) BookedIntervals(_ context.Context, employeeID string, _ time.Time) ([]Interval, error) {
	return v.booked[employeeID], nil
}

func (v *fakeView) IsQualified(_ context.Context, employeeID, serviceID string) (bool, error) {
	for _, id := range v.qualified[serviceID] {
		if id == employeeID {
			return true, nil
		}
	}
	return false, nil
}

func (v *fakeView) QualifiedEmployeeIDs(_ context.Context, serviceID string) ([]string, error) {
	return v.qualified[serviceID], nil
}

func (v *fakeView) Location() *time.Location {
	return v.loc
}

func mustPrague(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Prague")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	return loc
}

func massageService(minutes int) model.Service {
	return model.Service{ID: "svc-1", DurationMinutes: minutes, Active: true}
}

func TestComputeSlotsSingleDay(t *testing.T) {
	loc := mustPrague(t)
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, loc) // Monday

	view := &fakeView{
		loc: loc,
		windows: map[string][]Interval{
			"emp-1": {{Start: day.Add(9 * time.Hour), End: day.Add(17 * time.Hour)}},
		},
		qualified: map[string][]string{"svc-1": {"emp-1"}},
	}

	calc := NewCalculator(view)
	slots, err := calc.ComputeSlots(context.Background(), SlotsRequest{
		Service:    massageService(120),
		EmployeeID: "emp-1",
		From:       day,
		To:         day,
		Step:       30 * time.Minute,
		Now:        day.Add(-24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("ComputeSlots: %v", err)
	}

	// 09:00 through 15:00 every 30 minutes; a 120-minute booking starting
	// later than 15:00 would run past 17:00.
	if len(slots) != 13 {
		t.Fatalf("expected 13 slots, got %d", len(slots))
	}
	first, last := slots[0], slots[len(slots)-1]
	if !first.Start.Equal(day.Add(9 * time.Hour)) {
		t.Fatalf("first slot: expected 09:00, got %v", first.Start)
	}
	if !last.Start.Equal(day.Add(15 * time.Hour)) {
		t.Fatalf("last slot: expected 15:00, got %v", last.Start)
	}
	if !last.End.Equal(day.Add(17 * time.Hour)) {
		t.Fatalf("last slot end: expected 17:00, got %v", last.End)
	}
}

func TestComputeSlotsExcludesBooked(t *testing.T) {
	loc := mustPrague(t)
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, loc)

	view := &fakeView{
		loc: loc,
		windows: map[string][]Interval{
			"emp-1": {{Start: day.Add(9 * time.Hour), End: day.Add(12 * time.Hour)}},
		},
		booked: map[string][]Interval{
			"emp-1": {{Start: day.Add(10 * time.Hour), End: day.Add(11 * time.Hour)}},
		},
		qualified: map[string][]string{"svc-1": {"emp-1"}},
	}

	calc := NewCalculator(view)
	slots, err := calc.ComputeSlots(context.Background(), SlotsRequest{
		Service:    massageService(60),
		EmployeeID: "emp-1",
		From:       day,
		To:         day,
		Step:       60 * time.Minute,
		Now:        day.Add(-24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("ComputeSlots: %v", err)
	}

	want := []time.Time{day.Add(9 * time.Hour), day.Add(11 * time.Hour)}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d: %v", len(want), len(slots), slots)
	}
	for i, w := range want {
		if !slots[i].Start.Equal(w) {
			t.Fatalf("slot %d: expected %v, got %v", i, w, slots[i].Start)
		}
	}
}

func TestComputeSlotsLeadTime(t *testing.T) {
	loc := mustPrague(t)
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, loc)

	view := &fakeView{
		loc: loc,
		windows: map[string][]Interval{
			"emp-1": {{Start: day.Add(9 * time.Hour), End: day.Add(12 * time.Hour)}},
		},
		qualified: map[string][]string{"svc-1": {"emp-1"}},
	}

	calc := NewCalculator(view)
	slots, err := calc.ComputeSlots(context.Background(), SlotsRequest{
		Service:     massageService(60),
		EmployeeID:  "emp-1",
		From:        day,
		To:          day,
		Step:        60 * time.Minute,
		Now:         day.Add(8 * time.Hour),
		MinLeadTime: 2 * time.Hour,
	})
	if err != nil {
		t.Fatalf("ComputeSlots: %v", err)
	}

	// Earliest admissible start is 10:00; 09:00 is filtered out.
	want := []time.Time{day.Add(10 * time.Hour), day.Add(11 * time.Hour)}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d: %v", len(want), len(slots), slots)
	}
	for i, w := range want {
		if !slots[i].Start.Equal(w) {
			t.Fatalf("slot %d: expected %v, got %v", i, w, slots[i].Start)
		}
	}
}

func TestComputeSlotsUnqualifiedEmployee(t *testing.T) {
	loc := mustPrague(t)
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, loc)

	view := &fakeView{
		loc:       loc,
		qualified: map[string][]string{"svc-1": {"emp-2"}},
	}

	calc := NewCalculator(view)
	_, err := calc.ComputeSlots(context.Background(), SlotsRequest{
		Service:    massageService(60),
		EmployeeID: "emp-1",
		From:       day,
		To:         day,
		Step:       30 * time.Minute,
		Now:        day,
	})
	if !errors.Is(err, ErrEmployeeNotQualified) {
		t.Fatalf("expected ErrEmployeeNotQualified, got %v", err)
	}
}

func TestComputeSlotsAllQualifiedEmployees(t *testing.T) {
	loc := mustPrague(t)
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, loc)

	view := &fakeView{
		loc: loc,
		windows: map[string][]Interval{
			"emp-1": {{Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour)}},
			"emp-2": {{Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour)}},
		},
		qualified: map[string][]string{"svc-1": {"emp-1", "emp-2"}},
	}

	calc := NewCalculator(view)
	slots, err := calc.ComputeSlots(context.Background(), SlotsRequest{
		Service: massageService(60),
		From:    day,
		To:      day,
		Step:    60 * time.Minute,
		Now:     day.Add(-24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("ComputeSlots: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected one slot per employee, got %d", len(slots))
	}
	if slots[0].EmployeeID == slots[1].EmployeeID {
		t.Fatalf("expected distinct employees, got %q twice", slots[0].EmployeeID)
	}
}

func TestComputeSlotsDeterministic(t *testing.T) {
	loc := mustPrague(t)
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, loc)

	view := &fakeView{
		loc: loc,
		windows: map[string][]Interval{
			"emp-1": {{Start: day.Add(9 * time.Hour), End: day.Add(17 * time.Hour)}},
		},
		booked: map[string][]Interval{
			"emp-1": {{Start: day.Add(13 * time.Hour), End: day.Add(14 * time.Hour)}},
		},
		qualified: map[string][]string{"svc-1": {"emp-1"}},
	}

	calc := NewCalculator(view)
	req := SlotsRequest{
		Service:    massageService(90),
		EmployeeID: "emp-1",
		From:       day,
		To:         day.AddDate(0, 0, 2),
		Step:       30 * time.Minute,
		Now:        day.Add(-24 * time.Hour),
	}

	first, err := calc.ComputeSlots(context.Background(), req)
	if err != nil {
		t.Fatalf("ComputeSlots: %v", err)
	}
	second, err := calc.ComputeSlots(context.Background(), req)
	if err != nil {
		t.Fatalf("ComputeSlots: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("recompute changed slot count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("slot %d differs between runs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestComputeSlotsFullDayAroundApprovedBooking(t *testing.T) {
	loc := mustPrague(t)
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, loc) // Monday

	// A 60-minute service over a 09:00-17:00 day with 10:00-11:00 already
	// held: every other hour is offered, 10:00 never is, and the 16:00
	// start is the last one that still ends inside the window.
	view := &fakeView{
		loc: loc,
		windows: map[string][]Interval{
			"emp-1": {{Start: day.Add(9 * time.Hour), End: day.Add(17 * time.Hour)}},
		},
		booked: map[string][]Interval{
			"emp-1": {{Start: day.Add(10 * time.Hour), End: day.Add(11 * time.Hour)}},
		},
		qualified: map[string][]string{"svc-1": {"emp-1"}},
	}

	calc := NewCalculator(view)
	slots, err := calc.ComputeSlots(context.Background(), SlotsRequest{
		Service:    massageService(60),
		EmployeeID: "emp-1",
		From:       day,
		To:         day,
		Step:       time.Hour,
		Now:        day.Add(-24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("ComputeSlots: %v", err)
	}

	wantHours := []int{9, 11, 12, 13, 14, 15, 16}
	if len(slots) != len(wantHours) {
		t.Fatalf("expected %d slots, got %d: %v", len(wantHours), len(slots), slots)
	}
	for i, h := range wantHours {
		if !slots[i].Start.Equal(day.Add(time.Duration(h) * time.Hour)) {
			t.Fatalf("slot %d: expected %02d:00, got %v", i, h, slots[i].Start)
		}
	}
	for _, s := range slots {
		if s.Start.Equal(day.Add(10 * time.Hour)) {
			t.Fatal("offered the already-booked 10:00 slot")
		}
		if s.End.After(day.Add(17 * time.Hour)) {
			t.Fatalf("slot runs past the window end: %v-%v", s.Start, s.End)
		}
	}
	last := slots[len(slots)-1]
	if !last.End.Equal(day.Add(17 * time.Hour)) {
		t.Fatalf("last slot end: expected 17:00, got %v", last.End)
	}
}
