package availability

import (
	"testing"
	"time"
)

func at(hour, min int) time.Time {
	return time.Date(2026, time.March, 2, hour, min, 0, 0, time.UTC)
}

func iv(startHour, startMin, endHour, endMin int) Interval {
	return Interval{Start: at(startHour, startMin), End: at(endHour, endMin)}
}

func TestMerge(t *testing.T) {
	cases := []struct {
		name string
		in   []Interval
		want []Interval
	}{
		{
			name: "empty",
			in:   nil,
			want: nil,
		},
		{
			name: "disjoint kept apart",
			in:   []Interval{iv(9, 0, 10, 0), iv(11, 0, 12, 0)},
			want: []Interval{iv(9, 0, 10, 0), iv(11, 0, 12, 0)},
		},
		{
			name: "overlapping coalesced",
			in:   []Interval{iv(9, 0, 10, 30), iv(10, 0, 11, 0)},
			want: []Interval{iv(9, 0, 11, 0)},
		},
		{
			name: "touching coalesced",
			in:   []Interval{iv(9, 0, 10, 0), iv(10, 0, 11, 0)},
			want: []Interval{iv(9, 0, 11, 0)},
		},
		{
			name: "unsorted input",
			in:   []Interval{iv(13, 0, 14, 0), iv(9, 0, 10, 0), iv(9, 30, 11, 0)},
			want: []Interval{iv(9, 0, 11, 0), iv(13, 0, 14, 0)},
		},
		{
			name: "contained interval absorbed",
			in:   []Interval{iv(9, 0, 12, 0), iv(10, 0, 11, 0)},
			want: []Interval{iv(9, 0, 12, 0)},
		},
		{
			name: "invalid intervals dropped",
			in:   []Interval{iv(10, 0, 10, 0), iv(11, 0, 9, 0), iv(9, 0, 10, 0)},
			want: []Interval{iv(9, 0, 10, 0)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Merge(tc.in)
			assertIntervals(t, got, tc.want)
		})
	}
}

func TestSubtract(t *testing.T) {
	window := iv(9, 0, 17, 0)

	cases := []struct {
		name string
		busy []Interval
		want []Interval
	}{
		{
			name: "no busy returns window",
			busy: nil,
			want: []Interval{window},
		},
		{
			name: "middle booking splits window",
			busy: []Interval{iv(12, 0, 13, 0)},
			want: []Interval{iv(9, 0, 12, 0), iv(13, 0, 17, 0)},
		},
		{
			name: "booking at window start",
			busy: []Interval{iv(9, 0, 10, 0)},
			want: []Interval{iv(10, 0, 17, 0)},
		},
		{
			name: "booking at window end",
			busy: []Interval{iv(16, 0, 17, 0)},
			want: []Interval{iv(9, 0, 16, 0)},
		},
		{
			name: "busy overhanging both edges",
			busy: []Interval{iv(8, 0, 9, 30), iv(16, 30, 18, 0)},
			want: []Interval{iv(9, 30, 16, 30)},
		},
		{
			name: "busy outside window ignored",
			busy: []Interval{iv(7, 0, 8, 0), iv(18, 0, 19, 0)},
			want: []Interval{window},
		},
		{
			name: "adjacent busy merged before subtraction",
			busy: []Interval{iv(10, 0, 11, 0), iv(11, 0, 12, 0)},
			want: []Interval{iv(9, 0, 10, 0), iv(12, 0, 17, 0)},
		},
		{
			name: "fully booked",
			busy: []Interval{iv(9, 0, 17, 0)},
			want: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Subtract(window, tc.busy)
			assertIntervals(t, got, tc.want)
		})
	}
}

func TestSubtractInvalidWindow(t *testing.T) {
	if got := Subtract(iv(17, 0, 9, 0), nil); got != nil {
		t.Fatalf("expected nil for inverted window, got %v", got)
	}
}

func TestSlotStarts(t *testing.T) {
	free := iv(9, 0, 12, 0)

	got := SlotStarts(free, 2*time.Hour, 30*time.Minute)
	want := []time.Time{at(9, 0), at(9, 30), at(10, 0)}
	if len(got) != len(want) {
		t.Fatalf("expected %d starts, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("start %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestSlotStartsExactFit(t *testing.T) {
	// A booking ending exactly at the free end still fits.
	got := SlotStarts(iv(9, 0, 10, 0), time.Hour, 30*time.Minute)
	if len(got) != 1 || !got[0].Equal(at(9, 0)) {
		t.Fatalf("expected single 09:00 start, got %v", got)
	}
}

func TestSlotStartsTooShort(t *testing.T) {
	if got := SlotStarts(iv(9, 0, 10, 0), 90*time.Minute, 30*time.Minute); got != nil {
		t.Fatalf("expected no starts, got %v", got)
	}
}

func assertIntervals(t *testing.T, got, want []Interval) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d intervals, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if !got[i].Start.Equal(want[i].Start) || !got[i].End.Equal(want[i].End) {
			t.Fatalf("interval %d: expected %v-%v, got %v-%v",
				i, want[i].Start, want[i].End, got[i].Start, got[i].End)
		}
	}
}
