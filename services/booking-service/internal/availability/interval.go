package availability

import (
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

func (iv Interval) IsValid() bool {
	return iv.End.After(iv.Start)
}

// Overlaps reports whether two half-open intervals share any instant.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether other lies entirely within iv.
func (iv Interval) Contains(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

// Merge sorts intervals by start and coalesces overlapping or touching ones.
// Invalid (empty or inverted) intervals are dropped. The input is not mutated.
func Merge(intervals []Interval) []Interval {
	valid := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.IsValid() {
			valid = append(valid, iv)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].Start.Before(valid[j].Start) })

	merged := []Interval{valid[0]}
	for _, iv := range valid[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Subtract returns the parts of window not covered by busy, left to right.
// busy need not be sorted or disjoint; it is merged first. The result is
// sorted, pairwise disjoint, and never extends outside window.
func Subtract(window Interval, busy []Interval) []Interval {
	if !window.IsValid() {
		return nil
	}

	var free []Interval
	cursor := window.Start
	for _, b := range Merge(busy) {
		if !b.End.After(window.Start) || !b.Start.Before(window.End) {
			continue
		}
		if b.Start.After(cursor) {
			end := b.Start
			if end.After(window.End) {
				end = window.End
			}
			if end.After(cursor) {
				free = append(free, Interval{Start: cursor, End: end})
			}
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if cursor.Before(window.End) {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free
}

// SlotStarts emits candidate start times at step granularity such that a
// booking of length duration still fits inside free.
func SlotStarts(free Interval, duration, step time.Duration) []time.Time {
	if duration <= 0 || step <= 0 || !free.IsValid() {
		return nil
	}
	var starts []time.Time
	for t := free.Start; !t.Add(duration).After(free.End); t = t.Add(step) {
		starts = append(starts, t)
	}
	return starts
}
