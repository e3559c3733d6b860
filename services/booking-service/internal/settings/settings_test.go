package settings

import (
	"testing"
	"time"
)

func TestLocationFallsBackToUTC(t *testing.T) {
	s := Settings{Timezone: "Not/AZone"}
	if loc := s.Location(); loc != time.UTC {
		t.Fatalf("expected UTC fallback, got %v", loc)
	}
	s.Timezone = "Europe/Prague"
	if loc := s.Location(); loc.String() != "Europe/Prague" {
		t.Fatalf("expected Europe/Prague, got %v", loc)
	}
}

func TestDerivedDurations(t *testing.T) {
	s := Settings{MinLeadTimeHours: 2, SlotStepMinutes: 15}
	if s.MinLeadTime() != 2*time.Hour {
		t.Fatalf("unexpected lead time %v", s.MinLeadTime())
	}
	if s.SlotStep() != 15*time.Minute {
		t.Fatalf("unexpected step %v", s.SlotStep())
	}

	s = Settings{MinLeadTimeHours: -1, SlotStepMinutes: 0}
	if s.MinLeadTime() != 0 {
		t.Fatalf("expected zero lead time, got %v", s.MinLeadTime())
	}
	if s.SlotStep() != 30*time.Minute {
		t.Fatalf("expected default 30m step, got %v", s.SlotStep())
	}
}
