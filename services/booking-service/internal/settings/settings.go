package settings

import "time"

// Settings is the business-level configuration stored in the database and
// read once per request. Booking policy lives here, not in env vars, so the
// admin dashboard can change it without a redeploy.
type Settings struct {
	BusinessName string
	ContactEmail string
	ContactPhone string
	Address      string

	// Timezone is the IANA zone all wall-clock policy (working hours, lead
	// time, weekend gating) is evaluated in.
	Timezone string

	MinLeadTimeHours     int
	MaxAdvanceDays       int
	SlotStepMinutes      int
	AutoApprove          bool
	PendingBlocksSlots   bool
	AllowWeekendBookings bool
	RequirePhone         bool
	DefaultCurrency      string
	PaymentProvider      string
}

func Defaults() Settings {
	return Settings{
		BusinessName:         "Pramen života s.r.o.",
		ContactEmail:         "info@pramenzivota.cz",
		ContactPhone:         "+420 123 456 789",
		Address:              "Václavské náměstí 1, 110 00 Praha 1",
		Timezone:             "Europe/Prague",
		MinLeadTimeHours:     2,
		MaxAdvanceDays:       90,
		SlotStepMinutes:      30,
		AutoApprove:          true,
		PendingBlocksSlots:   true,
		AllowWeekendBookings: true,
		RequirePhone:         false,
		DefaultCurrency:      "CZK",
		PaymentProvider:      "comgate",
	}
}

// Location resolves the configured timezone, falling back to UTC if the zone
// database does not know it.
func (s Settings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (s Settings) MinLeadTime() time.Duration {
	if s.MinLeadTimeHours < 0 {
		return 0
	}
	return time.Duration(s.MinLeadTimeHours) * time.Hour
}

func (s Settings) SlotStep() time.Duration {
	if s.SlotStepMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(s.SlotStepMinutes) * time.Minute
}
