package model

import "time"

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "PENDING"
	StatusApproved  AppointmentStatus = "APPROVED"
	StatusCanceled  AppointmentStatus = "CANCELED"
	StatusCompleted AppointmentStatus = "COMPLETED"
)

// Terminal reports whether no further status transition is allowed.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCanceled || s == StatusCompleted
}

type PaymentMethod string

const (
	PaymentOnSite  PaymentMethod = "ON_SITE"
	PaymentComgate PaymentMethod = "COMGATE"
	PaymentStripe  PaymentMethod = "STRIPE"
)

type PaymentStatus string

const (
	// PaymentStatusNotRequired marks on-site bookings: nothing is collected
	// online, settlement happens at the desk.
	PaymentStatusNotRequired PaymentStatus = "NOT_REQUIRED"
	PaymentStatusPending     PaymentStatus = "PENDING"
	PaymentStatusPaid        PaymentStatus = "PAID"
	PaymentStatusFailed      PaymentStatus = "FAILED"
)

type ServiceCategory struct {
	ID          string
	Name        string
	Description string
	Color       string
	SortOrder   int
}

type Service struct {
	ID              string
	CategoryID      string
	Name            string
	Description     string
	DurationMinutes int
	PriceCents      int64
	Currency        string
	Color           string
	Active          bool
	CreatedAt       time.Time
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

type Employee struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Notes     string
	Active    bool
	CreatedAt time.Time
}

func (e Employee) DisplayName() string {
	return e.FirstName + " " + e.LastName
}

// WorkingHours is one recurring weekly window. Minutes are wall clock in the
// business timezone: 540 = 09:00.
type WorkingHours struct {
	EmployeeID  string
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
}

type Customer struct {
	ID                string
	FirstName         string
	LastName          string
	Email             string
	Phone             string
	Note              string
	TotalAppointments int
	TotalSpentCents   int64
	CreatedAt         time.Time
}

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "PENDING"
	RegistrationConfirmed RegistrationStatus = "CONFIRMED"
	RegistrationCanceled  RegistrationStatus = "CANCELED"
)

// Event is a capacity-limited group session (workshop, seminar). It is
// booked by open registration against a head count, not through the
// per-employee slot arbiter.
type Event struct {
	ID              string
	Name            string
	Description     string
	StartsAt        time.Time
	DurationMinutes int
	PriceCents      int64
	Currency        string
	Capacity        int
	Location        string
	Instructor      string
	Category        string
	Requirements    string
	Active          bool
	// Registered counts non-canceled registrations. Populated on read
	// paths, zero elsewhere.
	Registered int
	CreatedAt  time.Time
}

func (e Event) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

type EventRegistration struct {
	ID            string
	EventID       string
	Name          string
	Email         string
	Phone         string
	Experience    string
	PaymentMethod PaymentMethod
	Status        RegistrationStatus
	ConsentAt     time.Time
	CreatedAt     time.Time
}

// Appointment snapshots the service price and duration at booking time so a
// later catalog edit never rewrites history.
type Appointment struct {
	ID              string
	ServiceID       string
	EmployeeID      string
	CustomerID      string
	StartAt         time.Time
	EndAt           time.Time
	DurationMinutes int
	PriceCents      int64
	Currency        string
	Status          AppointmentStatus
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	CreatedAt       time.Time
	CanceledAt      *time.Time
	CancelReason    string
}
