package arbiter

import "errors"

var (
	// ErrSlotConflict means the proposed interval overlaps an appointment
	// that holds its slot. Surfaced to the client as "pick another time";
	// never retried automatically with the same slot.
	ErrSlotConflict = errors.New("slot conflict")

	ErrUnknownService     = errors.New("unknown service")
	ErrUnknownEmployee    = errors.New("unknown employee")
	ErrUnknownAppointment = errors.New("unknown appointment")
)

// Machine-readable reasons carried by InvalidRequestError.
const (
	ReasonMissingFields       = "missing_required_fields"
	ReasonInvalidEmail        = "invalid_email"
	ReasonPhoneRequired       = "phone_required"
	ReasonUnknownPayment      = "unknown_payment_method"
	ReasonServiceInactive     = "service_inactive"
	ReasonEmployeeInactive    = "employee_inactive"
	ReasonNotQualified        = "employee_not_qualified"
	ReasonLeadTime            = "inside_lead_time"
	ReasonTooFarAhead         = "beyond_advance_limit"
	ReasonWeekendClosed       = "weekend_closed"
	ReasonOutsideWorkingHours = "outside_working_hours"
	ReasonInvalidTransition   = "invalid_status_transition"
)

// InvalidRequestError is recoverable by the caller correcting input.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Reason
}

func invalid(reason string) error {
	return &InvalidRequestError{Reason: reason}
}

// InvalidReason extracts the reason code, or "" if err is not an
// InvalidRequestError.
func InvalidReason(err error) string {
	var ire *InvalidRequestError
	if errors.As(err, &ire) {
		return ire.Reason
	}
	return ""
}
