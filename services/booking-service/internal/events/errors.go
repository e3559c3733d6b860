package events

import "errors"

var (
	ErrUnknownEvent = errors.New("unknown event")

	// ErrEventFull means the head count reached capacity. The client should
	// offer the waitlist-free fallback: pick another event.
	ErrEventFull = errors.New("event is full")

	// ErrAlreadyRegistered means this email already holds a registration
	// for the event.
	ErrAlreadyRegistered = errors.New("already registered")
)

// Machine-readable reasons carried by InvalidRequestError.
const (
	ReasonMissingFields   = "missing_required_fields"
	ReasonInvalidEmail    = "invalid_email"
	ReasonConsentRequired = "gdpr_consent_required"
	ReasonUnknownPayment  = "unknown_payment_method"
	ReasonEventInactive   = "event_inactive"
	ReasonEventStarted    = "event_already_started"
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
