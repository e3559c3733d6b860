// Package payments talks to the external payment providers. The arbiter never
// waits on a provider; a payment is created after the appointment committed
// and settled later by webhook.
package payments

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotConfigured = errors.New("payment provider not configured")

// CreateRequest describes the charge for one committed appointment.
type CreateRequest struct {
	AppointmentID string
	AmountCents   int64
	Currency      string
	Label         string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// Session is the provider-side payment the customer is redirected to.
type Session struct {
	TransactionID string
	RedirectURL   string
}

// Verification is the provider's current verdict on a transaction.
type Verification struct {
	Paid     bool
	Settled  bool
	RawState string
}

type Provider interface {
	Name() string
	CreatePayment(ctx context.Context, req CreateRequest) (Session, error)
	// VerifyPayment pulls the transaction state from the provider. Used for
	// webhook payloads that carry no trustworthy status of their own.
	VerifyPayment(ctx context.Context, transactionID string) (Verification, error)
}

// ForName returns the configured provider implementation. An empty or
// unknown name is a configuration error surfaced at call time, not at boot,
// because the admin can switch providers at runtime.
func ForName(name string, comgate *Comgate, stripe *Stripe) (Provider, error) {
	switch name {
	case "comgate":
		if comgate == nil {
			return nil, ErrNotConfigured
		}
		return comgate, nil
	case "stripe":
		if stripe == nil {
			return nil, ErrNotConfigured
		}
		return stripe, nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q: %w", name, ErrNotConfigured)
	}
}
