// Package events handles registration for capacity-limited group sessions.
// The registrar locks the event row, counts heads against capacity and
// inserts the registration in one transaction, so a full event can never
// admit two racing participants past its limit.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/pramenzivota/rezervace/services/booking-service/internal/model"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/outbox"
)

type Request struct {
	EventID       string
	Name          string
	Email         string
	Phone         string
	Experience    string
	PaymentMethod model.PaymentMethod
	// Consent records GDPR agreement. Registration is refused without it.
	Consent bool
}

// Store provides the transactional boundary, analogous to the booking
// arbiter's store.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the storage surface available inside one registration transaction.
type Tx interface {
	// EventForUpdate locks the event row so the capacity count below is
	// serialized across concurrent registrations.
	EventForUpdate(ctx context.Context, id string) (model.Event, bool, error)
	RegistrationCount(ctx context.Context, eventID string) (int, error)

	// InsertRegistration assigns reg.ID and CreatedAt. Returns
	// ErrAlreadyRegistered when the (event, email) uniqueness is violated.
	InsertRegistration(ctx context.Context, reg *model.EventRegistration) error

	InsertOutboxEvent(ctx context.Context, ev outbox.Event) error
}

type Registrar struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewRegistrar(store Store, logger *slog.Logger) *Registrar {
	return &Registrar{store: store, logger: logger, now: time.Now}
}

// WithClock overrides the registrar's clock. Test hook.
func (r *Registrar) WithClock(now func() time.Time) *Registrar {
	r.now = now
	return r
}

// Register admits one participant to the event, or explains why not. Card
// registrations stay PENDING until the payment completes; on-site ones are
// confirmed immediately.
func (r *Registrar) Register(ctx context.Context, req Request) (*model.EventRegistration, error) {
	req = normalizeRequest(req)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var result model.EventRegistration
	err := r.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		ev, ok, err := tx.EventForUpdate(ctx, req.EventID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownEvent
		}
		if !ev.Active {
			return invalid(ReasonEventInactive)
		}
		now := r.now()
		if ev.StartsAt.Before(now) {
			return invalid(ReasonEventStarted)
		}

		count, err := tx.RegistrationCount(ctx, ev.ID)
		if err != nil {
			return err
		}
		if count >= ev.Capacity {
			return ErrEventFull
		}

		status := model.RegistrationConfirmed
		if req.PaymentMethod != model.PaymentOnSite {
			status = model.RegistrationPending
		}
		reg := model.EventRegistration{
			EventID:       ev.ID,
			Name:          req.Name,
			Email:         req.Email,
			Phone:         req.Phone,
			Experience:    req.Experience,
			PaymentMethod: req.PaymentMethod,
			Status:        status,
			ConsentAt:     now.UTC(),
		}
		if err := tx.InsertRegistration(ctx, &reg); err != nil {
			return err
		}

		// The notification consumer renders from the event alone, so the
		// session details and participant contacts ride along.
		payload, err := json.Marshal(map[string]any{
			"registration_id":   reg.ID,
			"event_id":          ev.ID,
			"event_name":        ev.Name,
			"starts_at":         ev.StartsAt.UTC().Format(time.RFC3339),
			"location":          ev.Location,
			"instructor":        ev.Instructor,
			"participant_name":  reg.Name,
			"participant_email": reg.Email,
			"participant_phone": reg.Phone,
			"status":            string(reg.Status),
			"price_cents":       ev.PriceCents,
			"currency":          ev.Currency,
			"payment_method":    string(reg.PaymentMethod),
		})
		if err != nil {
			return err
		}
		if err := tx.InsertOutboxEvent(ctx, outbox.Event{
			AggregateType: "event_registration",
			AggregateID:   reg.ID,
			EventType:     outbox.EventRegistrationCreated,
			Payload:       payload,
		}); err != nil {
			return err
		}

		result = reg
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("event registration committed",
		"registration_id", result.ID,
		"event_id", result.EventID,
		"status", string(result.Status),
	)
	return &result, nil
}

func normalizeRequest(req Request) Request {
	req.EventID = strings.TrimSpace(req.EventID)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	req.Experience = strings.TrimSpace(req.Experience)
	if req.PaymentMethod == "" {
		req.PaymentMethod = model.PaymentOnSite
	}
	return req
}

func validateRequest(req Request) error {
	if req.EventID == "" || req.Name == "" || req.Email == "" || req.Phone == "" {
		return invalid(ReasonMissingFields)
	}
	if !strings.Contains(req.Email, "@") {
		return invalid(ReasonInvalidEmail)
	}
	if !req.Consent {
		return invalid(ReasonConsentRequired)
	}
	switch req.PaymentMethod {
	case model.PaymentOnSite, model.PaymentComgate, model.PaymentStripe:
	default:
		return invalid(ReasonUnknownPayment)
	}
	return nil
}
