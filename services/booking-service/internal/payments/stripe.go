package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
)

// Stripe creates one-off Checkout Sessions for appointment payments.
type Stripe struct {
	secretKey string
}

func NewStripe(secretKey string) *Stripe {
	return &Stripe{secretKey: secretKey}
}

func (s *Stripe) Name() string { return "stripe" }

func (s *Stripe) CreatePayment(ctx context.Context, req CreateRequest) (Session, error) {
	if s.secretKey == "" {
		return Session{}, ErrNotConfigured
	}

	// Stripe uses a global API key. Keep usage limited to this call.
	stripe.Key = s.secretKey

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.AppointmentID),
		CustomerEmail:     stripe.String(req.CustomerEmail),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Label),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"appointment_id": req.AppointmentID,
		},
	}
	params.IdempotencyKey = stripe.String("appt:" + req.AppointmentID)

	sess, err := checkoutsession.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("stripe checkout session create: %w", err)
	}
	return Session{TransactionID: sess.ID, RedirectURL: sess.URL}, nil
}

// VerifyPayment checks the session's payment status directly with Stripe.
// The webhook normally settles payments; this is the fallback path for the
// admin "re-check" action.
func (s *Stripe) VerifyPayment(ctx context.Context, transactionID string) (Verification, error) {
	if s.secretKey == "" {
		return Verification{}, ErrNotConfigured
	}
	stripe.Key = s.secretKey

	sess, err := checkoutsession.Get(transactionID, nil)
	if err != nil {
		return Verification{}, fmt.Errorf("stripe checkout session get: %w", err)
	}
	return Verification{
		Paid:     sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Settled:  sess.Status != stripe.CheckoutSessionStatusOpen,
		RawState: string(sess.PaymentStatus),
	}, nil
}
