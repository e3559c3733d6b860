package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pramenzivota/rezervace/services/booking-service/internal/model"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/payments"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/storage"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// PaymentsHandler creates provider payments for committed appointments and
// settles them from provider callbacks. A payment failure never touches the
// appointment's slot; it only changes payment status.
type PaymentsHandler struct {
	paymentsRepo *storage.PaymentRepository
	appointments *storage.AppointmentRepository
	customers    *storage.CustomerRepository
	settingsRepo *storage.SettingsRepository
	comgate      *payments.Comgate
	stripeProv   *payments.Stripe
	logger       *slog.Logger

	stripeWebhookSecret    string
	stripeWebhookTolerance time.Duration
}

type PaymentsConfig struct {
	StripeWebhookSecret    string
	StripeWebhookTolerance time.Duration
}

func NewPaymentsHandler(
	paymentsRepo *storage.PaymentRepository,
	appointments *storage.AppointmentRepository,
	customers *storage.CustomerRepository,
	settingsRepo *storage.SettingsRepository,
	comgate *payments.Comgate,
	stripeProv *payments.Stripe,
	logger *slog.Logger,
	cfg PaymentsConfig,
) *PaymentsHandler {
	tolerance := cfg.StripeWebhookTolerance
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	return &PaymentsHandler{
		paymentsRepo:           paymentsRepo,
		appointments:           appointments,
		customers:              customers,
		settingsRepo:           settingsRepo,
		comgate:                comgate,
		stripeProv:             stripeProv,
		logger:                 logger,
		stripeWebhookSecret:    strings.TrimSpace(cfg.StripeWebhookSecret),
		stripeWebhookTolerance: tolerance,
	}
}

type createPaymentRequest struct {
	AppointmentID string `json:"appointment_id"`
	SuccessURL    string `json:"success_url"`
	CancelURL     string `json:"cancel_url"`
}

// Create opens a provider payment for an appointment and returns the URL the
// customer pays at. The provider comes from settings, not the request.
func (h *PaymentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		strings.TrimSpace(req.AppointmentID) == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "appointment_id is required")
		return
	}

	appt, ok, err := h.appointments.ByID(r.Context(), strings.TrimSpace(req.AppointmentID))
	if err != nil {
		h.logger.Error("load appointment failed", "err", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "UNKNOWN_APPOINTMENT", "")
		return
	}
	if appt.Status == model.StatusCanceled {
		writeError(w, http.StatusConflict, "APPOINTMENT_CANCELED", "")
		return
	}
	if appt.PaymentStatus == model.PaymentStatusPaid {
		writeError(w, http.StatusConflict, "ALREADY_PAID", "")
		return
	}
	if appt.PaymentMethod == model.PaymentOnSite {
		writeError(w, http.StatusConflict, "ON_SITE_PAYMENT", "")
		return
	}

	cfg, err := h.settingsRepo.Get(r.Context())
	if err != nil {
		h.logger.Error("load settings failed", "err", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "")
		return
	}
	provider, err := payments.ForName(cfg.PaymentProvider, h.comgate, h.stripeProv)
	if err != nil {
		h.logger.Warn("payment provider unavailable", "provider", cfg.PaymentProvider, "err", err)
		writeError(w, http.StatusServiceUnavailable, "PAYMENTS_NOT_CONFIGURED", "")
		return
	}

	customerEmail := ""
	if c, found, err := h.customers.ByID(r.Context(), appt.CustomerID); err == nil && found {
		customerEmail = c.Email
	}

	session, err := provider.CreatePayment(r.Context(), payments.CreateRequest{
		AppointmentID: appt.ID,
		AmountCents:   appt.PriceCents,
		Currency:      appt.Currency,
		Label:         cfg.BusinessName + " " + appt.StartAt.In(cfg.Location()).Format("2.1.2006 15:04"),
		CustomerEmail: customerEmail,
		SuccessURL:    strings.TrimSpace(req.SuccessURL),
		CancelURL:     strings.TrimSpace(req.CancelURL),
	})
	if err != nil {
		h.logger.Error("provider payment create failed", "provider", provider.Name(), "err", err)
		writeError(w, http.StatusBadGateway, "PAYMENT_CREATE_FAILED", "")
		return
	}

	if _, err := h.paymentsRepo.Create(r.Context(), storage.PaymentRecord{
		AppointmentID:         appt.ID,
		Provider:              provider.Name(),
		ProviderTransactionID: session.TransactionID,
		AmountCents:           appt.PriceCents,
		Currency:              appt.Currency,
		Status:                model.PaymentStatusPending,
		RedirectURL:           session.RedirectURL,
	}); err != nil {
		h.logger.Error("persist payment failed", "err", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"transaction_id": session.TransactionID,
		"payment_url":    session.RedirectURL,
	})
}

// StripeWebhook settles Stripe payments. No JWT auth; the signature is the
// auth. The gateway exposes this path publicly.
func (h *PaymentsHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.stripeWebhookSecret == "" {
		http.Error(w, "stripe webhook not configured", http.StatusServiceUnavailable)
		return
	}
	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		http.Error(w, "missing Stripe-Signature header", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	evt, err := webhook.ConstructEventWithTolerance(body, sigHeader, h.stripeWebhookSecret, h.stripeWebhookTolerance)
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	h.logger.Info("payment provider event received",
		"provider", "stripe",
		"provider_event_id", evt.ID,
		"event_type", string(evt.Type),
	)

	switch string(evt.Type) {
	case "checkout.session.completed":
		h.settleStripeSession(w, r, evt.Data.Raw, true)
	case "checkout.session.expired":
		h.settleStripeSession(w, r, evt.Data.Raw, false)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"status": "ignored"})
	}
}

func (h *PaymentsHandler) settleStripeSession(w http.ResponseWriter, r *http.Request, raw []byte, paid bool) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		h.logger.Error("stripe: invalid checkout session payload", "err", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	rec, found, err := h.paymentsRepo.Settle(r.Context(), "stripe", session.ID, paid)
	if err != nil {
		h.logger.Error("settle payment failed", "err", err, "transaction_id", session.ID)
		http.Error(w, "settle failed", http.StatusInternalServerError)
		return
	}
	if !found {
		h.logger.Warn("stripe webhook for unknown transaction", "transaction_id", session.ID)
		writeJSON(w, http.StatusOK, map[string]any{"status": "unknown_transaction"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": string(rec.Status)})
}

// ComgateCallback settles Comgate payments. The pushed form carries no
// signature, so the status is re-read from the Comgate API before anything
// is recorded.
func (h *PaymentsHandler) ComgateCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.comgate == nil {
		http.Error(w, "comgate not configured", http.StatusServiceUnavailable)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	transID := strings.TrimSpace(r.PostFormValue("transId"))
	if transID == "" {
		http.Error(w, "missing transId", http.StatusBadRequest)
		return
	}

	verification, err := h.comgate.VerifyPayment(r.Context(), transID)
	if err != nil {
		h.logger.Error("comgate verify failed", "err", err, "transaction_id", transID)
		http.Error(w, "verify failed", http.StatusBadGateway)
		return
	}
	if !verification.Settled {
		writeJSON(w, http.StatusOK, map[string]any{"status": "pending"})
		return
	}

	rec, found, err := h.paymentsRepo.Settle(r.Context(), "comgate", transID, verification.Paid)
	if err != nil {
		h.logger.Error("settle payment failed", "err", err, "transaction_id", transID)
		http.Error(w, "settle failed", http.StatusInternalServerError)
		return
	}
	if !found {
		h.logger.Warn("comgate callback for unknown transaction", "transaction_id", transID)
		writeJSON(w, http.StatusOK, map[string]any{"status": "unknown_transaction"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": string(rec.Status)})
}
