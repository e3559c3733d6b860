package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pramenzivota/rezervace/libs/db"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/model"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/outbox"
)

// PaymentRecord tracks one payment attempt at an external provider. The
// provider transaction id is what the webhook hands back to correlate.
type PaymentRecord struct {
	ID                    string
	AppointmentID         string
	Provider              string
	ProviderTransactionID string
	AmountCents           int64
	Currency              string
	Status                model.PaymentStatus
	RedirectURL           string
	CreatedAt             time.Time
}

type PaymentRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewPaymentRepository(pool *db.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool, outbox: outbox.NewRepository()}
}

func (r *PaymentRepository) Create(ctx context.Context, rec PaymentRecord) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payments
			(id, appointment_id, provider, provider_transaction_id, amount_cents, currency, status, redirect_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id, rec.AppointmentID, rec.Provider, rec.ProviderTransactionID,
		rec.AmountCents, rec.Currency, string(rec.Status), rec.RedirectURL)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *PaymentRepository) ByProviderTransactionID(ctx context.Context, provider, providerTxID string) (PaymentRecord, bool, error) {
	var rec PaymentRecord
	var status string
	err := r.pool.QueryRow(ctx, `
		SELECT id, appointment_id, provider, provider_transaction_id,
			amount_cents, currency, status, COALESCE(redirect_url, ''), created_at
		FROM payments
		WHERE provider = $1 AND provider_transaction_id = $2
	`, provider, providerTxID).Scan(
		&rec.ID, &rec.AppointmentID, &rec.Provider, &rec.ProviderTransactionID,
		&rec.AmountCents, &rec.Currency, &status, &rec.RedirectURL, &rec.CreatedAt)
	if IsNotFound(err) {
		return PaymentRecord{}, false, nil
	}
	if err != nil {
		return PaymentRecord{}, false, err
	}
	rec.Status = model.PaymentStatus(status)
	return rec, true, nil
}

// Settle records the provider's final verdict. On success the appointment is
// marked paid and a payment completed event is queued, all in one
// transaction. Settling an already settled payment is a no-op, so webhook
// redeliveries are safe.
func (r *PaymentRepository) Settle(ctx context.Context, provider, providerTxID string, paid bool) (PaymentRecord, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return PaymentRecord{}, false, err
	}
	defer tx.Rollback(ctx)

	var rec PaymentRecord
	var status string
	err = tx.QueryRow(ctx, `
		SELECT id, appointment_id, provider, provider_transaction_id,
			amount_cents, currency, status, COALESCE(redirect_url, ''), created_at
		FROM payments
		WHERE provider = $1 AND provider_transaction_id = $2
		FOR UPDATE
	`, provider, providerTxID).Scan(
		&rec.ID, &rec.AppointmentID, &rec.Provider, &rec.ProviderTransactionID,
		&rec.AmountCents, &rec.Currency, &status, &rec.RedirectURL, &rec.CreatedAt)
	if IsNotFound(err) {
		return PaymentRecord{}, false, nil
	}
	if err != nil {
		return PaymentRecord{}, false, err
	}
	rec.Status = model.PaymentStatus(status)
	if rec.Status != model.PaymentStatusPending {
		return rec, true, nil
	}

	newStatus := model.PaymentStatusFailed
	if paid {
		newStatus = model.PaymentStatusPaid
	}
	if _, err := tx.Exec(ctx, `
		UPDATE payments SET status = $2, updated_at = now() WHERE id = $1
	`, rec.ID, string(newStatus)); err != nil {
		return PaymentRecord{}, false, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE appointments SET payment_status = $2, updated_at = now() WHERE id = $1
	`, rec.AppointmentID, string(newStatus)); err != nil {
		return PaymentRecord{}, false, err
	}

	if paid {
		payload, err := json.Marshal(map[string]any{
			"payment_id":              rec.ID,
			"appointment_id":          rec.AppointmentID,
			"provider":                rec.Provider,
			"provider_transaction_id": rec.ProviderTransactionID,
			"amount_cents":            rec.AmountCents,
			"currency":                rec.Currency,
		})
		if err != nil {
			return PaymentRecord{}, false, err
		}
		if err := r.outbox.Insert(ctx, tx, outbox.Event{
			AggregateType: "payment",
			AggregateID:   rec.ID,
			EventType:     outbox.EventPaymentCompleted,
			Payload:       payload,
		}); err != nil {
			return PaymentRecord{}, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return PaymentRecord{}, false, err
	}
	rec.Status = newStatus
	return rec, true, nil
}
