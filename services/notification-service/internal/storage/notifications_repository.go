package storage

import (
	"context"
	"encoding/json"

	"github.com/pramenzivota/rezervace/libs/db"
)

// Notification is one delivery attempt, recorded whether it succeeded or not.
type Notification struct {
	AppointmentID string
	Kind          string
	Channel       string
	Recipient     string
	Payload       map[string]any
	Status        string
	ErrorReason   string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO notifications (appointment_id, kind, channel, recipient, payload, status, error_reason)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
	`, n.AppointmentID, n.Kind, n.Channel, n.Recipient, payload, n.Status, n.ErrorReason)
	return err
}
