package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pramenzivota/rezervace/libs/db"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/events"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/model"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/outbox"
)

const eventColumns = `
	SELECT e.id, e.name, COALESCE(e.description, ''), e.starts_at,
		e.duration_minutes, e.price_cents, e.currency, e.capacity,
		COALESCE(e.location, ''), COALESCE(e.instructor, ''),
		COALESCE(e.category, ''), COALESCE(e.requirements, ''), e.active,
		(SELECT COUNT(*) FROM event_registrations r
			WHERE r.event_id = e.id AND r.status <> 'CANCELED'),
		e.created_at
	FROM events e`

func scanEvent(row pgx.Row) (model.Event, error) {
	var ev model.Event
	err := row.Scan(&ev.ID, &ev.Name, &ev.Description, &ev.StartsAt,
		&ev.DurationMinutes, &ev.PriceCents, &ev.Currency, &ev.Capacity,
		&ev.Location, &ev.Instructor, &ev.Category, &ev.Requirements,
		&ev.Active, &ev.Registered, &ev.CreatedAt)
	return ev, err
}

// EventRepository serves the read and admin paths for group events.
// Registration itself goes through the registrar transaction in EventStore.
type EventRepository struct {
	pool *db.Pool
}

func NewEventRepository(pool *db.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// ListUpcoming returns active events that have not started yet, soonest
// first, each with its current head count.
func (r *EventRepository) ListUpcoming(ctx context.Context, now time.Time) ([]model.Event, error) {
	rows, err := r.pool.Query(ctx, eventColumns+`
		WHERE e.active AND e.starts_at >= $1
		ORDER BY e.starts_at
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ListAll returns every event including inactive and past ones. Admin view.
func (r *EventRepository) ListAll(ctx context.Context) ([]model.Event, error) {
	rows, err := r.pool.Query(ctx, eventColumns+` ORDER BY e.starts_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *EventRepository) ByID(ctx context.Context, id string) (model.Event, bool, error) {
	ev, err := scanEvent(r.pool.QueryRow(ctx, eventColumns+` WHERE e.id = $1`, id))
	if IsNotFound(err) {
		return model.Event{}, false, nil
	}
	if err != nil {
		return model.Event{}, false, err
	}
	return ev, true, nil
}

func (r *EventRepository) Create(ctx context.Context, ev model.Event) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO events
			(name, description, starts_at, duration_minutes, price_cents,
			currency, capacity, location, instructor, category, requirements)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, ev.Name, ev.Description, ev.StartsAt, ev.DurationMinutes, ev.PriceCents,
		ev.Currency, ev.Capacity, ev.Location, ev.Instructor, ev.Category,
		ev.Requirements,
	).Scan(&id)
	return id, err
}

func (r *EventRepository) Update(ctx context.Context, ev model.Event) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE events
		SET name = $2, description = $3, starts_at = $4, duration_minutes = $5,
			price_cents = $6, currency = $7, capacity = $8, location = $9,
			instructor = $10, category = $11, requirements = $12, active = $13,
			updated_at = now()
		WHERE id = $1
	`, ev.ID, ev.Name, ev.Description, ev.StartsAt, ev.DurationMinutes,
		ev.PriceCents, ev.Currency, ev.Capacity, ev.Location, ev.Instructor,
		ev.Category, ev.Requirements, ev.Active)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *EventRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE events SET active = false, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

const registrationColumns = `
	SELECT id, event_id, name, email, phone, COALESCE(experience, ''),
		payment_method, status, gdpr_consent_at, created_at
	FROM event_registrations`

func scanRegistration(row pgx.Row) (model.EventRegistration, error) {
	var reg model.EventRegistration
	var method, status string
	err := row.Scan(&reg.ID, &reg.EventID, &reg.Name, &reg.Email, &reg.Phone,
		&reg.Experience, &method, &status, &reg.ConsentAt, &reg.CreatedAt)
	if err != nil {
		return model.EventRegistration{}, err
	}
	reg.PaymentMethod = model.PaymentMethod(method)
	reg.Status = model.RegistrationStatus(status)
	return reg, nil
}

func (r *EventRepository) RegistrationsFor(ctx context.Context, eventID string) ([]model.EventRegistration, error) {
	rows, err := r.pool.Query(ctx, registrationColumns+`
		WHERE event_id = $1
		ORDER BY created_at
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EventRegistration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

// EventStore runs registrar transactions, the group-event counterpart of
// Store for the booking arbiter.
type EventStore struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewEventStore(pool *db.Pool) *EventStore {
	return &EventStore{pool: pool, outbox: outbox.NewRepository()}
}

func (s *EventStore) InTx(ctx context.Context, fn func(ctx context.Context, tx events.Tx) error) error {
	pgtx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer pgtx.Rollback(ctx)

	if err := fn(ctx, &eventTxSession{tx: pgtx, store: s}); err != nil {
		return err
	}
	return pgtx.Commit(ctx)
}

type eventTxSession struct {
	tx    pgx.Tx
	store *EventStore
}

// EventForUpdate locks the event row; concurrent registrations for the same
// event serialize here, so the head count below cannot go stale.
func (t *eventTxSession) EventForUpdate(ctx context.Context, id string) (model.Event, bool, error) {
	ev, err := scanEvent(t.tx.QueryRow(ctx, eventColumns+` WHERE e.id = $1 FOR UPDATE OF e`, id))
	if IsNotFound(err) {
		return model.Event{}, false, nil
	}
	if err != nil {
		return model.Event{}, false, err
	}
	return ev, true, nil
}

func (t *eventTxSession) RegistrationCount(ctx context.Context, eventID string) (int, error) {
	var count int
	err := t.tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM event_registrations
		WHERE event_id = $1 AND status <> 'CANCELED'
	`, eventID).Scan(&count)
	return count, err
}

func (t *eventTxSession) InsertRegistration(ctx context.Context, reg *model.EventRegistration) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO event_registrations
			(event_id, name, email, phone, experience, payment_method, status, gdpr_consent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, reg.EventID, reg.Name, reg.Email, reg.Phone, reg.Experience,
		string(reg.PaymentMethod), string(reg.Status), reg.ConsentAt,
	).Scan(&reg.ID, &reg.CreatedAt)
	if IsUniqueViolation(err) {
		return events.ErrAlreadyRegistered
	}
	return err
}

func (t *eventTxSession) InsertOutboxEvent(ctx context.Context, ev outbox.Event) error {
	return t.store.outbox.Insert(ctx, t.tx, ev)
}
