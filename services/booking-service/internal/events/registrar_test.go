package events

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pramenzivota/rezervace/services/booking-service/internal/model"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/outbox"
)

// memStore serializes transactions under one mutex and rolls mutable state
// back when fn fails, mimicking the database transaction semantics.
type memStore struct {
	mu     sync.Mutex
	events map[string]model.Event
	regs   []model.EventRegistration
	outbox []outbox.Event
	seq    int
}

func newMemStore() *memStore {
	return &memStore{events: make(map[string]model.Event)}
}

type memSnapshot struct {
	regs   []model.EventRegistration
	outbox []outbox.Event
	seq    int
}

func (s *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		regs:   slices.Clone(s.regs),
		outbox: slices.Clone(s.outbox),
		seq:    s.seq,
	}
	if err := fn(ctx, s); err != nil {
		s.regs, s.outbox, s.seq = snap.regs, snap.outbox, snap.seq
		return err
	}
	return nil
}

func (s *memStore) EventForUpdate(_ context.Context, id string) (model.Event, bool, error) {
	ev, ok := s.events[id]
	return ev, ok, nil
}

func (s *memStore) RegistrationCount(_ context.Context, eventID string) (int, error) {
	count := 0
	for _, reg := range s.regs {
		if reg.EventID == eventID && reg.Status != model.RegistrationCanceled {
			count++
		}
	}
	return count, nil
}

func (s *memStore) InsertRegistration(_ context.Context, reg *model.EventRegistration) error {
	for _, existing := range s.regs {
		if existing.EventID == reg.EventID && existing.Email == reg.Email {
			return ErrAlreadyRegistered
		}
	}
	s.seq++
	reg.ID = fmt.Sprintf("reg-%d", s.seq)
	reg.CreatedAt = time.Now()
	s.regs = append(s.regs, *reg)
	return nil
}

func (s *memStore) InsertOutboxEvent(_ context.Context, ev outbox.Event) error {
	s.outbox = append(s.outbox, ev)
	return nil
}

const testEvent = "evt-breathwork"

func seededStore(capacity int) *memStore {
	s := newMemStore()
	s.events[testEvent] = model.Event{
		ID: testEvent, Name: "Večer dechových technik",
		StartsAt:        eventStart(),
		DurationMinutes: 120, PriceCents: 50000, Currency: "CZK",
		Capacity: capacity, Location: "Studio Pramen", Instructor: "Jana Nováková",
		Active: true,
	}
	return s
}

func eventStart() time.Time {
	loc, err := time.LoadLocation("Europe/Prague")
	if err != nil {
		panic(err)
	}
	return time.Date(2026, time.March, 2, 18, 0, 0, 0, loc)
}

func testRegistrar(s *memStore) *Registrar {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := eventStart().Add(-72 * time.Hour)
	return NewRegistrar(s, logger).WithClock(func() time.Time { return now })
}

func request(email string) Request {
	return Request{
		EventID: testEvent,
		Name:    "Petr Dvořák",
		Email:   email,
		Phone:   "+420777123456",
		Consent: true,
	}
}

func TestRegisterSuccess(t *testing.T) {
	store := seededStore(10)
	reg, err := testRegistrar(store).Register(context.Background(), request("petr@example.com"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if reg.ID == "" {
		t.Fatal("expected assigned registration id")
	}
	if reg.Status != model.RegistrationConfirmed {
		t.Fatalf("expected CONFIRMED for on-site payment, got %s", reg.Status)
	}
	if reg.ConsentAt.IsZero() {
		t.Fatal("expected recorded consent timestamp")
	}

	if len(store.outbox) != 1 {
		t.Fatalf("expected one outbox event, got %d", len(store.outbox))
	}
	ev := store.outbox[0]
	if ev.EventType != outbox.EventRegistrationCreated || ev.AggregateID != reg.ID {
		t.Fatalf("unexpected outbox event: %+v", ev)
	}
	// The notification consumer renders the confirmation from this payload.
	payload := string(ev.Payload)
	for _, want := range []string{"petr@example.com", "Večer dechových technik", "Studio Pramen"} {
		if !strings.Contains(payload, want) {
			t.Fatalf("registration payload is missing %q: %s", want, payload)
		}
	}
}

func TestRegisterCardPaymentStaysPending(t *testing.T) {
	store := seededStore(10)
	req := request("petr@example.com")
	req.PaymentMethod = model.PaymentComgate

	reg, err := testRegistrar(store).Register(context.Background(), req)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.Status != model.RegistrationPending {
		t.Fatalf("expected PENDING until the payment completes, got %s", reg.Status)
	}
}

func TestRegisterFullEvent(t *testing.T) {
	store := seededStore(2)
	r := testRegistrar(store)

	for i := 0; i < 2; i++ {
		if _, err := r.Register(context.Background(), request(fmt.Sprintf("p%d@example.com", i))); err != nil {
			t.Fatalf("Register %d: %v", i, err)
		}
	}

	_, err := r.Register(context.Background(), request("late@example.com"))
	if err != ErrEventFull {
		t.Fatalf("expected ErrEventFull, got %v", err)
	}
	if len(store.regs) != 2 {
		t.Fatalf("expected the failed registration rolled back, got %d rows", len(store.regs))
	}
	if len(store.outbox) != 2 {
		t.Fatalf("expected no outbox event for the refused registration, got %d", len(store.outbox))
	}
}

func TestRegisterConcurrentCapacityOneWins(t *testing.T) {
	store := seededStore(1)
	r := testRegistrar(store)

	const racers = 8
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.Register(context.Background(), request(fmt.Sprintf("racer%d@example.com", i)))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	won, full := 0, 0
	for err := range errs {
		switch err {
		case nil:
			won++
		case ErrEventFull:
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 || full != racers-1 {
		t.Fatalf("expected exactly one admitted racer, got %d admitted / %d refused", won, full)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := seededStore(10)
	r := testRegistrar(store)

	if _, err := r.Register(context.Background(), request("petr@example.com")); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := r.Register(context.Background(), request("petr@example.com")); err != ErrAlreadyRegistered {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
}

func TestRegisterUnknownEvent(t *testing.T) {
	store := seededStore(10)
	req := request("petr@example.com")
	req.EventID = "evt-missing"

	if _, err := testRegistrar(store).Register(context.Background(), req); err != ErrUnknownEvent {
		t.Fatalf("expected ErrUnknownEvent, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Request)
		seed   func(*memStore)
		reason string
	}{
		{
			name:   "missing name",
			mutate: func(r *Request) { r.Name = "  " },
			reason: ReasonMissingFields,
		},
		{
			name:   "missing phone",
			mutate: func(r *Request) { r.Phone = "" },
			reason: ReasonMissingFields,
		},
		{
			name:   "bad email",
			mutate: func(r *Request) { r.Email = "not-an-email" },
			reason: ReasonInvalidEmail,
		},
		{
			name:   "no consent",
			mutate: func(r *Request) { r.Consent = false },
			reason: ReasonConsentRequired,
		},
		{
			name:   "unknown payment method",
			mutate: func(r *Request) { r.PaymentMethod = "BARTER" },
			reason: ReasonUnknownPayment,
		},
		{
			name: "inactive event",
			seed: func(s *memStore) {
				ev := s.events[testEvent]
				ev.Active = false
				s.events[testEvent] = ev
			},
			reason: ReasonEventInactive,
		},
		{
			name: "event already started",
			seed: func(s *memStore) {
				ev := s.events[testEvent]
				ev.StartsAt = eventStart().Add(-100 * time.Hour)
				s.events[testEvent] = ev
			},
			reason: ReasonEventStarted,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := seededStore(10)
			if tc.seed != nil {
				tc.seed(store)
			}
			req := request("petr@example.com")
			if tc.mutate != nil {
				tc.mutate(&req)
			}

			_, err := testRegistrar(store).Register(context.Background(), req)
			if InvalidReason(err) != tc.reason {
				t.Fatalf("expected reason %q, got %v", tc.reason, err)
			}
			if len(store.regs) != 0 {
				t.Fatalf("expected no registration, got %d", len(store.regs))
			}
		})
	}
}
