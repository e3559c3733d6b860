package handlers

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/pramenzivota/rezervace/services/booking-service/internal/events"
)

func TestWriteRegistrarError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantReason string
	}{
		{
			name:       "unknown event",
			err:        events.ErrUnknownEvent,
			wantStatus: 404,
			wantCode:   "UNKNOWN_EVENT",
		},
		{
			name:       "event full",
			err:        events.ErrEventFull,
			wantStatus: 409,
			wantCode:   "EVENT_FULL",
		},
		{
			name:       "already registered",
			err:        events.ErrAlreadyRegistered,
			wantStatus: 409,
			wantCode:   "ALREADY_REGISTERED",
		},
		{
			name:       "invalid request carries reason",
			err:        &events.InvalidRequestError{Reason: events.ReasonConsentRequired},
			wantStatus: 422,
			wantCode:   "INVALID_REQUEST",
			wantReason: events.ReasonConsentRequired,
		},
		{
			name:       "unexpected error is opaque",
			err:        errors.New("pg down"),
			wantStatus: 500,
			wantCode:   "INTERNAL",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rw := httptest.NewRecorder()
			writeRegistrarError(rw, discardLogger(), tc.err)
			if rw.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rw.Code)
			}
			code, reason := decodeError(t, rw.Body)
			if code != tc.wantCode || reason != tc.wantReason {
				t.Fatalf("expected %s/%s, got %s/%s", tc.wantCode, tc.wantReason, code, reason)
			}
		})
	}
}
