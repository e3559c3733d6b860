package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pramenzivota/rezervace/services/booking-service/internal/arbiter"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeError(t *testing.T, body io.Reader) (code, reason string) {
	t.Helper()
	var envelope struct {
		Error struct {
			Code   string `json:"code"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error.Code, envelope.Error.Reason
}

func TestWriteArbiterError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantReason string
	}{
		{
			name:       "slot conflict",
			err:        arbiter.ErrSlotConflict,
			wantStatus: 409,
			wantCode:   "SLOT_CONFLICT",
		},
		{
			name:       "unknown service",
			err:        arbiter.ErrUnknownService,
			wantStatus: 404,
			wantCode:   "UNKNOWN_SERVICE",
		},
		{
			name:       "unknown appointment",
			err:        arbiter.ErrUnknownAppointment,
			wantStatus: 404,
			wantCode:   "UNKNOWN_APPOINTMENT",
		},
		{
			name:       "invalid request carries reason",
			err:        &arbiter.InvalidRequestError{Reason: arbiter.ReasonLeadTime},
			wantStatus: 422,
			wantCode:   "INVALID_REQUEST",
			wantReason: arbiter.ReasonLeadTime,
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
			writeArbiterError(rw, discardLogger(), tc.err)
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

func TestToAppointmentResponse(t *testing.T) {
	start := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	appt := model.Appointment{
		ID:              "appt-1",
		ServiceID:       "svc-1",
		EmployeeID:      "emp-1",
		StartAt:         start,
		EndAt:           end,
		DurationMinutes: 60,
		PriceCents:      90000,
		Currency:        "CZK",
		Status:          model.StatusApproved,
		PaymentMethod:   model.PaymentComgate,
		PaymentStatus:   model.PaymentStatusPending,
	}

	resp := toAppointmentResponse(appt)
	if resp.StartTime != "2026-03-02T09:00:00Z" || resp.EndTime != "2026-03-02T10:00:00Z" {
		t.Fatalf("expected UTC RFC3339 times, got %s / %s", resp.StartTime, resp.EndTime)
	}
	if resp.CanceledAt != "" {
		t.Fatalf("expected empty canceled_at, got %q", resp.CanceledAt)
	}

	canceledAt := end.Add(time.Hour)
	appt.Status = model.StatusCanceled
	appt.CanceledAt = &canceledAt
	resp = toAppointmentResponse(appt)
	if resp.CanceledAt != "2026-03-02T11:00:00Z" {
		t.Fatalf("expected canceled_at set, got %q", resp.CanceledAt)
	}
}

func TestParseDateParam(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Prague")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}

	got, err := parseDateParam(" 2026-03-02 ", loc)
	if err != nil {
		t.Fatalf("parseDateParam: %v", err)
	}
	want := time.Date(2026, time.March, 2, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if _, err := parseDateParam("02.03.2026", loc); err == nil {
		t.Fatal("expected error for non ISO date")
	}
	if _, err := parseDateParam("", loc); err == nil {
		t.Fatal("expected error for empty date")
	}
}
