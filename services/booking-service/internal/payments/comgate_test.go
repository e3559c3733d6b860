package payments

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func testComgate(t *testing.T, handler http.HandlerFunc) *Comgate {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewComgate(ComgateConfig{
		Merchant: "merchant-1",
		Secret:   "secret-1",
		TestMode: true,
		BaseURL:  srv.URL,
	})
}

func TestComgateCreatePayment(t *testing.T) {
	var gotForm url.Values
	c := testComgate(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/create" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		gotForm = r.PostForm
		_, _ = w.Write([]byte("code=0&message=OK&transId=AB12-CD34-EF56&redirect=" + url.QueryEscape("https://payments.comgate.cz/client/instructions/index?id=AB12-CD34-EF56")))
	})

	session, err := c.CreatePayment(context.Background(), CreateRequest{
		AppointmentID: "appt-1",
		AmountCents:   90000,
		Currency:      "CZK",
		Label:         "Klasická masáž 2.3.2026 10:00",
		CustomerEmail: "petr@example.com",
		SuccessURL:    "https://pramenzivota.cz/rezervace/hotovo",
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if session.TransactionID != "AB12-CD34-EF56" {
		t.Fatalf("unexpected transaction id %q", session.TransactionID)
	}
	if session.RedirectURL == "" {
		t.Fatal("expected redirect url")
	}

	checks := map[string]string{
		"merchant":    "merchant-1",
		"secret":      "secret-1",
		"price":       "90000",
		"curr":        "CZK",
		"refId":       "appt-1",
		"prepareOnly": "true",
		"method":      "ALL",
		"test":        "true",
		"url_paid":    "https://pramenzivota.cz/rezervace/hotovo",
	}
	for key, want := range checks {
		if got := gotForm.Get(key); got != want {
			t.Fatalf("form field %s: expected %q, got %q", key, want, got)
		}
	}
	if gotForm.Get("url_cancelled") != "" {
		t.Fatal("expected no url_cancelled without a cancel url")
	}
}

func TestComgateCreatePaymentGatewayError(t *testing.T) {
	c := testComgate(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("code=1400&message=wrong%20query"))
	})

	_, err := c.CreatePayment(context.Background(), CreateRequest{
		AppointmentID: "appt-1", AmountCents: 90000, Currency: "CZK",
	})
	if err == nil {
		t.Fatal("expected error for non-zero code")
	}
}

func TestComgateVerifyPayment(t *testing.T) {
	cases := []struct {
		status      string
		wantPaid    bool
		wantSettled bool
	}{
		{"PAID", true, true},
		{"CANCELLED", false, true},
		{"PENDING", false, false},
	}

	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			c := testComgate(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/status" {
					t.Fatalf("unexpected path %s", r.URL.Path)
				}
				_, _ = w.Write([]byte("code=0&status=" + tc.status))
			})

			v, err := c.VerifyPayment(context.Background(), "AB12-CD34-EF56")
			if err != nil {
				t.Fatalf("VerifyPayment: %v", err)
			}
			if v.Paid != tc.wantPaid || v.Settled != tc.wantSettled {
				t.Fatalf("status %s: got paid=%v settled=%v", tc.status, v.Paid, v.Settled)
			}
			if v.RawState != tc.status {
				t.Fatalf("expected raw state %q, got %q", tc.status, v.RawState)
			}
		})
	}
}

func TestComgateNotConfigured(t *testing.T) {
	c := NewComgate(ComgateConfig{})
	if _, err := c.CreatePayment(context.Background(), CreateRequest{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := c.VerifyPayment(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestForName(t *testing.T) {
	comgate := NewComgate(ComgateConfig{Merchant: "m", Secret: "s"})
	stripe := NewStripe("sk_test_x")

	if p, err := ForName("comgate", comgate, stripe); err != nil || p.Name() != "comgate" {
		t.Fatalf("expected comgate provider, got %v, %v", p, err)
	}
	if p, err := ForName("stripe", comgate, stripe); err != nil || p.Name() != "stripe" {
		t.Fatalf("expected stripe provider, got %v, %v", p, err)
	}
	if _, err := ForName("sofort", comgate, stripe); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
