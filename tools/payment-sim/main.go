// payment-sim posts fake provider callbacks at a local stack so the payment
// settlement path can be exercised without a real gateway account.
//
// stripe mode signs a checkout.session event with the webhook secret the
// booking service was started with. comgate mode posts the form callback;
// the service re-verifies it against the Comgate status API, so point
// COMGATE_BASE_URL at a stub (or run with a test merchant) first.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"
)

func main() {
	var (
		baseURL  = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "gateway base url")
		provider = flag.String("provider", getenv("PROVIDER", "stripe"), "stripe or comgate")
		apptID   = flag.String("appointment-id", getenv("APPOINTMENT_ID", ""), "appointment id the payment belongs to")
		transID  = flag.String("transaction-id", getenv("TRANSACTION_ID", "cs_test_123"), "provider transaction id")
		outcome  = flag.String("outcome", getenv("OUTCOME", "paid"), "paid or cancelled")
		secret   = flag.String("secret", getenv("STRIPE_WEBHOOK_SECRET", ""), "stripe webhook signing secret (whsec_...)")
	)
	flag.Parse()

	if strings.TrimSpace(*apptID) == "" {
		fatal("APPOINTMENT_ID is required")
	}

	var (
		status int
		err    error
	)
	switch *provider {
	case "stripe":
		if strings.TrimSpace(*secret) == "" {
			fatal("STRIPE_WEBHOOK_SECRET is required for stripe mode")
		}
		status, err = postStripe(*baseURL, *secret, *apptID, *transID, *outcome == "paid")
	case "comgate":
		status, err = postComgate(*baseURL, *transID, *apptID, *outcome)
	default:
		fatal("unsupported provider: " + *provider)
	}
	if err != nil {
		fatal(err.Error())
	}
	fmt.Printf("status=%d\n", status)
}

func postStripe(baseURL, secret, apptID, sessionID string, paid bool) (int, error) {
	now := time.Now().UTC()
	eventType := "checkout.session.completed"
	paymentStatus := "paid"
	if !paid {
		eventType = "checkout.session.expired"
		paymentStatus = "unpaid"
	}

	payload, err := json.Marshal(map[string]any{
		"id":          fmt.Sprintf("evt_test_%d", now.UnixNano()),
		"object":      "event",
		"created":     now.Unix(),
		"type":        eventType,
		"api_version": "2020-08-27",
		"data": map[string]any{
			"object": map[string]any{
				"id":                  sessionID,
				"object":              "checkout.session",
				"client_reference_id": apptID,
				"payment_status":      paymentStatus,
				"metadata":            map[string]any{"appointment_id": apptID},
			},
		},
	})
	if err != nil {
		return 0, err
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: now,
		Scheme:    "v1",
	})

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(baseURL, "/")+"/api/v1/payments/stripe/webhook", bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)
	return do(req)
}

func postComgate(baseURL, transID, apptID, outcome string) (int, error) {
	form := url.Values{}
	form.Set("transId", transID)
	form.Set("refId", apptID)
	form.Set("status", strings.ToUpper(outcome))

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(baseURL, "/")+"/api/v1/payments/comgate/callback", strings.NewReader(form.Encode()))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(req)
}

func do(req *http.Request) (int, error) {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
