package payments

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const comgateBaseURL = "https://payments.comgate.cz/v1.0"

// Comgate is the Comgate payment gateway client. The API is form-in,
// form-out: both requests and responses are urlencoded key/value pairs.
type Comgate struct {
	merchant string
	secret   string
	testMode bool
	baseURL  string
	client   *http.Client
}

type ComgateConfig struct {
	Merchant string
	Secret   string
	TestMode bool
	// BaseURL overrides the production endpoint. Test hook.
	BaseURL string
}

func NewComgate(cfg ComgateConfig) *Comgate {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = comgateBaseURL
	}
	return &Comgate{
		merchant: cfg.Merchant,
		secret:   cfg.Secret,
		testMode: cfg.TestMode,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Comgate) Name() string { return "comgate" }

// CreatePayment opens a prepared transaction and returns the redirect URL the
// customer finishes the payment at. Amounts are in the currency's minor unit,
// which is what Comgate's price field expects.
func (c *Comgate) CreatePayment(ctx context.Context, req CreateRequest) (Session, error) {
	if c.merchant == "" || c.secret == "" {
		return Session{}, ErrNotConfigured
	}

	form := url.Values{}
	form.Set("merchant", c.merchant)
	form.Set("price", strconv.FormatInt(req.AmountCents, 10))
	form.Set("curr", req.Currency)
	form.Set("label", req.Label)
	form.Set("refId", req.AppointmentID)
	form.Set("email", req.CustomerEmail)
	form.Set("method", "ALL")
	form.Set("prepareOnly", "true")
	form.Set("secret", c.secret)
	if req.SuccessURL != "" {
		form.Set("url_paid", req.SuccessURL)
	}
	if req.CancelURL != "" {
		form.Set("url_cancelled", req.CancelURL)
	}
	if c.testMode {
		form.Set("test", "true")
	}

	values, err := c.post(ctx, "/create", form)
	if err != nil {
		return Session{}, err
	}
	if code := values.Get("code"); code != "0" {
		return Session{}, fmt.Errorf("comgate create failed: code=%s message=%s", code, values.Get("message"))
	}

	transID := values.Get("transId")
	redirect := values.Get("redirect")
	if transID == "" || redirect == "" {
		return Session{}, fmt.Errorf("comgate create: incomplete response")
	}
	return Session{TransactionID: transID, RedirectURL: redirect}, nil
}

func (c *Comgate) VerifyPayment(ctx context.Context, transactionID string) (Verification, error) {
	if c.merchant == "" || c.secret == "" {
		return Verification{}, ErrNotConfigured
	}

	form := url.Values{}
	form.Set("merchant", c.merchant)
	form.Set("secret", c.secret)
	form.Set("transId", transactionID)

	values, err := c.post(ctx, "/status", form)
	if err != nil {
		return Verification{}, err
	}
	if code := values.Get("code"); code != "0" {
		return Verification{}, fmt.Errorf("comgate status failed: code=%s message=%s", code, values.Get("message"))
	}

	status := values.Get("status")
	return Verification{
		Paid:     status == "PAID",
		Settled:  status == "PAID" || status == "CANCELLED",
		RawState: status,
	}, nil
}

func (c *Comgate) post(ctx context.Context, path string, form url.Values) (url.Values, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("comgate: unexpected status %d", resp.StatusCode)
	}
	return url.ParseQuery(string(body))
}
