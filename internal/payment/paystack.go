// Package payment talks to a Paystack-compatible payment gateway.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultBaseURL     = "https://api.paystack.co"
	defaultHTTPTimeout = 15 * time.Second
	maxResponseBytes   = 1 << 20
)

// ErrNotConfigured is returned when no secret key was supplied.
var ErrNotConfigured = errors.New("payment: gateway not configured")

// Config captures what the client needs to reach the gateway.
type Config struct {
	SecretKey string
	BaseURL   string
}

// Client wraps the gateway's transaction API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a gateway client. An empty BaseURL selects Paystack.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg: Config{
			SecretKey: strings.TrimSpace(cfg.SecretKey),
			BaseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		},
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.BaseURL == "" {
		c.cfg.BaseURL = defaultBaseURL
	}
	return c
}

// Configured reports whether a secret key is set.
func (c *Client) Configured() bool {
	return c.cfg.SecretKey != ""
}

// InitializeRequest starts a transaction. Amount is in minor units.
type InitializeRequest struct {
	Email     string `json:"email"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
	Currency  string `json:"currency,omitempty"`
}

// Authorization is where the customer completes payment.
type Authorization struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
}

// Verification is the gateway's view of a transaction.
type Verification struct {
	Reference string
	// Status is the transaction status, e.g. "success", "failed", "abandoned".
	Status   string
	Amount   int64
	Currency string
	PaidAt   *time.Time
	// Raw is the gateway's data object, passed through to the client.
	Raw json.RawMessage
}

// Succeeded reports whether the gateway confirmed the payment.
func (v *Verification) Succeeded() bool {
	return v != nil && v.Status == "success"
}

// RejectedError is a well-formed gateway response with status false.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return "payment: gateway rejected request: " + e.Message
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("payment: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Initialize creates a transaction and returns its authorization details.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*Authorization, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if req.Amount <= 0 {
		return nil, errors.New("payment initialize: amount must be positive")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("payment initialize: encode request: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		return nil, fmt.Errorf("payment initialize: %w", err)
	}

	auth := &Authorization{
		Reference:        data.Get("reference").String(),
		AuthorizationURL: data.Get("authorization_url").String(),
		AccessCode:       data.Get("access_code").String(),
	}
	if auth.Reference == "" {
		auth.Reference = req.Reference
	}
	if auth.AuthorizationURL == "" {
		return nil, errors.New("payment initialize: response has no authorization_url")
	}
	return auth, nil
}

// Verify fetches the current state of the transaction with reference.
func (c *Client) Verify(ctx context.Context, reference string) (*Verification, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, errors.New("payment verify: reference required")
	}

	data, err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, fmt.Errorf("payment verify: %w", err)
	}

	v := &Verification{
		Reference: data.Get("reference").String(),
		Status:    data.Get("status").String(),
		Amount:    data.Get("amount").Int(),
		Currency:  data.Get("currency").String(),
		Raw:       json.RawMessage(data.Raw),
	}
	if paid := data.Get("paid_at").String(); paid != "" {
		if t, err := time.Parse(time.RFC3339, paid); err == nil {
			v.PaidAt = &t
		}
	}
	return v, nil
}

// do sends one request and returns the envelope's data object. A response
// whose top-level status is false is a *RejectedError.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (gjson.Result, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read response: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		if resp.StatusCode >= 300 {
			return gjson.Result{}, &httpStatusError{StatusCode: resp.StatusCode, Body: string(raw)}
		}
		return gjson.Result{}, errors.New("response is not valid JSON")
	}

	envelope := gjson.ParseBytes(raw)
	if !envelope.Get("status").Bool() {
		msg := envelope.Get("message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return gjson.Result{}, &RejectedError{Message: msg}
	}
	if resp.StatusCode >= 300 {
		return gjson.Result{}, &httpStatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return envelope.Get("data"), nil
}
