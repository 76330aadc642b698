// Package payment talks to the PayPal Orders v2 API.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/MediSynth-io/contentplanner/internal/config"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const OrderCompleted = "COMPLETED"

// RequestError is a client mistake caught before PayPal is called.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string { return e.Message }

// OrderRequest is the checkout body sent by the browser.
type OrderRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Intent   string `json:"intent"`
}

// Response is PayPal's reply passed through to the caller untouched.
type Response struct {
	Status int
	Body   json.RawMessage
}

// Order is the subset of an order we inspect.
type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Client is a PayPal REST client authenticated with client credentials.
type Client struct {
	baseURL  string
	http     *http.Client
	amount   string
	currency string
	log      zerolog.Logger
}

// NewClient builds a client. Token fetching and refresh happen lazily on first use.
func NewClient(ctx context.Context, cfg config.PayPalConfig, log zerolog.Logger) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	creds := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     base + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	amount := cfg.PlanAmount
	if amount == "" {
		amount = "9.99"
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "USD"
	}
	return &Client{
		baseURL:  base,
		http:     creds.Client(ctx),
		amount:   amount,
		currency: currency,
		log:      log.With().Str("component", "paypal").Logger(),
	}
}

// ClientToken returns a token the browser SDK uses to render card fields.
func (c *Client) ClientToken(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/identity/generate-token", nil)
	if err != nil {
		return "", err
	}
	if resp.Status >= 300 {
		return "", fmt.Errorf("generate client token: status %d", resp.Status)
	}
	var out struct {
		ClientToken string `json:"client_token"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", fmt.Errorf("decode client token: %w", err)
	}
	return out.ClientToken, nil
}

// CreateOrder opens an order. Missing amount and currency fall back to the plan price.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Response, error) {
	if req.Amount == "" {
		req.Amount = c.amount
	}
	if req.Currency == "" {
		req.Currency = c.currency
	}
	if req.Intent == "" {
		req.Intent = "CAPTURE"
	}
	if v, err := strconv.ParseFloat(req.Amount, 64); err != nil || v <= 0 {
		return nil, &RequestError{Message: "Invalid amount. Amount must be a positive number."}
	}

	body := map[string]any{
		"intent": strings.ToUpper(req.Intent),
		"purchase_units": []map[string]any{{
			"amount": map[string]string{
				"currency_code": strings.ToUpper(req.Currency),
				"value":         req.Amount,
			},
		}},
	}
	resp, err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", body)
	if err != nil {
		return nil, err
	}
	c.log.Info().Int("status", resp.Status).Str("amount", req.Amount).Msg("PayPal order created")
	return resp, nil
}

// CaptureOrder captures payment for an approved order.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Response, error) {
	if orderID == "" {
		return nil, &RequestError{Message: "Order ID is required."}
	}
	return c.do(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture", struct{}{})
}

// GetOrder fetches an order's current state.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, err
	}
	if resp.Status == http.StatusNotFound {
		return nil, nil
	}
	if resp.Status >= 300 {
		return nil, fmt.Errorf("get order %s: status %d", orderID, resp.Status)
	}
	var o Order
	if err := json.Unmarshal(resp.Body, &o); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return &o, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*Response, error) {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read paypal response: %w", err)
	}
	if resp.StatusCode >= 400 {
		c.log.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("PayPal request rejected")
	}
	return &Response{Status: resp.StatusCode, Body: raw}, nil
}
