// Package payment contains the Razorpay order client backing donations.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/example/unmute/internal/application"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

// RazorpayClient creates orders against the Razorpay REST API using HTTP
// basic auth with the key pair.
type RazorpayClient struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
}

// NewRazorpayClient constructs a client. baseURL overrides the production
// endpoint when non-empty; tests point it at a local server.
func NewRazorpayClient(keyID, keySecret, baseURL string) *RazorpayClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &RazorpayClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		keyID:     keyID,
		keySecret: keySecret,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

type orderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateOrder opens an order for the given amount in the currency's smallest
// unit.
func (c *RazorpayClient) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (application.GatewayOrder, error) {
	body, err := json.Marshal(orderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		return application.GatewayOrder{}, fmt.Errorf("payment: encode order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return application.GatewayOrder{}, fmt.Errorf("payment: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return application.GatewayOrder{}, fmt.Errorf("payment: create order: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return application.GatewayOrder{}, fmt.Errorf("payment: gateway returned status %d", resp.StatusCode)
	}

	var created orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return application.GatewayOrder{}, fmt.Errorf("payment: decode order: %w", err)
	}

	return application.GatewayOrder{
		ID:       created.ID,
		Amount:   created.Amount,
		Currency: created.Currency,
	}, nil
}
