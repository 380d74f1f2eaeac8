package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key-id" || pass != "key-secret" {
			t.Fatalf("unexpected credentials %q/%q", user, pass)
		}

		var req orderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode order request: %v", err)
		}
		if req.Amount != 15000 || req.Currency != "INR" {
			t.Fatalf("unexpected order request: %+v", req)
		}
		if req.Notes["purpose"] != "donation" {
			t.Fatalf("notes were not forwarded: %v", req.Notes)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(orderResponse{ID: "order_abc", Amount: req.Amount, Currency: req.Currency})
	}))
	defer server.Close()

	client := NewRazorpayClient("key-id", "key-secret", server.URL)

	order, err := client.CreateOrder(context.Background(), 15000, "INR", "rcpt-1", map[string]string{"purpose": "donation"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID != "order_abc" || order.Amount != 15000 || order.Currency != "INR" {
		t.Fatalf("unexpected order: %+v", order)
	}
}

func TestCreateOrderGatewayFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"description":"authentication failed"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewRazorpayClient("key-id", "wrong-secret", server.URL)

	if _, err := client.CreateOrder(context.Background(), 15000, "INR", "rcpt-1", nil); err == nil {
		t.Fatal("expected error for rejected order")
	}
}
