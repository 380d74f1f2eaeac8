package application

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/example/unmute/internal/persistence"
)

type stubGateway struct {
	lastAmount   int64
	lastCurrency string
	lastReceipt  string
	lastNotes    map[string]string
	err          error
}

func (s *stubGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string, notes map[string]string) (GatewayOrder, error) {
	if s.err != nil {
		return GatewayOrder{}, s.err
	}
	s.lastAmount = amount
	s.lastCurrency = currency
	s.lastReceipt = receipt
	s.lastNotes = notes
	return GatewayOrder{ID: "order-1", Amount: amount, Currency: currency}, nil
}

type stubDonationRepo struct {
	donations []persistence.Donation
}

func (s *stubDonationRepo) CreateDonation(_ context.Context, donation persistence.Donation) error {
	s.donations = append(s.donations, donation)
	return nil
}

func signPayment(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestCreateOrderConvertsToSubunits(t *testing.T) {
	gateway := &stubGateway{}
	service := NewDonationService(gateway, &stubDonationRepo{}, "key-1", "secret-1", func() string { return "d-1" }, fixedNow, nil)

	order, err := service.CreateOrder(context.Background(), CreateDonationParams{Amount: 150})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gateway.lastAmount != 15000 {
		t.Fatalf("expected 15000 subunits, got %d", gateway.lastAmount)
	}
	if gateway.lastCurrency != "INR" {
		t.Fatalf("expected default currency INR, got %q", gateway.lastCurrency)
	}
	if order.OrderID != "order-1" || order.KeyID != "key-1" {
		t.Fatalf("unexpected order: %+v", order)
	}
}

func TestCreateOrderRejectsTinyAmount(t *testing.T) {
	service := NewDonationService(&stubGateway{}, nil, "key-1", "secret-1", nil, nil, nil)

	_, err := service.CreateOrder(context.Background(), CreateDonationParams{Amount: 0.5})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateOrderWrapsGatewayFailure(t *testing.T) {
	service := NewDonationService(&stubGateway{err: errors.New("upstream down")}, nil, "key-1", "secret-1", nil, nil, nil)

	_, err := service.CreateOrder(context.Background(), CreateDonationParams{Amount: 10})
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}

func TestVerifyPaymentRecordsDonation(t *testing.T) {
	repo := &stubDonationRepo{}
	service := NewDonationService(&stubGateway{}, repo, "key-1", "secret-1", func() string { return "d-1" }, fixedNow, nil)

	err := service.VerifyPayment(context.Background(), VerifyDonationParams{
		OrderID:   "order-1",
		PaymentID: "pay-1",
		Signature: signPayment("secret-1", "order-1", "pay-1"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.donations) != 1 {
		t.Fatalf("expected one recorded donation, got %d", len(repo.donations))
	}
	if repo.donations[0].OrderID != "order-1" || repo.donations[0].PaymentID != "pay-1" {
		t.Fatalf("unexpected donation: %+v", repo.donations[0])
	}
}

func TestVerifyPaymentRejectsBadSignature(t *testing.T) {
	repo := &stubDonationRepo{}
	service := NewDonationService(&stubGateway{}, repo, "key-1", "secret-1", nil, nil, nil)

	err := service.VerifyPayment(context.Background(), VerifyDonationParams{
		OrderID:   "order-1",
		PaymentID: "pay-1",
		Signature: "forged",
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.donations) != 0 {
		t.Fatal("forged payment must not be recorded")
	}
}

func TestVerifyPaymentRequiresAllFields(t *testing.T) {
	service := NewDonationService(&stubGateway{}, nil, "key-1", "secret-1", nil, nil, nil)

	err := service.VerifyPayment(context.Background(), VerifyDonationParams{})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(vErr.FieldErrors) != 3 {
		t.Fatalf("expected all three fields flagged, got %v", vErr.FieldErrors)
	}
}
