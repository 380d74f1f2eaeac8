package application

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/unmute/internal/persistence"
)

// PaymentGateway creates checkout orders at the external payment provider.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (GatewayOrder, error)
}

// GatewayOrder is the provider's view of a created order.
type GatewayOrder struct {
	ID       string
	Amount   int64
	Currency string
}

// CreateDonationParams are the inputs for opening a donation order.
type CreateDonationParams struct {
	Amount   float64
	Currency string
	Notes    map[string]string
}

// VerifyDonationParams are the gateway callback fields for a completed payment.
type VerifyDonationParams struct {
	OrderID   string
	PaymentID string
	Signature string
}

// DonationService creates payment-gateway orders for optional donations and
// records completed payments after verifying the gateway signature.
type DonationService struct {
	gateway     PaymentGateway
	donations   persistence.DonationRepository
	keyID       string
	keySecret   string
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewDonationService constructs a donation service.
func NewDonationService(gateway PaymentGateway, donations persistence.DonationRepository, keyID, keySecret string, idGenerator func() string, now func() time.Time, logger *slog.Logger) *DonationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &DonationService{
		gateway:     gateway,
		donations:   donations,
		keyID:       keyID,
		keySecret:   keySecret,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *DonationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "DonationService", operation, attrs...)
}

// CreateOrder opens a gateway order. The amount arrives in major currency
// units and is converted to the smallest unit the gateway expects.
func (s *DonationService) CreateOrder(ctx context.Context, params CreateDonationParams) (order DonationOrder, err error) {
	if s == nil || s.gateway == nil {
		return DonationOrder{}, fmt.Errorf("donation service not configured")
	}

	logger := s.loggerWith(ctx, "CreateOrder")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create donation order", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("order_id", order.OrderID).InfoContext(ctx, "donation order created")
	}()

	if params.Amount < 1 {
		vErr := &ValidationError{}
		vErr.add("amount", "valid amount is required (minimum 1)")
		err = vErr
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "INR"
	}

	subunits := int64(params.Amount*100 + 0.5)
	receipt := fmt.Sprintf("unmute_donation_%d", s.now().UnixMilli())

	notes := map[string]string{"purpose": "UNMUTE Donation"}
	for key, value := range params.Notes {
		notes[key] = value
	}

	created, gwErr := s.gateway.CreateOrder(ctx, subunits, currency, receipt, notes)
	if gwErr != nil {
		err = fmt.Errorf("%w: %v", ErrGatewayUnavailable, gwErr)
		return
	}

	order = DonationOrder{
		OrderID:  created.ID,
		Amount:   created.Amount,
		Currency: created.Currency,
		KeyID:    s.keyID,
	}
	return
}

// VerifyPayment checks the gateway's HMAC-SHA256 signature over
// "orderID|paymentID" and records the donation when it matches.
func (s *DonationService) VerifyPayment(ctx context.Context, params VerifyDonationParams) (err error) {
	if s == nil {
		return fmt.Errorf("donation service not configured")
	}

	logger := s.loggerWith(ctx, "VerifyPayment", "order_id", params.OrderID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "payment verification failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("payment_id", params.PaymentID).InfoContext(ctx, "payment recorded")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(params.OrderID) == "" {
		vErr.add("razorpay_order_id", "order ID is required")
	}
	if strings.TrimSpace(params.PaymentID) == "" {
		vErr.add("razorpay_payment_id", "payment ID is required")
	}
	if strings.TrimSpace(params.Signature) == "" {
		vErr.add("razorpay_signature", "signature is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	mac := hmac.New(sha256.New, []byte(s.keySecret))
	mac.Write([]byte(params.OrderID + "|" + params.PaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(params.Signature)) {
		sigErr := &ValidationError{}
		sigErr.add("razorpay_signature", "signature mismatch")
		err = sigErr
		return
	}

	if s.donations == nil {
		return nil
	}

	donation := persistence.Donation{
		ID:        s.idGenerator(),
		OrderID:   params.OrderID,
		PaymentID: params.PaymentID,
		CreatedAt: s.now(),
	}
	if createErr := s.donations.CreateDonation(ctx, donation); createErr != nil {
		// The payment already succeeded at the gateway; a failed local
		// record is logged, not surfaced.
		logger.ErrorContext(ctx, "failed to record donation", "error", createErr)
	}

	return nil
}
