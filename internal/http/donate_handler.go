package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/unmute/internal/application"
)

type donationService interface {
	CreateOrder(ctx context.Context, params application.CreateDonationParams) (application.DonationOrder, error)
	VerifyPayment(ctx context.Context, params application.VerifyDonationParams) error
}

// DonationHandler serves donation order creation and payment verification.
type DonationHandler struct {
	donations donationService
	responder responder
	logger    *slog.Logger
}

// NewDonationHandler constructs a donation handler.
func NewDonationHandler(donations donationService, logger *slog.Logger) *DonationHandler {
	base := defaultLogger(logger)
	return &DonationHandler{donations: donations, responder: newResponder(base), logger: base}
}

func (h *DonationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "DonationHandler", operation, attrs...)
}

type createDonationRequest struct {
	Amount   float64           `json:"amount"`
	Currency string            `json:"currency"`
	Notes    map[string]string `json:"notes"`
}

type donationOrderDTO struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

// Create handles POST /api/donate.
func (h *DonationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.donations == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode donation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	order, err := h.donations.CreateOrder(r.Context(), application.CreateDonationParams{
		Amount:   req.Amount,
		Currency: req.Currency,
		Notes:    req.Notes,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, donationOrderDTO{
		OrderID:  order.OrderID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    order.KeyID,
	})
}

type verifyDonationRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// Verify handles PUT /api/donate.
func (h *DonationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.donations == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req verifyDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Verify", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode verification request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	err := h.donations.VerifyPayment(r.Context(), application.VerifyDonationParams{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, successResponse{Success: true})
}
