package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/unmute/internal/application"
)

type termsService interface {
	Status(ctx context.Context, principal application.Principal) (application.TermsStatus, error)
	Accept(ctx context.Context, principal application.Principal) error
}

// TermsHandler serves the terms acceptance checklist.
type TermsHandler struct {
	terms     termsService
	responder responder
	logger    *slog.Logger
}

// NewTermsHandler constructs a terms handler.
func NewTermsHandler(terms termsService, logger *slog.Logger) *TermsHandler {
	base := defaultLogger(logger)
	return &TermsHandler{terms: terms, responder: newResponder(base), logger: base}
}

type termsStatusDTO struct {
	HasAcceptedTerms bool `json:"hasAcceptedTerms"`
	IsAuthenticated  bool `json:"isAuthenticated"`
}

// Status handles GET /api/terms.
func (h *TermsHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.terms == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	status, err := h.terms.Status(r.Context(), principal)
	if err != nil {
		handlerLogger(r.Context(), h.logger, "TermsHandler", "Status").ErrorContext(r.Context(), "terms status failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, termsStatusDTO{
		HasAcceptedTerms: status.HasAcceptedTerms,
		IsAuthenticated:  status.IsAuthenticated,
	})
}

// Accept handles POST /api/terms.
func (h *TermsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.terms == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	if err := h.terms.Accept(r.Context(), principal); err != nil {
		handlerLogger(r.Context(), h.logger, "TermsHandler", "Accept", "principal_id", principal.UserID).ErrorContext(r.Context(), "terms accept failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, successResponse{Success: true})
}
