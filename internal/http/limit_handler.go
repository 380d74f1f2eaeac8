package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/example/unmute/internal/application"
	"github.com/example/unmute/internal/identity"
)

type limiterService interface {
	Check(ctx context.Context, fingerprint string) (application.QuotaStatus, error)
	Increment(ctx context.Context, fingerprint string) (application.QuotaStatus, error)
}

type deviceKeyer interface {
	DeviceKey(fingerprint string) (string, error)
}

// LimitHandler serves the anonymous join allowance. Raw fingerprints are
// exchanged for opaque derived keys before they reach the limiter, so the
// store only ever sees the derived form. Authenticated principals skip the
// limiter entirely: the cap exists to nudge anonymous users toward signing
// in, so a signed-in caller is never counted or blocked.
type LimitHandler struct {
	limiter   limiterService
	keys      deviceKeyer
	responder responder
	logger    *slog.Logger
}

// NewLimitHandler constructs a limit handler.
func NewLimitHandler(limiter limiterService, keys deviceKeyer, logger *slog.Logger) *LimitHandler {
	base := defaultLogger(logger)
	return &LimitHandler{limiter: limiter, keys: keys, responder: newResponder(base), logger: base}
}

func (h *LimitHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "LimitHandler", operation, attrs...)
}

// bypass writes an unrestricted allowance when the caller is authenticated.
// It reports whether the request was handled.
func (h *LimitHandler) bypass(ctx context.Context, w http.ResponseWriter, operation string) bool {
	principal, ok := PrincipalFromContext(ctx)
	if !ok || !principal.IsAuthenticated() {
		return false
	}

	h.log(ctx, operation, "principal_id", principal.UserID).InfoContext(ctx, "authenticated caller, anonymous limit skipped")
	h.responder.writeJSON(ctx, w, http.StatusOK, quotaDTO{
		JoinCount: 0,
		Remaining: application.MaxAnonymousJoins,
		Blocked:   false,
	})
	return true
}

func (h *LimitHandler) deviceKey(ctx context.Context, w http.ResponseWriter, operation, fingerprint string) (string, bool) {
	key, err := h.keys.DeviceKey(fingerprint)
	if err != nil {
		kind := "unexpected"
		status := http.StatusInternalServerError
		if errors.Is(err, identity.ErrWeakFingerprint) {
			kind = "bad_request"
			status = http.StatusBadRequest
			err = errInvalidFingerprint
		}
		h.log(ctx, operation, "error_kind", kind).ErrorContext(ctx, "fingerprint rejected")
		h.responder.writeError(ctx, w, status, err)
		return "", false
	}
	return key, true
}

// Check handles GET /api/anonymous-limit?fingerprint=.
func (h *LimitHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.limiter == nil || h.keys == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if h.bypass(r.Context(), w, "Check") {
		return
	}

	key, ok := h.deviceKey(r.Context(), w, "Check", r.URL.Query().Get("fingerprint"))
	if !ok {
		return
	}

	status, err := h.limiter.Check(r.Context(), key)
	if err != nil {
		h.log(r.Context(), "Check").ErrorContext(r.Context(), "quota check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toQuotaDTO(status))
}

type consumeLimitRequest struct {
	Fingerprint string `json:"fingerprint"`
}

// Consume handles POST /api/anonymous-limit by counting one join against
// the device.
func (h *LimitHandler) Consume(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.limiter == nil || h.keys == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if h.bypass(r.Context(), w, "Consume") {
		return
	}

	var req consumeLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Consume", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode limit request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	key, ok := h.deviceKey(r.Context(), w, "Consume", req.Fingerprint)
	if !ok {
		return
	}

	status, err := h.limiter.Increment(r.Context(), key)
	if err != nil {
		h.log(r.Context(), "Consume").ErrorContext(r.Context(), "quota increment failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toQuotaDTO(status))
}

type quotaDTO struct {
	JoinCount int  `json:"joinCount"`
	Remaining int  `json:"remaining"`
	Blocked   bool `json:"blocked"`
}

func toQuotaDTO(status application.QuotaStatus) quotaDTO {
	return quotaDTO{
		JoinCount: status.JoinCount,
		Remaining: status.Remaining,
		Blocked:   status.Blocked,
	}
}
