package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/unmute/internal/application"
)

type sessionService interface {
	Start(ctx context.Context, params application.StartSessionParams) (application.Session, error)
	End(ctx context.Context, params application.EndSessionParams) (application.Session, error)
}

type identityProvider interface {
	NewAnonymousID() string
}

// SessionHandler records participant presence spans. Identity provisioning
// happens here: a caller that has no anonymous identifier yet is issued one
// as part of session start.
type SessionHandler struct {
	sessions  sessionService
	identity  identityProvider
	responder responder
	logger    *slog.Logger
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(sessions sessionService, identity identityProvider, logger *slog.Logger) *SessionHandler {
	base := defaultLogger(logger)
	return &SessionHandler{sessions: sessions, identity: identity, responder: newResponder(base), logger: base}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

type startSessionRequest struct {
	RoomID      string `json:"roomId"`
	AnonymousID string `json:"anonymousId"`
	Emotion     string `json:"emotion"`
}

// Create handles POST /api/sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.sessions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode session request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	anonymousID := strings.TrimSpace(req.AnonymousID)
	if anonymousID == "" && h.identity != nil {
		anonymousID = h.identity.NewAnonymousID()
	}

	logger := h.log(r.Context(), "Create", "room_id", req.RoomID)

	session, err := h.sessions.Start(r.Context(), application.StartSessionParams{
		RoomID:      req.RoomID,
		AnonymousID: anonymousID,
		Emotion:     req.Emotion,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "session start failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("session_id", session.ID).InfoContext(r.Context(), "session started")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sessionResponse{Session: toSessionDTO(session)})
}

type endSessionRequest struct {
	SessionID       string `json:"sessionId"`
	DurationSeconds int    `json:"durationSeconds"`
}

// Update handles PATCH /api/sessions by closing the referenced session.
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.sessions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req endSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode session update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "session_id", req.SessionID)

	session, err := h.sessions.End(r.Context(), application.EndSessionParams{
		SessionID:       req.SessionID,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "session end failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "session ended")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

type sessionDTO struct {
	ID              string  `json:"id"`
	RoomID          string  `json:"roomId"`
	AnonymousID     string  `json:"anonymousId"`
	Emotion         string  `json:"emotion"`
	JoinedAt        string  `json:"joinedAt"`
	LeftAt          *string `json:"leftAt,omitempty"`
	DurationSeconds *int    `json:"durationSeconds,omitempty"`
}

type sessionResponse struct {
	Session sessionDTO `json:"session"`
}

func toSessionDTO(session application.Session) sessionDTO {
	dto := sessionDTO{
		ID:              session.ID,
		RoomID:          session.RoomID,
		AnonymousID:     session.AnonymousID,
		Emotion:         session.Emotion,
		JoinedAt:        session.JoinedAt.UTC().Format(time.RFC3339),
		DurationSeconds: session.DurationSeconds,
	}
	if session.LeftAt != nil {
		leftAt := session.LeftAt.UTC().Format(time.RFC3339)
		dto.LeftAt = &leftAt
	}
	return dto
}
