package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/unmute/internal/application"
)

type mediaTokenService interface {
	Issue(ctx context.Context, roomName, participantName string) (application.MediaToken, error)
}

// MediaHandler issues audio-channel join credentials.
type MediaHandler struct {
	tokens    mediaTokenService
	responder responder
	logger    *slog.Logger
}

// NewMediaHandler constructs a media handler.
func NewMediaHandler(tokens mediaTokenService, logger *slog.Logger) *MediaHandler {
	base := defaultLogger(logger)
	return &MediaHandler{tokens: tokens, responder: newResponder(base), logger: base}
}

type mediaTokenRequest struct {
	RoomName        string `json:"roomName"`
	ParticipantName string `json:"participantName"`
}

type mediaTokenDTO struct {
	Token        string `json:"token,omitempty"`
	AudioEnabled bool   `json:"audioEnabled"`
	WSURL        string `json:"wsUrl,omitempty"`
	Message      string `json:"message,omitempty"`
}

// Issue handles POST /api/media/token.
func (h *MediaHandler) Issue(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.tokens == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req mediaTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlerLogger(r.Context(), h.logger, "MediaHandler", "Issue", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode token request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	token, err := h.tokens.Issue(r.Context(), req.RoomName, req.ParticipantName)
	if err != nil {
		handlerLogger(r.Context(), h.logger, "MediaHandler", "Issue").ErrorContext(r.Context(), "token issue failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, mediaTokenDTO{
		Token:        token.Token,
		AudioEnabled: token.AudioEnabled,
		WSURL:        token.WSURL,
		Message:      token.Message,
	})
}
