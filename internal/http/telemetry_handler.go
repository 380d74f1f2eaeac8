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

type telemetryService interface {
	SendReaction(ctx context.Context, input application.ReactionInput) (application.Reaction, error)
	RecentReactions(ctx context.Context, roomID string) ([]application.Reaction, error)
	SaveReflection(ctx context.Context, input application.ReflectionInput) (application.Reflection, error)
	SaveFeedback(ctx context.Context, input application.FeedbackInput) error
	Summary(ctx context.Context) (application.Stats, error)
}

// TelemetryHandler serves reactions, reflections, feedback, and the
// aggregate analytics summary.
type TelemetryHandler struct {
	telemetry telemetryService
	realtime  *RealtimeHub
	responder responder
	logger    *slog.Logger
}

// NewTelemetryHandler constructs a telemetry handler. The realtime hub is
// optional; when present, accepted reactions are fanned out to the room.
func NewTelemetryHandler(telemetry telemetryService, realtime *RealtimeHub, logger *slog.Logger) *TelemetryHandler {
	base := defaultLogger(logger)
	return &TelemetryHandler{telemetry: telemetry, realtime: realtime, responder: newResponder(base), logger: base}
}

func (h *TelemetryHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TelemetryHandler", operation, attrs...)
}

type reactionRequest struct {
	RoomID       string `json:"roomId"`
	SessionID    string `json:"sessionId"`
	ReactionType string `json:"reactionType"`
}

// CreateReaction handles POST /api/reactions.
func (h *TelemetryHandler) CreateReaction(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.telemetry == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CreateReaction", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reaction", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	reaction, err := h.telemetry.SendReaction(r.Context(), application.ReactionInput{
		RoomID:       req.RoomID,
		SessionID:    req.SessionID,
		ReactionType: req.ReactionType,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if h.realtime != nil {
		h.realtime.BroadcastEvent(roomChannel(reaction.RoomID), Event{
			Type:   "reaction",
			RoomID: reaction.RoomID,
			Detail: reaction.ReactionType,
		})
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, reactionResponse{Reaction: toReactionDTO(reaction)})
}

// ListReactions handles GET /api/reactions?roomId=.
func (h *TelemetryHandler) ListReactions(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.telemetry == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID := strings.TrimSpace(r.URL.Query().Get("roomId"))
	reactions, err := h.telemetry.RecentReactions(r.Context(), roomID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]reactionDTO, 0, len(reactions))
	for _, reaction := range reactions {
		dtos = append(dtos, toReactionDTO(reaction))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reactionsResponse{Reactions: dtos})
}

type reflectionRequest struct {
	SessionID     string `json:"sessionId"`
	FeelingBefore string `json:"feelingBefore"`
	FeelingAfter  string `json:"feelingAfter"`
	GratitudeNote string `json:"gratitudeNote"`
}

// CreateReflection handles POST /api/reflections.
func (h *TelemetryHandler) CreateReflection(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.telemetry == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req reflectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CreateReflection", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reflection", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	reflection, err := h.telemetry.SaveReflection(r.Context(), application.ReflectionInput{
		SessionID:     req.SessionID,
		FeelingBefore: req.FeelingBefore,
		FeelingAfter:  req.FeelingAfter,
		GratitudeNote: req.GratitudeNote,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, reflectionResponse{Reflection: toReflectionDTO(reflection)})
}

type feedbackRequest struct {
	SessionID string `json:"sessionId"`
	Feeling   string `json:"feeling"`
	Message   string `json:"message"`
}

// CreateFeedback handles POST /api/feedback.
func (h *TelemetryHandler) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.telemetry == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "CreateFeedback", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode feedback", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	err := h.telemetry.SaveFeedback(r.Context(), application.FeedbackInput{
		SessionID: req.SessionID,
		Feeling:   req.Feeling,
		Message:   req.Message,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, successResponse{Success: true})
}

// Analytics handles GET /api/analytics.
func (h *TelemetryHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.telemetry == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	stats, err := h.telemetry.Summary(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	byEmotion := stats.SessionsByEmotion
	if byEmotion == nil {
		byEmotion = map[string]int{}
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, statsDTO{
		TotalSessionsToday:   stats.TotalSessionsToday,
		ActiveRooms:          stats.ActiveRooms,
		TotalParticipantsNow: stats.TotalParticipantsNow,
		SessionsByEmotion:    byEmotion,
	})
}

type reactionDTO struct {
	ID           string `json:"id"`
	RoomID       string `json:"roomId"`
	SessionID    string `json:"sessionId"`
	ReactionType string `json:"reactionType"`
	CreatedAt    string `json:"createdAt"`
}

type reactionResponse struct {
	Reaction reactionDTO `json:"reaction"`
}

type reactionsResponse struct {
	Reactions []reactionDTO `json:"reactions"`
}

type reflectionDTO struct {
	ID            string  `json:"id"`
	SessionID     string  `json:"sessionId"`
	FeelingBefore string  `json:"feelingBefore"`
	FeelingAfter  string  `json:"feelingAfter"`
	GratitudeNote *string `json:"gratitudeNote,omitempty"`
	CreatedAt     string  `json:"createdAt"`
}

type reflectionResponse struct {
	Reflection reflectionDTO `json:"reflection"`
}

type statsDTO struct {
	TotalSessionsToday   int            `json:"totalSessionsToday"`
	ActiveRooms          int            `json:"activeRooms"`
	TotalParticipantsNow int            `json:"totalParticipantsNow"`
	SessionsByEmotion    map[string]int `json:"sessionsByEmotion"`
}

func toReactionDTO(reaction application.Reaction) reactionDTO {
	return reactionDTO{
		ID:           reaction.ID,
		RoomID:       reaction.RoomID,
		SessionID:    reaction.SessionID,
		ReactionType: reaction.ReactionType,
		CreatedAt:    reaction.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toReflectionDTO(reflection application.Reflection) reflectionDTO {
	return reflectionDTO{
		ID:            reflection.ID,
		SessionID:     reflection.SessionID,
		FeelingBefore: reflection.FeelingBefore,
		FeelingAfter:  reflection.FeelingAfter,
		GratitudeNote: reflection.GratitudeNote,
		CreatedAt:     reflection.CreatedAt.UTC().Format(time.RFC3339),
	}
}
