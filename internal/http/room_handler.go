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

type allocatorService interface {
	FindOrCreate(ctx context.Context, category string) (application.Room, error)
}

type admissionService interface {
	Join(ctx context.Context, roomID string) error
	Leave(ctx context.Context, roomID string) error
}

// RoomHandler serves room allocation and the join/leave admission protocol.
type RoomHandler struct {
	allocator allocatorService
	admission admissionService
	realtime  *RealtimeHub
	responder responder
	logger    *slog.Logger
}

// NewRoomHandler constructs a room handler. The realtime hub is optional;
// when present, admission changes are announced to room subscribers.
func NewRoomHandler(allocator allocatorService, admission admissionService, realtime *RealtimeHub, logger *slog.Logger) *RoomHandler {
	base := defaultLogger(logger)
	return &RoomHandler{
		allocator: allocator,
		admission: admission,
		realtime:  realtime,
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *RoomHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, attrs...)
}

// Allocate handles GET /api/rooms?emotion= by returning the newest open room
// for the category, creating one when needed.
func (h *RoomHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.allocator == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	category := strings.TrimSpace(r.URL.Query().Get("emotion"))
	if category == "" {
		h.log(r.Context(), "Allocate", "error_kind", "bad_request").ErrorContext(r.Context(), "missing emotion for allocation")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingEmotion)
		return
	}

	logger := h.log(r.Context(), "Allocate", "emotion", category)

	room, err := h.allocator.FindOrCreate(r.Context(), category)
	if err != nil {
		logger.ErrorContext(r.Context(), "room allocation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomResponse{Room: toRoomDTO(room)})
}

type roomActionRequest struct {
	RoomID string `json:"roomId"`
	Action string `json:"action"`
}

// Act handles POST /api/rooms by applying a join or leave action to a room.
func (h *RoomHandler) Act(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.admission == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req roomActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Act", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode room action", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" {
		h.log(r.Context(), "Act", "error_kind", "bad_request").ErrorContext(r.Context(), "missing room id for action")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	logger := h.log(r.Context(), "Act", "room_id", roomID, "action", req.Action)

	var err error
	switch req.Action {
	case "join":
		err = h.admission.Join(r.Context(), roomID)
	case "leave":
		err = h.admission.Leave(r.Context(), roomID)
	default:
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidAction)
		return
	}

	if err != nil {
		logger.ErrorContext(r.Context(), "room action failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if h.realtime != nil {
		h.realtime.BroadcastEvent(roomChannel(roomID), Event{Type: "presence", RoomID: roomID, Detail: req.Action})
	}

	logger.InfoContext(r.Context(), "room action applied")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, successResponse{Success: true})
}

type roomDTO struct {
	ID               string `json:"id"`
	Emotion          string `json:"emotion"`
	ParticipantCount int    `json:"participantCount"`
	IsActive         bool   `json:"isActive"`
	CreatedAt        string `json:"createdAt"`
	ExpiresAt        string `json:"expiresAt"`
}

type roomResponse struct {
	Room roomDTO `json:"room"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func toRoomDTO(room application.Room) roomDTO {
	return roomDTO{
		ID:               room.ID,
		Emotion:          room.Emotion,
		ParticipantCount: room.ParticipantCount,
		IsActive:         room.IsActive,
		CreatedAt:        room.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:        room.ExpiresAt.UTC().Format(time.RFC3339),
	}
}
