package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/example/unmute/internal/emotion"
	"github.com/example/unmute/internal/timer"
)

// TimerHandler coordinates one countdown per (emotion, room) pair and serves
// its state. Countdowns are created lazily on first read, resume from
// persisted snapshots, and are shared with sibling instances through the
// timer broadcaster.
type TimerHandler struct {
	store       timer.StateStore
	broadcaster *timer.Broadcaster
	realtime    *RealtimeHub
	duration    time.Duration
	now         func() time.Time

	mu         sync.Mutex
	countdowns map[string]*timer.Countdown

	responder responder
	logger    *slog.Logger
}

// NewTimerHandler constructs a timer handler.
func NewTimerHandler(store timer.StateStore, broadcaster *timer.Broadcaster, realtime *RealtimeHub, duration time.Duration, now func() time.Time, logger *slog.Logger) *TimerHandler {
	base := defaultLogger(logger)
	if now == nil {
		now = time.Now
	}
	return &TimerHandler{
		store:       store,
		broadcaster: broadcaster,
		realtime:    realtime,
		duration:    duration,
		now:         now,
		countdowns:  make(map[string]*timer.Countdown),
		responder:   newResponder(base),
		logger:      base,
	}
}

func (h *TimerHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TimerHandler", operation, attrs...)
}

func (h *TimerHandler) ensure(category, roomID string) (*timer.Countdown, error) {
	key := timer.Key(category, roomID)

	h.mu.Lock()
	defer h.mu.Unlock()

	if countdown, ok := h.countdowns[key]; ok {
		return countdown, nil
	}

	countdown := timer.NewCountdown(timer.Options{
		Emotion:     category,
		RoomID:      roomID,
		Duration:    h.duration,
		Store:       h.store,
		Broadcaster: h.broadcaster,
		Now:         h.now,
		OnComplete: func() {
			if h.realtime != nil {
				h.realtime.BroadcastEvent(emotionChannel(category), Event{Type: "timer_complete", RoomID: roomID})
			}
		},
	})
	if err := countdown.Start(); err != nil {
		return nil, err
	}
	h.countdowns[key] = countdown
	return countdown, nil
}

func (h *TimerHandler) drop(category, roomID string) {
	h.mu.Lock()
	delete(h.countdowns, timer.Key(category, roomID))
	h.mu.Unlock()
}

type timerStatusDTO struct {
	Emotion          string  `json:"emotion"`
	RoomID           string  `json:"roomId"`
	State            string  `json:"state"`
	RemainingSeconds int     `json:"remainingSeconds"`
	Progress         float64 `json:"progress"`
	FinalStretch     bool    `json:"finalStretch"`
}

func (h *TimerHandler) timerParams(w http.ResponseWriter, r *http.Request, operation string) (category, roomID string, ok bool) {
	category = strings.TrimSpace(r.URL.Query().Get("emotion"))
	if !emotion.IsValid(category) {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "unknown emotion for timer", "emotion", category)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingEmotion)
		return "", "", false
	}

	roomID = strings.TrimSpace(r.URL.Query().Get("roomId"))
	if roomID == "" {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "missing room id for timer", "emotion", category)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return "", "", false
	}

	return category, roomID, true
}

// Status handles GET /api/timer?emotion=&roomId= by reporting the room's
// countdown, starting one when none is running.
func (h *TimerHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.store == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	category, roomID, ok := h.timerParams(w, r, "Status")
	if !ok {
		return
	}

	countdown, err := h.ensure(category, roomID)
	if err != nil {
		h.log(r.Context(), "Status", "emotion", category, "room_id", roomID).ErrorContext(r.Context(), "failed to start countdown", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}

	countdown.Refresh()
	state := countdown.State()
	if state == timer.StateCompleted {
		// A finished countdown is reported once, then forgotten so the next
		// read starts the next session's countdown.
		h.drop(category, roomID)
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, timerStatusDTO{
		Emotion:          category,
		RoomID:           roomID,
		State:            state.String(),
		RemainingSeconds: int(countdown.Remaining() / time.Second),
		Progress:         countdown.Progress(),
		FinalStretch:     countdown.InFinalStretch(),
	})
}

// Clear handles DELETE /api/timer?emotion=&roomId= by ending the room's
// session everywhere: the snapshot is removed and sibling instances are
// signalled.
func (h *TimerHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.store == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	category, roomID, ok := h.timerParams(w, r, "Clear")
	if !ok {
		return
	}

	h.mu.Lock()
	countdown := h.countdowns[timer.Key(category, roomID)]
	delete(h.countdowns, timer.Key(category, roomID))
	h.mu.Unlock()

	if countdown != nil {
		countdown.Clear()
	} else {
		// No countdown in this instance; clear the shared state directly so
		// siblings still observe the end of session.
		if err := h.store.Remove(timer.Key(category, roomID)); err != nil {
			h.log(r.Context(), "Clear", "emotion", category, "room_id", roomID).ErrorContext(r.Context(), "failed to remove countdown snapshot", "error", err)
		}
		if h.broadcaster != nil {
			h.broadcaster.Publish(category, timer.SignalClear)
		}
	}

	h.log(r.Context(), "Clear", "emotion", category, "room_id", roomID).InfoContext(r.Context(), "countdown cleared")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, successResponse{Success: true})
}
