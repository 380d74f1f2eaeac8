package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/unmute/internal/emotion"
	"github.com/example/unmute/internal/persistence"
)

// admissionAttempts bounds the join retry loop. A rejected write normally
// classifies on the very next read; the bound only guards against a room
// that keeps filling and draining between read and write.
const admissionAttempts = 3

// AdmissionRepository captures the conditional-update operations the
// admission protocol is built on.
type AdmissionRepository interface {
	GetRoom(ctx context.Context, id string) (persistence.Room, error)
	IncrementParticipantCount(ctx context.Context, id string, maxParticipants int, now time.Time) error
	DecrementParticipantCount(ctx context.Context, id string, now time.Time) error
}

// AdmissionController admits and releases participants against a room's
// capacity cap. All coordination happens through the store's conditional
// writes; no in-process locks are involved, so any number of service
// instances can race safely.
type AdmissionController struct {
	rooms  AdmissionRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewAdmissionController constructs an admission controller.
func NewAdmissionController(rooms AdmissionRepository, now func() time.Time, logger *slog.Logger) *AdmissionController {
	if now == nil {
		now = time.Now
	}
	return &AdmissionController{rooms: rooms, now: now, logger: defaultLogger(logger)}
}

func (s *AdmissionController) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AdmissionController", operation, attrs...)
}

// Join admits one participant into the room without exceeding its capacity,
// despite concurrent callers.
//
// The read validates admissibility; the increment is guarded on the capacity
// cap in the store itself, so any number of joiners racing through the gap
// between read and write all land as long as seats remain and none lands
// past the cap. A rejected write means the room filled mid-race; the state
// is reread so the caller gets ErrRoomFull for the room as it now stands.
func (s *AdmissionController) Join(ctx context.Context, roomID string) (err error) {
	if s == nil || s.rooms == nil {
		return fmt.Errorf("admission controller not configured")
	}
	if roomID == "" {
		vErr := &ValidationError{}
		vErr.add("roomId", "room ID is required")
		return vErr
	}

	logger := s.loggerWith(ctx, "Join", "room_id", roomID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "join failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "participant admitted")
	}()

	for attempt := 0; attempt < admissionAttempts; attempt++ {
		room, getErr := s.rooms.GetRoom(ctx, roomID)
		if getErr != nil {
			if errors.Is(getErr, persistence.ErrNotFound) {
				err = ErrNotFound
				return
			}
			err = fmt.Errorf("%w: %v", ErrStoreUnavailable, getErr)
			return
		}

		now := s.now()
		if !room.IsActive || !room.ExpiresAt.After(now) {
			err = ErrRoomExpired
			return
		}

		maxParticipants, lookupErr := emotion.MaxParticipants(room.Emotion)
		if lookupErr != nil {
			// Room carries a category no longer configured; treat it as
			// capped at the default rather than unjoinable.
			maxParticipants = emotion.DefaultMaxParticipants
		}

		if room.ParticipantCount >= maxParticipants {
			err = ErrRoomFull
			return
		}

		swapErr := s.rooms.IncrementParticipantCount(ctx, roomID, maxParticipants, now)
		if swapErr == nil {
			return nil
		}
		if !errors.Is(swapErr, persistence.ErrStaleCount) {
			err = fmt.Errorf("%w: %v", ErrStoreUnavailable, swapErr)
			return
		}

		logger.WarnContext(ctx, "room filled mid-race, rereading", "attempt", attempt+1)
	}

	err = fmt.Errorf("%w: try joining again", ErrRoomFull)
	return
}

// Leave releases one participant from the room.
//
// The decrement is floored at zero in the store itself, so concurrent
// leaves can neither under-count nor drive the count negative. A write
// rejected because the count already reached zero is treated as done: the
// participant is gone either way.
func (s *AdmissionController) Leave(ctx context.Context, roomID string) (err error) {
	if s == nil || s.rooms == nil {
		return fmt.Errorf("admission controller not configured")
	}
	if roomID == "" {
		vErr := &ValidationError{}
		vErr.add("roomId", "room ID is required")
		return vErr
	}

	logger := s.loggerWith(ctx, "Leave", "room_id", roomID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "leave failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "participant released")
	}()

	room, getErr := s.rooms.GetRoom(ctx, roomID)
	if getErr != nil {
		if errors.Is(getErr, persistence.ErrNotFound) {
			err = ErrNotFound
			return
		}
		err = fmt.Errorf("%w: %v", ErrStoreUnavailable, getErr)
		return
	}

	if room.ParticipantCount <= 0 {
		return nil
	}

	swapErr := s.rooms.DecrementParticipantCount(ctx, roomID, s.now())
	if swapErr == nil {
		return nil
	}
	if errors.Is(swapErr, persistence.ErrStaleCount) {
		// Concurrent leaves already emptied the room.
		return nil
	}
	err = fmt.Errorf("%w: %v", ErrStoreUnavailable, swapErr)
	return
}
