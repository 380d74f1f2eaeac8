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

// RoomLifetime is how long a room accepts joins after creation.
const RoomLifetime = 15 * time.Minute

// AllocatorRepository captures the persistence operations the allocator needs.
type AllocatorRepository interface {
	FindOpenRoom(ctx context.Context, emotion string, maxParticipants int, now time.Time) (persistence.Room, error)
	CreateRoom(ctx context.Context, room persistence.Room) error
	GetRoom(ctx context.Context, id string) (persistence.Room, error)
}

// RoomAllocator finds an admissible room for an emotion or creates one.
//
// Allocation only locates a candidate; it never increments the participant
// count. Two concurrent allocations may return the same room and then race
// in the AdmissionController, which resolves capacity safely.
type RoomAllocator struct {
	rooms       AllocatorRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRoomAllocator constructs an allocator with the provided dependencies.
func NewRoomAllocator(rooms AllocatorRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RoomAllocator {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoomAllocator{rooms: rooms, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *RoomAllocator) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomAllocator", operation, attrs...)
}

// FindOrCreate returns the newest open room for the category, creating a
// fresh one when none qualifies.
func (s *RoomAllocator) FindOrCreate(ctx context.Context, category string) (room Room, err error) {
	if s == nil || s.rooms == nil {
		return Room{}, fmt.Errorf("room allocator not configured")
	}

	logger := s.loggerWith(ctx, "FindOrCreate", "emotion", category)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "room allocation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID, "participant_count", room.ParticipantCount).InfoContext(ctx, "room allocated")
	}()

	maxParticipants, lookupErr := emotion.MaxParticipants(category)
	if lookupErr != nil {
		vErr := &ValidationError{}
		vErr.add("emotion", "valid emotion is required")
		err = vErr
		return
	}

	now := s.now()

	existing, findErr := s.rooms.FindOpenRoom(ctx, category, maxParticipants, now)
	if findErr == nil {
		room = toApplicationRoom(existing)
		return
	}
	if !errors.Is(findErr, persistence.ErrNotFound) {
		err = fmt.Errorf("%w: %v", ErrStoreUnavailable, findErr)
		return
	}

	created := persistence.Room{
		ID:               s.idGenerator(),
		Emotion:          category,
		ParticipantCount: 0,
		IsActive:         true,
		CreatedAt:        now,
		ExpiresAt:        now.Add(RoomLifetime),
		UpdatedAt:        now,
	}

	if createErr := s.rooms.CreateRoom(ctx, created); createErr != nil {
		err = fmt.Errorf("%w: %v", ErrStoreUnavailable, createErr)
		return
	}

	room = toApplicationRoom(created)
	return
}

func toApplicationRoom(model persistence.Room) Room {
	return Room{
		ID:               model.ID,
		Emotion:          model.Emotion,
		ParticipantCount: model.ParticipantCount,
		IsActive:         model.IsActive,
		CreatedAt:        model.CreatedAt,
		ExpiresAt:        model.ExpiresAt,
		UpdatedAt:        model.UpdatedAt,
	}
}
