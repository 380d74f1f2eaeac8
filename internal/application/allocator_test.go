package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/unmute/internal/persistence"
)

type stubAllocatorRepo struct {
	findOpenRoom func(ctx context.Context, emotion string, maxParticipants int, now time.Time) (persistence.Room, error)
	createRoom   func(ctx context.Context, room persistence.Room) error
	getRoom      func(ctx context.Context, id string) (persistence.Room, error)
}

func (s *stubAllocatorRepo) FindOpenRoom(ctx context.Context, emotion string, maxParticipants int, now time.Time) (persistence.Room, error) {
	if s.findOpenRoom == nil {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return s.findOpenRoom(ctx, emotion, maxParticipants, now)
}

func (s *stubAllocatorRepo) CreateRoom(ctx context.Context, room persistence.Room) error {
	if s.createRoom == nil {
		return nil
	}
	return s.createRoom(ctx, room)
}

func (s *stubAllocatorRepo) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if s.getRoom == nil {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return s.getRoom(ctx, id)
}

func fixedNow() time.Time {
	return time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)
}

func TestFindOrCreateReusesOpenRoom(t *testing.T) {
	now := fixedNow()
	existing := persistence.Room{
		ID:               "room-1",
		Emotion:          "anxious",
		ParticipantCount: 3,
		IsActive:         true,
		CreatedAt:        now.Add(-2 * time.Minute),
		ExpiresAt:        now.Add(13 * time.Minute),
	}

	created := false
	repo := &stubAllocatorRepo{
		findOpenRoom: func(_ context.Context, category string, maxParticipants int, _ time.Time) (persistence.Room, error) {
			if category != "anxious" {
				t.Fatalf("unexpected emotion %q", category)
			}
			if maxParticipants != 10 {
				t.Fatalf("expected capacity 10, got %d", maxParticipants)
			}
			return existing, nil
		},
		createRoom: func(context.Context, persistence.Room) error {
			created = true
			return nil
		},
	}

	allocator := NewRoomAllocator(repo, func() string { return "new-id" }, func() time.Time { return now }, nil)

	room, err := allocator.FindOrCreate(context.Background(), "anxious")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if room.ID != "room-1" {
		t.Fatalf("expected reuse of room-1, got %q", room.ID)
	}
	if created {
		t.Fatal("expected no room creation when an open room exists")
	}
}

func TestFindOrCreateCreatesFreshRoom(t *testing.T) {
	now := fixedNow()

	var stored persistence.Room
	repo := &stubAllocatorRepo{
		createRoom: func(_ context.Context, room persistence.Room) error {
			stored = room
			return nil
		},
	}

	allocator := NewRoomAllocator(repo, func() string { return "room-new" }, func() time.Time { return now }, nil)

	room, err := allocator.FindOrCreate(context.Background(), "lonely")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if room.ID != "room-new" {
		t.Fatalf("expected created room id, got %q", room.ID)
	}
	if stored.ParticipantCount != 0 {
		t.Fatalf("new room should start empty, got %d", stored.ParticipantCount)
	}
	if !stored.IsActive {
		t.Fatal("new room should be active")
	}
	if !stored.ExpiresAt.Equal(now.Add(RoomLifetime)) {
		t.Fatalf("expected expiry %v, got %v", now.Add(RoomLifetime), stored.ExpiresAt)
	}
}

func TestFindOrCreateRejectsUnknownEmotion(t *testing.T) {
	allocator := NewRoomAllocator(&stubAllocatorRepo{}, nil, nil, nil)

	_, err := allocator.FindOrCreate(context.Background(), "furious")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := vErr.FieldErrors["emotion"]; !ok {
		t.Fatalf("expected emotion field error, got %v", vErr.FieldErrors)
	}
}

func TestFindOrCreateWrapsStoreFailure(t *testing.T) {
	repo := &stubAllocatorRepo{
		findOpenRoom: func(context.Context, string, int, time.Time) (persistence.Room, error) {
			return persistence.Room{}, errors.New("disk failure")
		},
	}
	allocator := NewRoomAllocator(repo, nil, nil, nil)

	_, err := allocator.FindOrCreate(context.Background(), "anxious")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
