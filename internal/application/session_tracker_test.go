package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/unmute/internal/persistence"
)

type stubSessionRepo struct {
	sessions map[string]persistence.Session
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: make(map[string]persistence.Session)}
}

func (s *stubSessionRepo) CreateSession(_ context.Context, session persistence.Session) error {
	s.sessions[session.ID] = session
	return nil
}

func (s *stubSessionRepo) GetSession(_ context.Context, id string) (persistence.Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (s *stubSessionRepo) EndSession(_ context.Context, id string, leftAt time.Time, durationSeconds int) (persistence.Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	if session.LeftAt == nil {
		session.LeftAt = &leftAt
		session.DurationSeconds = &durationSeconds
		s.sessions[id] = session
	}
	return s.sessions[id], nil
}

func TestStartAndEndSession(t *testing.T) {
	now := fixedNow()
	repo := newStubSessionRepo()
	tracker := NewSessionTracker(repo, func() string { return "session-1" }, func() time.Time { return now }, nil)
	ctx := context.Background()

	session, err := tracker.Start(ctx, StartSessionParams{
		RoomID:      "room-1",
		AnonymousID: "anon-1",
		Emotion:     "anxious",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ID != "session-1" || !session.JoinedAt.Equal(now) {
		t.Fatalf("unexpected session: %+v", session)
	}
	if session.LeftAt != nil {
		t.Fatal("new session must not have a leave instant")
	}

	ended, err := tracker.End(ctx, EndSessionParams{SessionID: "session-1", DurationSeconds: 420})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ended.LeftAt == nil || !ended.LeftAt.Equal(now) {
		t.Fatalf("expected leave instant %v, got %v", now, ended.LeftAt)
	}
	if ended.DurationSeconds == nil || *ended.DurationSeconds != 420 {
		t.Fatalf("expected duration 420, got %v", ended.DurationSeconds)
	}
}

func TestEndSessionIsSetOnce(t *testing.T) {
	now := fixedNow()
	repo := newStubSessionRepo()
	clock := now
	tracker := NewSessionTracker(repo, func() string { return "session-1" }, func() time.Time { return clock }, nil)
	ctx := context.Background()

	if _, err := tracker.Start(ctx, StartSessionParams{RoomID: "room-1", AnonymousID: "anon-1", Emotion: "lonely"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, err := tracker.End(ctx, EndSessionParams{SessionID: "session-1", DurationSeconds: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock = now.Add(time.Minute)
	second, err := tracker.End(ctx, EndSessionParams{SessionID: "session-1", DurationSeconds: 999})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.LeftAt.Equal(*first.LeftAt) || *second.DurationSeconds != *first.DurationSeconds {
		t.Fatalf("closed session must not change: first=%+v second=%+v", first, second)
	}
}

func TestStartValidatesInput(t *testing.T) {
	tracker := NewSessionTracker(newStubSessionRepo(), nil, nil, nil)

	_, err := tracker.Start(context.Background(), StartSessionParams{})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"roomId", "anonymousId", "emotion"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Fatalf("expected %s field error, got %v", field, vErr.FieldErrors)
		}
	}
}

func TestEndClampsNegativeDuration(t *testing.T) {
	repo := newStubSessionRepo()
	tracker := NewSessionTracker(repo, func() string { return "session-1" }, fixedNow, nil)
	ctx := context.Background()

	if _, err := tracker.Start(ctx, StartSessionParams{RoomID: "room-1", AnonymousID: "anon-1", Emotion: "anxious"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ended, err := tracker.End(ctx, EndSessionParams{SessionID: "session-1", DurationSeconds: -5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *ended.DurationSeconds != 0 {
		t.Fatalf("expected clamped duration 0, got %d", *ended.DurationSeconds)
	}
}

func TestEndMissingSession(t *testing.T) {
	tracker := NewSessionTracker(newStubSessionRepo(), nil, nil, nil)

	if _, err := tracker.End(context.Background(), EndSessionParams{SessionID: "ghost"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
