package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/unmute/internal/persistence"
	"github.com/example/unmute/internal/testfixtures"
)

func TestSessionRoundTrip(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	fixture := testfixtures.NewSessionFixture("room-a", "anxious")
	if err := harness.Sessions.CreateSession(ctx, fixture.Persistence()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := harness.Sessions.GetSession(ctx, fixture.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.RoomID != "room-a" || stored.AnonymousID != fixture.AnonymousID {
		t.Fatalf("unexpected session: %+v", stored)
	}
	if stored.LeftAt != nil || stored.DurationSeconds != nil {
		t.Fatalf("open session must have nil end fields: %+v", stored)
	}
}

func TestGetSessionMissing(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)

	if _, err := harness.Sessions.GetSession(context.Background(), "ghost"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEndSessionSetsOnce(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	fixture := testfixtures.NewSessionFixture("room-a", "lonely")
	if err := harness.Sessions.CreateSession(ctx, fixture.Persistence()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	firstLeft := fixture.JoinedAt.Add(5 * time.Minute)
	ended, err := harness.Sessions.EndSession(ctx, fixture.ID, firstLeft, 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ended.LeftAt == nil || !ended.LeftAt.Equal(firstLeft) {
		t.Fatalf("unexpected left_at: %+v", ended.LeftAt)
	}
	if ended.DurationSeconds == nil || *ended.DurationSeconds != 300 {
		t.Fatalf("unexpected duration: %+v", ended.DurationSeconds)
	}

	// A second end attempt must not move the recorded values.
	again, err := harness.Sessions.EndSession(ctx, fixture.ID, firstLeft.Add(time.Hour), 9999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !again.LeftAt.Equal(firstLeft) || *again.DurationSeconds != 300 {
		t.Fatalf("ended session was rewritten: %+v", again)
	}
}

func TestEndSessionMissing(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)

	_, err := harness.Sessions.EndSession(context.Background(), "ghost", testfixtures.ReferenceTime(), 60)
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
