package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/unmute/internal/application"
	"github.com/example/unmute/internal/persistence"
	"github.com/example/unmute/internal/testfixtures"
)

func TestRoomRoundTrip(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	fixture := testfixtures.NewRoomFixture("anxious")
	if err := harness.Rooms.CreateRoom(ctx, fixture.Persistence()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := harness.Rooms.GetRoom(ctx, fixture.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Emotion != "anxious" || !stored.IsActive || stored.ParticipantCount != 0 {
		t.Fatalf("unexpected room: %+v", stored)
	}
	if !stored.ExpiresAt.Equal(fixture.ExpiresAt) {
		t.Fatalf("expected expiry %v, got %v", fixture.ExpiresAt, stored.ExpiresAt)
	}
}

func TestGetRoomMissing(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)

	if _, err := harness.Rooms.GetRoom(context.Background(), "ghost"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindOpenRoomFilters(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	now := testfixtures.ReferenceTime()

	expired := testfixtures.NewRoomFixture("anxious")
	expired.ExpiresAt = now.Add(-time.Minute)
	full := testfixtures.NewRoomFixture("anxious")
	full.ParticipantCount = 10
	inactive := testfixtures.NewRoomFixture("anxious")
	inactive.IsActive = false
	otherEmotion := testfixtures.NewRoomFixture("lonely")
	open := testfixtures.NewRoomFixture("anxious")
	open.ParticipantCount = 4

	for _, fixture := range []testfixtures.RoomFixture{expired, full, inactive, otherEmotion, open} {
		if err := harness.Rooms.CreateRoom(ctx, fixture.Persistence()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	found, err := harness.Rooms.FindOpenRoom(ctx, "anxious", 10, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.ID != open.ID {
		t.Fatalf("expected %q, got %q", open.ID, found.ID)
	}

	if _, err := harness.Rooms.FindOpenRoom(ctx, "burnt-out", 10, now); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindOpenRoomPrefersNewest(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	now := testfixtures.ReferenceTime()

	older := testfixtures.NewRoomFixture("lonely")
	older.CreatedAt = now.Add(-5 * time.Minute)
	newer := testfixtures.NewRoomFixture("lonely")

	for _, fixture := range []testfixtures.RoomFixture{older, newer} {
		if err := harness.Rooms.CreateRoom(ctx, fixture.Persistence()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	found, err := harness.Rooms.FindOpenRoom(ctx, "lonely", 10, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.ID != newer.ID {
		t.Fatalf("expected newest room %q, got %q", newer.ID, found.ID)
	}
}

func TestIncrementParticipantCountGuardsCapacity(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	now := testfixtures.ReferenceTime()

	fixture := testfixtures.NewRoomFixture("anxious")
	if err := harness.Rooms.CreateRoom(ctx, fixture.Persistence()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := harness.Rooms.IncrementParticipantCount(ctx, fixture.ID, 2, now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// The cap is reached; the write must refuse to move the count past it.
	err := harness.Rooms.IncrementParticipantCount(ctx, fixture.ID, 2, now)
	if !errors.Is(err, persistence.ErrStaleCount) {
		t.Fatalf("expected ErrStaleCount, got %v", err)
	}

	stored, err := harness.Rooms.GetRoom(ctx, fixture.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.ParticipantCount != 2 {
		t.Fatalf("expected count 2, got %d", stored.ParticipantCount)
	}
}

func TestDecrementParticipantCountFloorsAtZero(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	now := testfixtures.ReferenceTime()

	fixture := testfixtures.NewRoomFixture("anxious")
	if err := harness.Rooms.CreateRoom(ctx, fixture.Persistence()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := harness.Rooms.DecrementParticipantCount(ctx, fixture.ID, now); !errors.Is(err, persistence.ErrStaleCount) {
		t.Fatalf("expected ErrStaleCount at zero, got %v", err)
	}

	if err := harness.Rooms.IncrementParticipantCount(ctx, fixture.ID, 10, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := harness.Rooms.DecrementParticipantCount(ctx, fixture.ID, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := harness.Rooms.GetRoom(ctx, fixture.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.ParticipantCount != 0 {
		t.Fatalf("expected count 0, got %d", stored.ParticipantCount)
	}
}

func TestDeactivateExpired(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	now := testfixtures.ReferenceTime()

	expired := testfixtures.NewRoomFixture("anxious")
	expired.ExpiresAt = now.Add(-time.Second)
	live := testfixtures.NewRoomFixture("anxious")

	for _, fixture := range []testfixtures.RoomFixture{expired, live} {
		if err := harness.Rooms.CreateRoom(ctx, fixture.Persistence()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	reaped, err := harness.Rooms.DeactivateExpired(ctx, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reaped != 1 {
		t.Fatalf("expected 1 reaped room, got %d", reaped)
	}

	stored, err := harness.Rooms.GetRoom(ctx, expired.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.IsActive {
		t.Fatal("expired room should be inactive")
	}

	kept, err := harness.Rooms.GetRoom(ctx, live.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !kept.IsActive {
		t.Fatal("live room should stay active")
	}
}

// Capacity must hold under concurrent admission: with more joiners than
// seats, exactly the capacity cap gets in.
func TestConcurrentJoinsNeverExceedCapacity(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	now := testfixtures.ReferenceTime()

	fixture := testfixtures.NewRoomFixture("anxious")
	if err := harness.Rooms.CreateRoom(ctx, fixture.Persistence()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	controller := application.NewAdmissionController(harness.Rooms, func() time.Time { return now }, nil)

	const joiners = 25
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	rejected := 0

	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := controller.Join(ctx, fixture.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, application.ErrRoomFull):
				rejected++
			default:
				t.Errorf("unexpected join error: %v", err)
			}
		}()
	}
	wg.Wait()

	if admitted != 10 || rejected != joiners-10 {
		t.Fatalf("expected 10 admitted and %d rejected, got %d/%d", joiners-10, admitted, rejected)
	}

	stored, err := harness.Rooms.GetRoom(ctx, fixture.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.ParticipantCount != 10 {
		t.Fatalf("expected count 10, got %d", stored.ParticipantCount)
	}
}

// With exactly as many joiners as seats, nobody may be turned away: a join
// rejected by contention alone would strand a seat.
func TestConcurrentJoinsAtExactCapacityAllAdmitted(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	now := testfixtures.ReferenceTime()

	fixture := testfixtures.NewRoomFixture("anxious")
	if err := harness.Rooms.CreateRoom(ctx, fixture.Persistence()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	controller := application.NewAdmissionController(harness.Rooms, func() time.Time { return now }, nil)

	const joiners = 10
	var wg sync.WaitGroup
	errs := make(chan error, joiners)

	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- controller.Join(ctx, fixture.ID)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("join rejected with seats available: %v", err)
		}
	}

	stored, err := harness.Rooms.GetRoom(ctx, fixture.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.ParticipantCount != joiners {
		t.Fatalf("expected count %d, got %d", joiners, stored.ParticipantCount)
	}
}
