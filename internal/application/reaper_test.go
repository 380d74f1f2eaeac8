package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubReaperRepo struct {
	calls  int
	reaped int
	err    error
}

func (s *stubReaperRepo) DeactivateExpired(_ context.Context, _ time.Time) (int, error) {
	s.calls++
	return s.reaped, s.err
}

func TestSweepDeactivatesExpiredRooms(t *testing.T) {
	repo := &stubReaperRepo{reaped: 2}
	reaper := NewRoomReaper(repo, time.Minute, fixedNow, nil)

	reaper.Sweep(context.Background())
	if repo.calls != 1 {
		t.Fatalf("expected one sweep, got %d", repo.calls)
	}
}

func TestSweepToleratesStoreFailure(t *testing.T) {
	repo := &stubReaperRepo{err: errors.New("locked")}
	reaper := NewRoomReaper(repo, time.Minute, fixedNow, nil)

	// Must not panic and must not crash the loop.
	reaper.Sweep(context.Background())
	if repo.calls != 1 {
		t.Fatalf("expected one sweep, got %d", repo.calls)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	repo := &stubReaperRepo{}
	reaper := NewRoomReaper(repo, time.Hour, fixedNow, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reaper.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop after cancellation")
	}
}
