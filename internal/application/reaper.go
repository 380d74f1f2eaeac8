package application

import (
	"context"
	"log/slog"
	"time"
)

// ReaperRepository captures the sweep operation the reaper runs.
type ReaperRepository interface {
	DeactivateExpired(ctx context.Context, now time.Time) (int, error)
}

// RoomReaper periodically flips is_active off on rooms past their expiry.
// Expiry enforcement on the join path never depends on the reaper; the sweep
// only keeps the allocator's candidate set small and reclaims index space.
type RoomReaper struct {
	rooms    ReaperRepository
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewRoomReaper constructs a reaper. A non-positive interval defaults to one
// minute.
func NewRoomReaper(rooms ReaperRepository, interval time.Duration, now func() time.Time, logger *slog.Logger) *RoomReaper {
	if interval <= 0 {
		interval = time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &RoomReaper{rooms: rooms, interval: interval, now: now, logger: defaultLogger(logger)}
}

// Run sweeps on the configured interval until ctx is cancelled. It blocks,
// so callers start it on its own goroutine.
func (r *RoomReaper) Run(ctx context.Context) {
	if r == nil || r.rooms == nil {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	logger := r.logger.With("service", "RoomReaper")
	logger.InfoContext(ctx, "room reaper started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "room reaper stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one deactivation pass.
func (r *RoomReaper) Sweep(ctx context.Context) {
	if r == nil || r.rooms == nil {
		return
	}

	logger := r.logger.With("service", "RoomReaper", "operation", "Sweep")

	reaped, err := r.rooms.DeactivateExpired(ctx, r.now())
	if err != nil {
		logger.ErrorContext(ctx, "sweep failed", "error", err)
		return
	}
	if reaped > 0 {
		logger.InfoContext(ctx, "expired rooms deactivated", "count", reaped)
	}
}
