package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/unmute/internal/persistence"
	"github.com/example/unmute/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool      *sqlite.ConnectionPool
	Rooms     persistence.RoomRepository
	Sessions  persistence.SessionRepository
	Quotas    persistence.QuotaRepository
	Telemetry persistence.TelemetryRepository
	Profiles  persistence.ProfileRepository
	Donations persistence.DonationRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// also registers a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "unmute.db")

	pool, err := sqlite.NewConnectionPool(path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to apply migrations: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:      pool,
		Rooms:     sqlite.NewRoomRepository(pool),
		Sessions:  sqlite.NewSessionRepository(pool),
		Quotas:    sqlite.NewQuotaRepository(pool),
		Telemetry: sqlite.NewTelemetryRepository(pool),
		Profiles:  sqlite.NewProfileRepository(pool),
		Donations: sqlite.NewDonationRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
