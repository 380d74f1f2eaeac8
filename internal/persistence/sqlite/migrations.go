package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is one versioned schema step. Statements run inside a single
// transaction together with the version bookkeeping, so a failed step leaves
// the schema at the previous version.
type migration struct {
	version    int
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS rooms (
				id TEXT PRIMARY KEY,
				emotion TEXT NOT NULL,
				participant_count INTEGER NOT NULL DEFAULT 0 CHECK (participant_count >= 0),
				is_active INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL,
				expires_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_rooms_open
				ON rooms (emotion, is_active, expires_at, participant_count)`,
			`CREATE TABLE IF NOT EXISTS sessions (
				id TEXT PRIMARY KEY,
				room_id TEXT NOT NULL REFERENCES rooms(id),
				anonymous_id TEXT NOT NULL,
				emotion TEXT NOT NULL,
				joined_at TEXT NOT NULL,
				left_at TEXT,
				duration_seconds INTEGER
			)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_joined_at ON sessions (joined_at)`,
			`CREATE TABLE IF NOT EXISTS anonymous_device_joins (
				fingerprint TEXT PRIMARY KEY,
				join_count INTEGER NOT NULL CHECK (join_count >= 0),
				last_joined_at TEXT NOT NULL
			)`,
		},
	},
	{
		version: 2,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS reactions (
				id TEXT PRIMARY KEY,
				room_id TEXT NOT NULL,
				session_id TEXT NOT NULL,
				reaction_type TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_reactions_room_created
				ON reactions (room_id, created_at)`,
			`CREATE TABLE IF NOT EXISTS reflections (
				id TEXT PRIMARY KEY,
				session_id TEXT NOT NULL,
				feeling_before TEXT NOT NULL DEFAULT '',
				feeling_after TEXT NOT NULL DEFAULT '',
				gratitude_note TEXT,
				created_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS feedback (
				id TEXT PRIMARY KEY,
				session_id TEXT,
				feeling TEXT,
				message TEXT,
				created_at TEXT NOT NULL
			)`,
		},
	},
	{
		version: 3,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS user_profiles (
				user_id TEXT PRIMARY KEY,
				has_accepted_terms INTEGER NOT NULL DEFAULT 0,
				terms_accepted_at TEXT,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS donations (
				id TEXT PRIMARY KEY,
				order_id TEXT NOT NULL,
				payment_id TEXT NOT NULL,
				amount INTEGER NOT NULL,
				currency TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`,
		},
	},
}

// Migrate applies all pending migrations in version order.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	if _, err := pool.DB().ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("failed to initialize version table: %w", err)
	}

	current, err := currentVersion(ctx, pool.DB())
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		step := m
		if err := pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, stmt := range step.statements {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("migration %d failed: %w", step.version, err)
				}
			}
			_, err := tx.Exec(
				`INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))`,
				step.version,
			)
			return err
		}); err != nil {
			return err
		}
	}

	return nil
}

func currentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version sql.NullInt64
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
