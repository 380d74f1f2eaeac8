package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/unmute/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
type SessionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateSession inserts a new session row.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) error {
	if session.ID == "" || session.RoomID == "" || session.AnonymousID == "" || session.Emotion == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO sessions (id, room_id, anonymous_id, emotion, joined_at, left_at, duration_seconds)
		VALUES (?, ?, ?, ?, ?, NULL, NULL)
	`

	_, err := r.helper.Exec(ctx, query,
		session.ID,
		session.RoomID,
		session.AnonymousID,
		session.Emotion,
		session.JoinedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// GetSession retrieves a session by ID.
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	if id == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, room_id, anonymous_id, emotion, joined_at, left_at, duration_seconds
		FROM sessions
		WHERE id = ?
	`

	session, err := scanSession(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Session{}, persistence.ErrNotFound
		}
		return persistence.Session{}, r.mapper.MapError(err)
	}

	return session, nil
}

// EndSession closes a session exactly once. The update is conditional on
// left_at still being NULL; an already-ended session is returned as stored.
func (r *SessionRepository) EndSession(ctx context.Context, id string, leftAt time.Time, durationSeconds int) (persistence.Session, error) {
	if id == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	query := `
		UPDATE sessions
		SET left_at = ?, duration_seconds = ?
		WHERE id = ? AND left_at IS NULL
	`

	result, err := r.helper.Exec(ctx, query,
		leftAt.UTC().Format(time.RFC3339),
		durationSeconds,
		id,
	)
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.Session{}, fmt.Errorf("failed to get rows affected: %w", err)
	}

	stored, err := r.GetSession(ctx, id)
	if err != nil {
		return persistence.Session{}, err
	}

	// affected == 0 with an existing row means the session was already
	// closed; the stored values win.
	_ = affected
	return stored, nil
}

func scanSession(row rowScanner) (persistence.Session, error) {
	var session persistence.Session
	var joinedAtStr string
	var leftAtStr sql.NullString
	var duration sql.NullInt64

	err := row.Scan(
		&session.ID,
		&session.RoomID,
		&session.AnonymousID,
		&session.Emotion,
		&joinedAtStr,
		&leftAtStr,
		&duration,
	)
	if err != nil {
		return persistence.Session{}, err
	}

	if session.JoinedAt, err = time.Parse(time.RFC3339, joinedAtStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse joined_at: %w", err)
	}

	if leftAtStr.Valid {
		leftAt, err := time.Parse(time.RFC3339, leftAtStr.String)
		if err != nil {
			return persistence.Session{}, fmt.Errorf("failed to parse left_at: %w", err)
		}
		session.LeftAt = &leftAt
	}

	if duration.Valid {
		value := int(duration.Int64)
		session.DurationSeconds = &value
	}

	return session, nil
}
