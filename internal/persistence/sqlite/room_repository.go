package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/unmute/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite.
type RoomRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRoomRepository creates a new SQLite room repository.
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateRoom inserts a new room into the database.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" || room.Emotion == "" {
		return persistence.ErrConstraintViolation
	}
	if room.ParticipantCount < 0 {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO rooms (id, emotion, participant_count, is_active, created_at, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		room.ID,
		room.Emotion,
		room.ParticipantCount,
		boolToInt(room.IsActive),
		room.CreatedAt.UTC().Format(time.RFC3339),
		room.ExpiresAt.UTC().Format(time.RFC3339),
		room.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return r.mapRoomError(err)
	}

	return nil
}

// GetRoom retrieves a room by ID from the database.
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, emotion, participant_count, is_active, created_at, expires_at, updated_at
		FROM rooms
		WHERE id = ?
	`

	room, err := scanRoom(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Room{}, persistence.ErrNotFound
		}
		return persistence.Room{}, r.mapper.MapError(err)
	}

	return room, nil
}

// FindOpenRoom returns the newest admissible room for an emotion.
//
// Newest-first ordering deliberately packs recently created rooms and lets
// older near-expiry rooms drain instead of round-robining joiners into them.
func (r *RoomRepository) FindOpenRoom(ctx context.Context, emotion string, maxParticipants int, now time.Time) (persistence.Room, error) {
	query := `
		SELECT id, emotion, participant_count, is_active, created_at, expires_at, updated_at
		FROM rooms
		WHERE emotion = ?
		  AND is_active = 1
		  AND participant_count < ?
		  AND expires_at > ?
		ORDER BY created_at DESC
		LIMIT 1
	`

	room, err := scanRoom(r.helper.QueryRow(ctx, query,
		emotion,
		maxParticipants,
		now.UTC().Format(time.RFC3339),
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Room{}, persistence.ErrNotFound
		}
		return persistence.Room{}, r.mapper.MapError(err)
	}

	return room, nil
}

// IncrementParticipantCount performs the guarded join write: the count only
// moves while it is still below the capacity cap, so interleaved joiners can
// never push a room past capacity and never reject each other while seats
// remain.
func (r *RoomRepository) IncrementParticipantCount(ctx context.Context, id string, maxParticipants int, now time.Time) error {
	query := `
		UPDATE rooms
		SET participant_count = participant_count + 1, updated_at = ?
		WHERE id = ? AND participant_count < ?
	`

	result, err := r.helper.Exec(ctx, query, now.UTC().Format(time.RFC3339), id, maxParticipants)
	if err != nil {
		return r.mapRoomError(err)
	}

	return r.requireAffected(result)
}

// DecrementParticipantCount performs the guarded leave write, floored at zero
// so concurrent leaves cannot drive the count negative.
func (r *RoomRepository) DecrementParticipantCount(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE rooms
		SET participant_count = participant_count - 1, updated_at = ?
		WHERE id = ? AND participant_count > 0
	`

	result, err := r.helper.Exec(ctx, query, now.UTC().Format(time.RFC3339), id)
	if err != nil {
		return r.mapRoomError(err)
	}

	return r.requireAffected(result)
}

// DeactivateExpired flips is_active off for rooms past their expiry.
func (r *RoomRepository) DeactivateExpired(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE rooms
		SET is_active = 0, updated_at = ?
		WHERE is_active = 1 AND expires_at <= ?
	`

	stamp := now.UTC().Format(time.RFC3339)
	result, err := r.helper.Exec(ctx, query, stamp, stamp)
	if err != nil {
		return 0, r.mapRoomError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(affected), nil
}

// requireAffected translates a zero-row conditional update into ErrStaleCount.
func (r *RoomRepository) requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrStaleCount
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (persistence.Room, error) {
	var room persistence.Room
	var isActive int
	var createdAtStr, expiresAtStr, updatedAtStr string

	err := row.Scan(
		&room.ID,
		&room.Emotion,
		&room.ParticipantCount,
		&isActive,
		&createdAtStr,
		&expiresAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Room{}, err
	}

	room.IsActive = isActive != 0

	if room.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if room.ExpiresAt, err = time.Parse(time.RFC3339, expiresAtStr); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse expires_at: %w", err)
	}
	if room.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return room, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// mapRoomError maps SQLite errors to persistence errors for room operations.
func (r *RoomRepository) mapRoomError(err error) error {
	if err == nil {
		return nil
	}

	errStr := err.Error()

	if containsAny(errStr, []string{"UNIQUE constraint failed"}) {
		return persistence.ErrDuplicate
	}

	if containsAny(errStr, []string{"CHECK constraint failed"}) {
		return persistence.ErrConstraintViolation
	}

	return r.mapper.MapError(err)
}
