package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/unmute/internal/persistence"
)

// TelemetryRepository implements persistence.TelemetryRepository using SQLite.
type TelemetryRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewTelemetryRepository creates a new SQLite telemetry repository.
func NewTelemetryRepository(pool *ConnectionPool) *TelemetryRepository {
	return &TelemetryRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateReaction appends a reaction row.
func (r *TelemetryRepository) CreateReaction(ctx context.Context, reaction persistence.Reaction) error {
	if reaction.ID == "" || reaction.RoomID == "" || reaction.SessionID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO reactions (id, room_id, session_id, reaction_type, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		reaction.ID,
		reaction.RoomID,
		reaction.SessionID,
		reaction.ReactionType,
		reaction.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// ListRecentReactions returns reactions for a room created at or after since,
// newest first.
func (r *TelemetryRepository) ListRecentReactions(ctx context.Context, roomID string, since time.Time) ([]persistence.Reaction, error) {
	query := `
		SELECT id, room_id, session_id, reaction_type, created_at
		FROM reactions
		WHERE room_id = ? AND created_at >= ?
		ORDER BY created_at DESC
	`

	rows, err := r.helper.Query(ctx, query, roomID, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var reactions []persistence.Reaction

	for rows.Next() {
		var reaction persistence.Reaction
		var createdAtStr string

		if err := rows.Scan(
			&reaction.ID,
			&reaction.RoomID,
			&reaction.SessionID,
			&reaction.ReactionType,
			&createdAtStr,
		); err != nil {
			return nil, r.mapper.MapError(err)
		}

		if reaction.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		reactions = append(reactions, reaction)
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return reactions, nil
}

// CreateReflection appends a reflection row.
func (r *TelemetryRepository) CreateReflection(ctx context.Context, reflection persistence.Reflection) error {
	if reflection.ID == "" || reflection.SessionID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO reflections (id, session_id, feeling_before, feeling_after, gratitude_note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		reflection.ID,
		reflection.SessionID,
		reflection.FeelingBefore,
		reflection.FeelingAfter,
		nullableString(reflection.GratitudeNote),
		reflection.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// CreateFeedback appends a feedback row.
func (r *TelemetryRepository) CreateFeedback(ctx context.Context, feedback persistence.Feedback) error {
	if feedback.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO feedback (id, session_id, feeling, message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		feedback.ID,
		nullableString(feedback.SessionID),
		nullableString(feedback.Feeling),
		nullableString(feedback.Message),
		feedback.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}

// Stats aggregates session counts since dayStart and live room occupancy.
func (r *TelemetryRepository) Stats(ctx context.Context, dayStart, now time.Time) (persistence.RoomStats, error) {
	stats := persistence.RoomStats{SessionsByEmotion: make(map[string]int)}

	rows, err := r.helper.Query(ctx, `
		SELECT emotion, COUNT(*)
		FROM sessions
		WHERE joined_at >= ?
		GROUP BY emotion
	`, dayStart.UTC().Format(time.RFC3339))
	if err != nil {
		return persistence.RoomStats{}, r.mapper.MapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var emotion string
		var count int
		if err := rows.Scan(&emotion, &count); err != nil {
			return persistence.RoomStats{}, r.mapper.MapError(err)
		}
		stats.SessionsByEmotion[emotion] = count
		stats.TotalSessionsToday += count
	}
	if err := rows.Err(); err != nil {
		return persistence.RoomStats{}, r.mapper.MapError(err)
	}

	var participants sql.NullInt64
	err = r.helper.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(participant_count), 0)
		FROM rooms
		WHERE is_active = 1 AND expires_at > ?
	`, now.UTC().Format(time.RFC3339)).Scan(&stats.ActiveRooms, &participants)
	if err != nil {
		return persistence.RoomStats{}, r.mapper.MapError(err)
	}
	if participants.Valid {
		stats.TotalParticipantsNow = int(participants.Int64)
	}

	return stats, nil
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
