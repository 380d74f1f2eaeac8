package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/unmute/internal/persistence"
)

// ProfileRepository implements persistence.ProfileRepository using SQLite.
type ProfileRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewProfileRepository creates a new SQLite profile repository.
func NewProfileRepository(pool *ConnectionPool) *ProfileRepository {
	return &ProfileRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// GetProfile retrieves the profile for a user.
func (r *ProfileRepository) GetProfile(ctx context.Context, userID string) (persistence.UserProfile, error) {
	if userID == "" {
		return persistence.UserProfile{}, persistence.ErrNotFound
	}

	query := `
		SELECT user_id, has_accepted_terms, terms_accepted_at, updated_at
		FROM user_profiles
		WHERE user_id = ?
	`

	var profile persistence.UserProfile
	var accepted int
	var acceptedAtStr sql.NullString
	var updatedAtStr string

	err := r.helper.QueryRow(ctx, query, userID).Scan(
		&profile.UserID,
		&accepted,
		&acceptedAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.UserProfile{}, persistence.ErrNotFound
		}
		return persistence.UserProfile{}, r.mapper.MapError(err)
	}

	profile.HasAcceptedTerms = accepted != 0

	if acceptedAtStr.Valid {
		acceptedAt, err := time.Parse(time.RFC3339, acceptedAtStr.String)
		if err != nil {
			return persistence.UserProfile{}, fmt.Errorf("failed to parse terms_accepted_at: %w", err)
		}
		profile.TermsAcceptedAt = &acceptedAt
	}

	if profile.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.UserProfile{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return profile, nil
}

// UpsertProfile inserts or replaces the profile row keyed by user id.
func (r *ProfileRepository) UpsertProfile(ctx context.Context, profile persistence.UserProfile) error {
	if profile.UserID == "" {
		return persistence.ErrConstraintViolation
	}

	var acceptedAt any
	if profile.TermsAcceptedAt != nil {
		acceptedAt = profile.TermsAcceptedAt.UTC().Format(time.RFC3339)
	}

	query := `
		INSERT INTO user_profiles (user_id, has_accepted_terms, terms_accepted_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			has_accepted_terms = excluded.has_accepted_terms,
			terms_accepted_at = excluded.terms_accepted_at,
			updated_at = excluded.updated_at
	`

	_, err := r.helper.Exec(ctx, query,
		profile.UserID,
		boolToInt(profile.HasAcceptedTerms),
		acceptedAt,
		profile.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}
