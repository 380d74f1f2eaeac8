package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/unmute/internal/persistence"
)

// QuotaRepository implements persistence.QuotaRepository using SQLite.
type QuotaRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewQuotaRepository creates a new SQLite quota repository.
func NewQuotaRepository(pool *ConnectionPool) *QuotaRepository {
	return &QuotaRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// GetQuota retrieves the join counter for a fingerprint.
func (r *QuotaRepository) GetQuota(ctx context.Context, fingerprint string) (persistence.DeviceJoinQuota, error) {
	if fingerprint == "" {
		return persistence.DeviceJoinQuota{}, persistence.ErrNotFound
	}

	query := `
		SELECT fingerprint, join_count, last_joined_at
		FROM anonymous_device_joins
		WHERE fingerprint = ?
	`

	var quota persistence.DeviceJoinQuota
	var lastJoinedStr string

	err := r.helper.QueryRow(ctx, query, fingerprint).Scan(
		&quota.Fingerprint,
		&quota.JoinCount,
		&lastJoinedStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.DeviceJoinQuota{}, persistence.ErrNotFound
		}
		return persistence.DeviceJoinQuota{}, r.mapper.MapError(err)
	}

	if quota.LastJoinedAt, err = time.Parse(time.RFC3339, lastJoinedStr); err != nil {
		return persistence.DeviceJoinQuota{}, fmt.Errorf("failed to parse last_joined_at: %w", err)
	}

	return quota, nil
}

// UpsertQuota inserts or replaces the counter row keyed by fingerprint.
func (r *QuotaRepository) UpsertQuota(ctx context.Context, quota persistence.DeviceJoinQuota) error {
	if quota.Fingerprint == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO anonymous_device_joins (fingerprint, join_count, last_joined_at)
		VALUES (?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			join_count = excluded.join_count,
			last_joined_at = excluded.last_joined_at
	`

	_, err := r.helper.Exec(ctx, query,
		quota.Fingerprint,
		quota.JoinCount,
		quota.LastJoinedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	return nil
}
