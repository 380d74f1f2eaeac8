package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/unmute/internal/persistence"
)

const (
	// MaxAnonymousJoins caps room joins per device fingerprint before the
	// user is prompted to sign in.
	MaxAnonymousJoins = 3
	// minFingerprintLength is a minimal spoof-resistance heuristic, not a
	// cryptographic guarantee.
	minFingerprintLength = 10
)

// QuotaRepository captures the persistence operations for join counters.
type QuotaRepository interface {
	GetQuota(ctx context.Context, fingerprint string) (persistence.DeviceJoinQuota, error)
	UpsertQuota(ctx context.Context, quota persistence.DeviceJoinQuota) error
}

// AnonymousLimiter caps anonymous join attempts per device, independent of
// room capacity. The counter is read-then-upsert rather than CAS-guarded: a
// rare race lets one extra join slip past the cap, which is acceptable here
// in a way capacity overflow is not. Authenticated principals bypass this
// component entirely at the call site.
type AnonymousLimiter struct {
	quotas QuotaRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewAnonymousLimiter constructs a limiter.
func NewAnonymousLimiter(quotas QuotaRepository, now func() time.Time, logger *slog.Logger) *AnonymousLimiter {
	if now == nil {
		now = time.Now
	}
	return &AnonymousLimiter{quotas: quotas, now: now, logger: defaultLogger(logger)}
}

func (s *AnonymousLimiter) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AnonymousLimiter", operation, attrs...)
}

// Check returns the device's current allowance without mutating it.
func (s *AnonymousLimiter) Check(ctx context.Context, fingerprint string) (status QuotaStatus, err error) {
	if s == nil || s.quotas == nil {
		return QuotaStatus{}, fmt.Errorf("anonymous limiter not configured")
	}

	if err = validateFingerprint(fingerprint); err != nil {
		return
	}

	quota, getErr := s.quotas.GetQuota(ctx, fingerprint)
	if getErr != nil && !errors.Is(getErr, persistence.ErrNotFound) {
		err = fmt.Errorf("%w: %v", ErrStoreUnavailable, getErr)
		return
	}

	status = quotaStatus(quota.JoinCount)
	return
}

// Increment consumes one join from the device's allowance. A device already
// at the cap fails with ErrLimitReached and nothing is written.
func (s *AnonymousLimiter) Increment(ctx context.Context, fingerprint string) (status QuotaStatus, err error) {
	if s == nil || s.quotas == nil {
		return QuotaStatus{}, fmt.Errorf("anonymous limiter not configured")
	}

	logger := s.loggerWith(ctx, "Increment")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "quota increment failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "anonymous join counted", "join_count", status.JoinCount, "remaining", status.Remaining)
	}()

	if err = validateFingerprint(fingerprint); err != nil {
		return
	}

	quota, getErr := s.quotas.GetQuota(ctx, fingerprint)
	if getErr != nil && !errors.Is(getErr, persistence.ErrNotFound) {
		err = fmt.Errorf("%w: %v", ErrStoreUnavailable, getErr)
		return
	}

	if quota.JoinCount >= MaxAnonymousJoins {
		err = ErrLimitReached
		return
	}

	updated := persistence.DeviceJoinQuota{
		Fingerprint:  fingerprint,
		JoinCount:    quota.JoinCount + 1,
		LastJoinedAt: s.now(),
	}

	if upsertErr := s.quotas.UpsertQuota(ctx, updated); upsertErr != nil {
		err = fmt.Errorf("%w: %v", ErrStoreUnavailable, upsertErr)
		return
	}

	status = quotaStatus(updated.JoinCount)
	return
}

func validateFingerprint(fingerprint string) error {
	if len(strings.TrimSpace(fingerprint)) < minFingerprintLength {
		vErr := &ValidationError{}
		vErr.add("fingerprint", "invalid fingerprint")
		return vErr
	}
	return nil
}

func quotaStatus(joinCount int) QuotaStatus {
	remaining := MaxAnonymousJoins - joinCount
	if remaining < 0 {
		remaining = 0
	}
	return QuotaStatus{
		JoinCount: joinCount,
		Remaining: remaining,
		Blocked:   joinCount >= MaxAnonymousJoins,
	}
}
