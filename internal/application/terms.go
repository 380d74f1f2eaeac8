package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/unmute/internal/persistence"
)

// ProfileRepository captures the persistence operations for terms acceptance.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (persistence.UserProfile, error)
	UpsertProfile(ctx context.Context, profile persistence.UserProfile) error
}

// TermsService gates room access behind the static terms checklist for
// authenticated users. Anonymous callers simply read back an unaccepted,
// unauthenticated status.
type TermsService struct {
	profiles ProfileRepository
	now      func() time.Time
	logger   *slog.Logger
}

// NewTermsService constructs a terms service.
func NewTermsService(profiles ProfileRepository, now func() time.Time, logger *slog.Logger) *TermsService {
	if now == nil {
		now = time.Now
	}
	return &TermsService{profiles: profiles, now: now, logger: defaultLogger(logger)}
}

func (s *TermsService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TermsService", operation, attrs...)
}

// Status reports whether the principal has accepted the terms.
func (s *TermsService) Status(ctx context.Context, principal Principal) (TermsStatus, error) {
	if s == nil || s.profiles == nil {
		return TermsStatus{}, fmt.Errorf("terms service not configured")
	}

	if !principal.IsAuthenticated() {
		return TermsStatus{HasAcceptedTerms: false, IsAuthenticated: false}, nil
	}

	profile, err := s.profiles.GetProfile(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return TermsStatus{HasAcceptedTerms: false, IsAuthenticated: true}, nil
		}
		return TermsStatus{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return TermsStatus{HasAcceptedTerms: profile.HasAcceptedTerms, IsAuthenticated: true}, nil
}

// Accept records the principal's acceptance. Re-accepting refreshes the
// acceptance timestamp; there is no way to un-accept.
func (s *TermsService) Accept(ctx context.Context, principal Principal) (err error) {
	if s == nil || s.profiles == nil {
		return fmt.Errorf("terms service not configured")
	}

	logger := s.loggerWith(ctx, "Accept", "user_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to accept terms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "terms accepted")
	}()

	if !principal.IsAuthenticated() {
		err = ErrUnauthorized
		return
	}

	now := s.now()
	profile := persistence.UserProfile{
		UserID:           principal.UserID,
		HasAcceptedTerms: true,
		TermsAcceptedAt:  &now,
		UpdatedAt:        now,
	}

	if upsertErr := s.profiles.UpsertProfile(ctx, profile); upsertErr != nil {
		err = fmt.Errorf("%w: %v", ErrStoreUnavailable, upsertErr)
		return
	}

	return nil
}
