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

// SessionRepository captures the persistence operations for session spans.
type SessionRepository interface {
	CreateSession(ctx context.Context, session persistence.Session) error
	GetSession(ctx context.Context, id string) (persistence.Session, error)
	EndSession(ctx context.Context, id string, leftAt time.Time, durationSeconds int) (persistence.Session, error)
}

// StartSessionParams are the inputs for opening a session record.
type StartSessionParams struct {
	RoomID      string
	AnonymousID string
	Emotion     string
}

// EndSessionParams are the inputs for closing a session record.
type EndSessionParams struct {
	SessionID       string
	DurationSeconds int
}

// SessionTracker records the wall-clock span of one participant's presence
// in one room. It is independent of room bookkeeping: a tracking failure is
// surfaced to the caller but must never block a join or leave.
type SessionTracker struct {
	sessions    SessionRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSessionTracker constructs a session tracker.
func NewSessionTracker(sessions SessionRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SessionTracker {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SessionTracker{sessions: sessions, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *SessionTracker) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SessionTracker", operation, attrs...)
}

// Start opens a session row stamped with the join instant.
func (s *SessionTracker) Start(ctx context.Context, params StartSessionParams) (session Session, err error) {
	if s == nil || s.sessions == nil {
		return Session{}, fmt.Errorf("session tracker not configured")
	}

	logger := s.loggerWith(ctx, "Start", "room_id", params.RoomID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to start session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("session_id", session.ID).InfoContext(ctx, "session started")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(params.RoomID) == "" {
		vErr.add("roomId", "room ID is required")
	}
	if strings.TrimSpace(params.AnonymousID) == "" {
		vErr.add("anonymousId", "anonymous ID is required")
	}
	if strings.TrimSpace(params.Emotion) == "" {
		vErr.add("emotion", "emotion is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	created := persistence.Session{
		ID:          s.idGenerator(),
		RoomID:      params.RoomID,
		AnonymousID: params.AnonymousID,
		Emotion:     params.Emotion,
		JoinedAt:    s.now(),
	}

	if createErr := s.sessions.CreateSession(ctx, created); createErr != nil {
		err = fmt.Errorf("%w: %v", ErrStoreUnavailable, createErr)
		return
	}

	session = toApplicationSession(created)
	return
}

// End closes a session, stamping the leave instant and elapsed duration.
// Duration defaults to zero when the caller could not measure it.
func (s *SessionTracker) End(ctx context.Context, params EndSessionParams) (session Session, err error) {
	if s == nil || s.sessions == nil {
		return Session{}, fmt.Errorf("session tracker not configured")
	}

	logger := s.loggerWith(ctx, "End", "session_id", params.SessionID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to end session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session ended", "duration_seconds", params.DurationSeconds)
	}()

	if strings.TrimSpace(params.SessionID) == "" {
		vErr := &ValidationError{}
		vErr.add("sessionId", "session ID is required")
		err = vErr
		return
	}

	duration := params.DurationSeconds
	if duration < 0 {
		duration = 0
	}

	stored, endErr := s.sessions.EndSession(ctx, params.SessionID, s.now(), duration)
	if endErr != nil {
		if errors.Is(endErr, persistence.ErrNotFound) {
			err = ErrNotFound
			return
		}
		err = fmt.Errorf("%w: %v", ErrStoreUnavailable, endErr)
		return
	}

	session = toApplicationSession(stored)
	return
}

func toApplicationSession(model persistence.Session) Session {
	var leftAt *time.Time
	if model.LeftAt != nil {
		clone := *model.LeftAt
		leftAt = &clone
	}
	var duration *int
	if model.DurationSeconds != nil {
		clone := *model.DurationSeconds
		duration = &clone
	}
	return Session{
		ID:              model.ID,
		RoomID:          model.RoomID,
		AnonymousID:     model.AnonymousID,
		Emotion:         model.Emotion,
		JoinedAt:        model.JoinedAt,
		LeftAt:          leftAt,
		DurationSeconds: duration,
	}
}
