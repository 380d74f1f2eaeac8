package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/unmute/internal/persistence"
)

// reactionWindow is how far back the room reaction feed reaches.
const reactionWindow = time.Minute

var validReactionTypes = map[string]struct{}{
	"heart": {},
	"wave":  {},
	"peace": {},
}

// TelemetryRepository captures the persistence operations for the
// best-effort rows surrounding a session.
type TelemetryRepository interface {
	CreateReaction(ctx context.Context, reaction persistence.Reaction) error
	ListRecentReactions(ctx context.Context, roomID string, since time.Time) ([]persistence.Reaction, error)
	CreateReflection(ctx context.Context, reflection persistence.Reflection) error
	CreateFeedback(ctx context.Context, feedback persistence.Feedback) error
	Stats(ctx context.Context, dayStart, now time.Time) (persistence.RoomStats, error)
}

// ReactionInput is a silent reaction submitted from a room.
type ReactionInput struct {
	RoomID       string
	SessionID    string
	ReactionType string
}

// ReflectionInput is the post-session reflection form.
type ReflectionInput struct {
	SessionID     string
	FeelingBefore string
	FeelingAfter  string
	GratitudeNote string
}

// TelemetryService persists reactions, reflections, and feedback, and serves
// the aggregate analytics summary. Writes here are best-effort telemetry:
// failures are surfaced for logging but callers treat them as non-fatal.
type TelemetryService struct {
	repo        TelemetryRepository
	idGenerator func() string
	now         func() time.Time
	cache       *reactionCache
	logger      *slog.Logger
}

// NewTelemetryService constructs a telemetry service.
func NewTelemetryService(repo TelemetryRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *TelemetryService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &TelemetryService{
		repo:        repo,
		idGenerator: idGenerator,
		now:         now,
		cache:       newReactionCache(2*time.Second, 256, now),
		logger:      defaultLogger(logger),
	}
}

func (s *TelemetryService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TelemetryService", operation, attrs...)
}

// SendReaction validates and appends a reaction row.
func (s *TelemetryService) SendReaction(ctx context.Context, input ReactionInput) (reaction Reaction, err error) {
	if s == nil || s.repo == nil {
		return Reaction{}, fmt.Errorf("telemetry service not configured")
	}

	logger := s.loggerWith(ctx, "SendReaction", "room_id", input.RoomID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to send reaction", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(input.RoomID) == "" {
		vErr.add("roomId", "room ID is required")
	}
	if strings.TrimSpace(input.SessionID) == "" {
		vErr.add("sessionId", "session ID is required")
	}
	if _, ok := validReactionTypes[input.ReactionType]; !ok {
		vErr.add("reactionType", "invalid reaction type")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	created := persistence.Reaction{
		ID:           s.idGenerator(),
		RoomID:       input.RoomID,
		SessionID:    input.SessionID,
		ReactionType: input.ReactionType,
		CreatedAt:    s.now(),
	}

	if createErr := s.repo.CreateReaction(ctx, created); createErr != nil {
		err = fmt.Errorf("%w: %v", ErrStoreUnavailable, createErr)
		return
	}

	s.cache.Invalidate(input.RoomID)
	reaction = toApplicationReaction(created)
	return
}

// RecentReactions returns the room's reactions from the last minute, newest
// first, served through a short-TTL cache.
func (s *TelemetryService) RecentReactions(ctx context.Context, roomID string) ([]Reaction, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("telemetry service not configured")
	}
	if strings.TrimSpace(roomID) == "" {
		vErr := &ValidationError{}
		vErr.add("roomId", "room ID is required")
		return nil, vErr
	}

	if cached, ok := s.cache.Get(roomID); ok {
		return cached, nil
	}

	since := s.now().Add(-reactionWindow)
	models, err := s.repo.ListRecentReactions(ctx, roomID, since)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	reactions := make([]Reaction, 0, len(models))
	for _, model := range models {
		reactions = append(reactions, toApplicationReaction(model))
	}

	s.cache.Store(roomID, reactions)
	return reactions, nil
}

// SaveReflection appends a reflection row.
func (s *TelemetryService) SaveReflection(ctx context.Context, input ReflectionInput) (reflection Reflection, err error) {
	if s == nil || s.repo == nil {
		return Reflection{}, fmt.Errorf("telemetry service not configured")
	}

	logger := s.loggerWith(ctx, "SaveReflection", "session_id", input.SessionID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to save reflection", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if strings.TrimSpace(input.SessionID) == "" {
		vErr := &ValidationError{}
		vErr.add("sessionId", "session ID is required")
		err = vErr
		return
	}

	var note *string
	if trimmed := strings.TrimSpace(input.GratitudeNote); trimmed != "" {
		note = &trimmed
	}

	created := persistence.Reflection{
		ID:            s.idGenerator(),
		SessionID:     input.SessionID,
		FeelingBefore: input.FeelingBefore,
		FeelingAfter:  input.FeelingAfter,
		GratitudeNote: note,
		CreatedAt:     s.now(),
	}

	if createErr := s.repo.CreateReflection(ctx, created); createErr != nil {
		err = fmt.Errorf("%w: %v", ErrStoreUnavailable, createErr)
		return
	}

	reflection = Reflection{
		ID:            created.ID,
		SessionID:     created.SessionID,
		FeelingBefore: created.FeelingBefore,
		FeelingAfter:  created.FeelingAfter,
		GratitudeNote: note,
		CreatedAt:     created.CreatedAt,
	}
	return
}

// SaveFeedback appends a feedback row. At least one of feeling or message is
// required; the session reference is optional.
func (s *TelemetryService) SaveFeedback(ctx context.Context, input FeedbackInput) (err error) {
	if s == nil || s.repo == nil {
		return fmt.Errorf("telemetry service not configured")
	}

	logger := s.loggerWith(ctx, "SaveFeedback")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to save feedback", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	feeling := strings.TrimSpace(input.Feeling)
	message := strings.TrimSpace(input.Message)
	if feeling == "" && message == "" {
		vErr := &ValidationError{}
		vErr.add("feedback", "at least feeling or message is required")
		return vErr
	}

	created := persistence.Feedback{
		ID:        s.idGenerator(),
		CreatedAt: s.now(),
	}
	if trimmed := strings.TrimSpace(input.SessionID); trimmed != "" {
		created.SessionID = &trimmed
	}
	if feeling != "" {
		created.Feeling = &feeling
	}
	if message != "" {
		created.Message = &message
	}

	if createErr := s.repo.CreateFeedback(ctx, created); createErr != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, createErr)
	}

	return nil
}

// Summary aggregates today's sessions and the live room occupancy.
func (s *TelemetryService) Summary(ctx context.Context) (Stats, error) {
	if s == nil || s.repo == nil {
		return Stats{}, fmt.Errorf("telemetry service not configured")
	}

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	model, err := s.repo.Stats(ctx, dayStart, now)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	byEmotion := make(map[string]int, len(model.SessionsByEmotion))
	for key, value := range model.SessionsByEmotion {
		byEmotion[key] = value
	}

	return Stats{
		TotalSessionsToday:   model.TotalSessionsToday,
		ActiveRooms:          model.ActiveRooms,
		TotalParticipantsNow: model.TotalParticipantsNow,
		SessionsByEmotion:    byEmotion,
	}, nil
}

func toApplicationReaction(model persistence.Reaction) Reaction {
	return Reaction{
		ID:           model.ID,
		RoomID:       model.RoomID,
		SessionID:    model.SessionID,
		ReactionType: model.ReactionType,
		CreatedAt:    model.CreatedAt,
	}
}
