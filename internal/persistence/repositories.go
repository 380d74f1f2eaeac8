package persistence

import (
	"context"
	"time"
)

// RoomRepository stores rooms and performs the conditional participant-count
// updates the admission protocol relies on.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	// FindOpenRoom returns the most recently created room for the emotion
	// that is active, unexpired at the reference instant, and below the
	// capacity cap. ErrNotFound when no such room exists.
	FindOpenRoom(ctx context.Context, emotion string, maxParticipants int, now time.Time) (Room, error)
	// IncrementParticipantCount raises the count by one only while the stored
	// count is below maxParticipants. ErrStaleCount when the room is already
	// at capacity or missing.
	IncrementParticipantCount(ctx context.Context, id string, maxParticipants int, now time.Time) error
	// DecrementParticipantCount lowers the count by one only while the stored
	// count is above zero. ErrStaleCount when it already reached zero.
	DecrementParticipantCount(ctx context.Context, id string, now time.Time) error
	// DeactivateExpired flips is_active off for rooms past their expiry and
	// returns how many rows were reaped.
	DeactivateExpired(ctx context.Context, now time.Time) (int, error)
}

// SessionRepository stores participant session spans.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	// EndSession sets left_at and duration_seconds once; a session already
	// ended is left untouched and returned as stored.
	EndSession(ctx context.Context, id string, leftAt time.Time, durationSeconds int) (Session, error)
}

// QuotaRepository stores per-device anonymous join counters.
type QuotaRepository interface {
	GetQuota(ctx context.Context, fingerprint string) (DeviceJoinQuota, error)
	// UpsertQuota inserts or replaces the counter row keyed by fingerprint.
	UpsertQuota(ctx context.Context, quota DeviceJoinQuota) error
}

// TelemetryRepository stores the best-effort rows surrounding a session:
// reactions, reflections, feedback, and the aggregate stats they feed.
type TelemetryRepository interface {
	CreateReaction(ctx context.Context, reaction Reaction) error
	// ListRecentReactions returns reactions for the room created at or after
	// since, newest first.
	ListRecentReactions(ctx context.Context, roomID string, since time.Time) ([]Reaction, error)
	CreateReflection(ctx context.Context, reflection Reflection) error
	CreateFeedback(ctx context.Context, feedback Feedback) error
	// Stats aggregates sessions since dayStart plus live room occupancy at now.
	Stats(ctx context.Context, dayStart, now time.Time) (RoomStats, error)
}

// ProfileRepository stores terms-of-service acceptance per authenticated user.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (UserProfile, error)
	UpsertProfile(ctx context.Context, profile UserProfile) error
}

// DonationRepository records completed payment-gateway orders.
type DonationRepository interface {
	CreateDonation(ctx context.Context, donation Donation) error
}
