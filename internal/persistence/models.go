package persistence

import "time"

// Room represents one capacity-bounded, time-bounded audio room.
type Room struct {
	ID               string
	Emotion          string
	ParticipantCount int
	IsActive         bool
	CreatedAt        time.Time
	ExpiresAt        time.Time
	UpdatedAt        time.Time
}

// Session represents one participant's timed presence in one room.
type Session struct {
	ID              string
	RoomID          string
	AnonymousID     string
	Emotion         string
	JoinedAt        time.Time
	LeftAt          *time.Time
	DurationSeconds *int
}

// DeviceJoinQuota tracks anonymous join usage for one device fingerprint.
type DeviceJoinQuota struct {
	Fingerprint  string
	JoinCount    int
	LastJoinedAt time.Time
}

// Reaction is an append-only silent-reaction row for a room.
type Reaction struct {
	ID           string
	RoomID       string
	SessionID    string
	ReactionType string
	CreatedAt    time.Time
}

// Reflection is a post-session reflection row.
type Reflection struct {
	ID            string
	SessionID     string
	FeelingBefore string
	FeelingAfter  string
	GratitudeNote *string
	CreatedAt     time.Time
}

// Feedback is a free-form feedback row, optionally tied to a session.
type Feedback struct {
	ID        string
	SessionID *string
	Feeling   *string
	Message   *string
	CreatedAt time.Time
}

// UserProfile stores terms-of-service acceptance for an authenticated user.
type UserProfile struct {
	UserID           string
	HasAcceptedTerms bool
	TermsAcceptedAt  *time.Time
	UpdatedAt        time.Time
}

// Donation records a completed payment-gateway order.
type Donation struct {
	ID        string
	OrderID   string
	PaymentID string
	Amount    int64
	Currency  string
	CreatedAt time.Time
}

// RoomStats aggregates the operational counters the analytics endpoint serves.
type RoomStats struct {
	TotalSessionsToday   int
	ActiveRooms          int
	TotalParticipantsNow int
	SessionsByEmotion    map[string]int
}
