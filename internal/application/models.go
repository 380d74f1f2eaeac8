package application

import "time"

// Principal identifies the acting caller. Authentication itself happens in
// an external identity provider; the transport layer hands the resolved
// user id through here. A zero UserID means the caller is anonymous.
type Principal struct {
	UserID string
}

// IsAuthenticated reports whether an external identity backs the caller.
func (p Principal) IsAuthenticated() bool {
	return p.UserID != ""
}

// Room is the application view of one audio room.
type Room struct {
	ID               string
	Emotion          string
	ParticipantCount int
	IsActive         bool
	CreatedAt        time.Time
	ExpiresAt        time.Time
	UpdatedAt        time.Time
}

// Session is the application view of one participant's presence span.
type Session struct {
	ID              string
	RoomID          string
	AnonymousID     string
	Emotion         string
	JoinedAt        time.Time
	LeftAt          *time.Time
	DurationSeconds *int
}

// QuotaStatus reports a device's anonymous join allowance.
type QuotaStatus struct {
	JoinCount int
	Remaining int
	Blocked   bool
}

// Reaction is a silent reaction broadcast within a room.
type Reaction struct {
	ID           string
	RoomID       string
	SessionID    string
	ReactionType string
	CreatedAt    time.Time
}

// Reflection captures a participant's before/after check-in.
type Reflection struct {
	ID            string
	SessionID     string
	FeelingBefore string
	FeelingAfter  string
	GratitudeNote *string
	CreatedAt     time.Time
}

// FeedbackInput is the free-form feedback submitted from the reflection page.
type FeedbackInput struct {
	SessionID string
	Feeling   string
	Message   string
}

// TermsStatus reports whether the principal has accepted the terms checklist.
type TermsStatus struct {
	HasAcceptedTerms bool
	IsAuthenticated  bool
}

// Stats is the aggregate analytics summary.
type Stats struct {
	TotalSessionsToday   int
	ActiveRooms          int
	TotalParticipantsNow int
	SessionsByEmotion    map[string]int
}

// MediaToken is the credential handed to the client for the audio channel.
// AudioEnabled false means the media service is unconfigured or failed; the
// client degrades to a reactions-only experience.
type MediaToken struct {
	Token        string
	AudioEnabled bool
	WSURL        string
	Message      string
}

// DonationOrder is a created payment-gateway order awaiting checkout.
type DonationOrder struct {
	OrderID  string
	Amount   int64
	Currency string
	KeyID    string
}
