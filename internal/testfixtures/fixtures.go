package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/unmute/internal/application"
	"github.com/example/unmute/internal/persistence"
)

var (
	roomCounter    uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// RoomFixture represents a deterministic room record that can be materialised
// for application or persistence tests.
type RoomFixture struct {
	ID               string
	Emotion          string
	ParticipantCount int
	IsActive         bool
	CreatedAt        time.Time
	ExpiresAt        time.Time
	UpdatedAt        time.Time
}

// NewRoomFixture returns an open room for the given emotion, created at the
// reference instant with the standard fifteen minute lifetime.
func NewRoomFixture(emotion string) RoomFixture {
	id := atomic.AddUint64(&roomCounter, 1)
	created := ReferenceTime()
	return RoomFixture{
		ID:               fmt.Sprintf("room-%d", id),
		Emotion:          emotion,
		ParticipantCount: 0,
		IsActive:         true,
		CreatedAt:        created,
		ExpiresAt:        created.Add(application.RoomLifetime),
		UpdatedAt:        created,
	}
}

// Persistence converts the fixture to its storage model.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:               f.ID,
		Emotion:          f.Emotion,
		ParticipantCount: f.ParticipantCount,
		IsActive:         f.IsActive,
		CreatedAt:        f.CreatedAt,
		ExpiresAt:        f.ExpiresAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

// SessionFixture represents a deterministic session record.
type SessionFixture struct {
	ID          string
	RoomID      string
	AnonymousID string
	Emotion     string
	JoinedAt    time.Time
}

// NewSessionFixture returns an open session for the given room.
func NewSessionFixture(roomID, emotion string) SessionFixture {
	id := atomic.AddUint64(&sessionCounter, 1)
	return SessionFixture{
		ID:          fmt.Sprintf("session-%d", id),
		RoomID:      roomID,
		AnonymousID: fmt.Sprintf("anon-fixture-%d", id),
		Emotion:     emotion,
		JoinedAt:    ReferenceTime(),
	}
}

// Persistence converts the fixture to its storage model.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:          f.ID,
		RoomID:      f.RoomID,
		AnonymousID: f.AnonymousID,
		Emotion:     f.Emotion,
		JoinedAt:    f.JoinedAt,
	}
}
