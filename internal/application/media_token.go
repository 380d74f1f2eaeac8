package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// mediaTokenTTL is how long an issued audio-channel credential stays valid.
const mediaTokenTTL = time.Hour

// MediaTokenConfig carries the external media service credentials. Empty
// credentials are a supported state: audio degrades to reactions-only.
type MediaTokenConfig struct {
	APIKey    string
	APISecret string
	WSURL     string
}

// MediaTokenService issues signed join credentials for the external
// real-time audio service. It never hard-fails the caller: any problem is
// reported as audio-disabled so the session can continue without voice.
type MediaTokenService struct {
	config MediaTokenConfig
	now    func() time.Time
	logger *slog.Logger
}

// NewMediaTokenService constructs a media token service.
func NewMediaTokenService(config MediaTokenConfig, now func() time.Time, logger *slog.Logger) *MediaTokenService {
	if now == nil {
		now = time.Now
	}
	return &MediaTokenService{config: config, now: now, logger: defaultLogger(logger)}
}

// videoGrant mirrors the room grants the media service expects in its JWT.
type videoGrant struct {
	RoomJoin       bool   `json:"roomJoin"`
	Room           string `json:"room"`
	CanPublish     bool   `json:"canPublish"`
	CanSubscribe   bool   `json:"canSubscribe"`
	CanPublishData bool   `json:"canPublishData"`
}

type mediaClaims struct {
	jwt.RegisteredClaims
	Video    videoGrant `json:"video"`
	Metadata string     `json:"metadata"`
	Name     string     `json:"name"`
}

// Issue signs an HS256 join token for the given room and participant.
func (s *MediaTokenService) Issue(ctx context.Context, roomName, participantName string) (MediaToken, error) {
	if s == nil {
		return MediaToken{}, fmt.Errorf("media token service not configured")
	}

	logger := serviceLogger(ctx, s.logger, "MediaTokenService", "Issue", "room_name", roomName)

	if strings.TrimSpace(roomName) == "" || strings.TrimSpace(participantName) == "" {
		vErr := &ValidationError{}
		if strings.TrimSpace(roomName) == "" {
			vErr.add("roomName", "room name is required")
		}
		if strings.TrimSpace(participantName) == "" {
			vErr.add("participantName", "participant name is required")
		}
		return MediaToken{}, vErr
	}

	if s.config.APIKey == "" || s.config.APISecret == "" {
		logger.InfoContext(ctx, "media service not configured, degrading to reactions-only")
		return MediaToken{
			AudioEnabled: false,
			Message:      "Live audio not configured.",
		}, nil
	}

	now := s.now()
	claims := mediaClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.APIKey,
			Subject:   participantName,
			ID:        participantName,
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(mediaTokenTTL)),
		},
		Video: videoGrant{
			RoomJoin:       true,
			Room:           roomName,
			CanPublish:     true,
			CanSubscribe:   true,
			CanPublishData: true,
		},
		Name: participantName,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.APISecret))
	if err != nil {
		logger.ErrorContext(ctx, "failed to sign media token", "error", err)
		return MediaToken{
			AudioEnabled: false,
			Message:      "Failed to generate audio token.",
		}, nil
	}

	return MediaToken{
		Token:        signed,
		AudioEnabled: true,
		WSURL:        s.config.WSURL,
	}, nil
}
