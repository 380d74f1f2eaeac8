package application

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueDegradesWithoutCredentials(t *testing.T) {
	service := NewMediaTokenService(MediaTokenConfig{}, fixedNow, nil)

	token, err := service.Issue(context.Background(), "room-1", "anon-1")
	if err != nil {
		t.Fatalf("degradation must not error: %v", err)
	}
	if token.AudioEnabled {
		t.Fatal("expected audio disabled without credentials")
	}
	if token.Message == "" {
		t.Fatal("expected a degradation message for the client")
	}
}

func TestIssueSignsRoomGrant(t *testing.T) {
	service := NewMediaTokenService(MediaTokenConfig{
		APIKey:    "key-1",
		APISecret: "secret-1",
		WSURL:     "wss://audio.example.com",
	}, fixedNow, nil)

	token, err := service.Issue(context.Background(), "room-1", "anon-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !token.AudioEnabled {
		t.Fatal("expected audio enabled")
	}
	if token.WSURL != "wss://audio.example.com" {
		t.Fatalf("unexpected ws url %q", token.WSURL)
	}

	claims := &mediaClaims{}
	parsed, err := jwt.ParseWithClaims(token.Token, claims, func(*jwt.Token) (any, error) {
		return []byte("secret-1"), nil
	}, jwt.WithTimeFunc(fixedNow))
	if err != nil || !parsed.Valid {
		t.Fatalf("token failed to parse: %v", err)
	}
	if claims.Issuer != "key-1" || claims.Subject != "anon-1" {
		t.Fatalf("unexpected registered claims: %+v", claims.RegisteredClaims)
	}
	if !claims.Video.RoomJoin || claims.Video.Room != "room-1" {
		t.Fatalf("unexpected room grant: %+v", claims.Video)
	}
	expiry := fixedNow().Add(mediaTokenTTL)
	if !claims.ExpiresAt.Time.Equal(expiry) {
		t.Fatalf("expected expiry %v, got %v", expiry, claims.ExpiresAt.Time)
	}
}

func TestIssueValidatesNames(t *testing.T) {
	service := NewMediaTokenService(MediaTokenConfig{APIKey: "k", APISecret: "s"}, fixedNow, nil)

	_, err := service.Issue(context.Background(), "", "")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(vErr.FieldErrors) != 2 {
		t.Fatalf("expected both fields flagged, got %v", vErr.FieldErrors)
	}
}
