package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("UNMUTE_FINGERPRINT_SALT", "test-salt")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.SQLiteDSN != "file:unmute.db" {
		t.Fatalf("unexpected default DSN %q", cfg.SQLiteDSN)
	}
	if cfg.SessionDuration != 840*time.Second {
		t.Fatalf("unexpected default session duration %v", cfg.SessionDuration)
	}
	if cfg.ReaperInterval != time.Minute {
		t.Fatalf("unexpected default reaper interval %v", cfg.ReaperInterval)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected default origins %v", cfg.AllowedOrigins)
	}
}

func TestLoadRequiresFingerprintSalt(t *testing.T) {
	t.Setenv("UNMUTE_FINGERPRINT_SALT", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing salt")
	}
	if !strings.Contains(err.Error(), "UNMUTE_FINGERPRINT_SALT") {
		t.Fatalf("error should name the missing variable: %v", err)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("UNMUTE_HTTP_PORT", "9090")
	t.Setenv("UNMUTE_SESSION_DURATION", "10m")
	t.Setenv("UNMUTE_ALLOWED_ORIGINS", "https://unmute.example.com, https://staging.example.com")
	t.Setenv("UNMUTE_LIVEKIT_API_KEY", "lk-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPPort != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.HTTPPort)
	}
	if cfg.SessionDuration != 10*time.Minute {
		t.Fatalf("expected 10m duration, got %v", cfg.SessionDuration)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://staging.example.com" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.LiveKitAPIKey != "lk-key" {
		t.Fatalf("unexpected media key %q", cfg.LiveKitAPIKey)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	setRequired(t)
	t.Setenv("UNMUTE_HTTP_PORT", "not-a-port")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
	if !strings.Contains(err.Error(), "UNMUTE_HTTP_PORT") {
		t.Fatalf("error should name the invalid variable: %v", err)
	}
}
