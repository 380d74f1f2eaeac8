package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the service.
type Config struct {
	HTTPPort        int
	SQLiteDSN       string
	FingerprintSalt string
	TimerStateDir   string
	SessionDuration time.Duration
	ReaperInterval  time.Duration
	AllowedOrigins  []string

	LiveKitAPIKey    string
	LiveKitAPISecret string
	LiveKitWSURL     string

	RazorpayKeyID     string
	RazorpayKeySecret string
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to sensible defaults. The fingerprint salt is
// required because quota keys derived with an accidental empty salt would be
// linkable across deployments. Media and payment credentials are optional;
// leaving them unset disables live audio and donations respectively.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		SQLiteDSN:       "file:unmute.db",
		SessionDuration: 840 * time.Second,
		ReaperInterval:  time.Minute,
		AllowedOrigins:  []string{"*"},
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("UNMUTE_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "UNMUTE_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("UNMUTE_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if salt := strings.TrimSpace(os.Getenv("UNMUTE_FINGERPRINT_SALT")); salt == "" {
		missing = append(missing, "UNMUTE_FINGERPRINT_SALT")
	} else {
		cfg.FingerprintSalt = salt
	}

	cfg.TimerStateDir = strings.TrimSpace(os.Getenv("UNMUTE_TIMER_STATE_DIR"))

	if durationValue := strings.TrimSpace(os.Getenv("UNMUTE_SESSION_DURATION")); durationValue != "" {
		duration, err := time.ParseDuration(durationValue)
		if err != nil || duration <= 0 {
			invalid = append(invalid, "UNMUTE_SESSION_DURATION")
		} else {
			cfg.SessionDuration = duration
		}
	}

	if intervalValue := strings.TrimSpace(os.Getenv("UNMUTE_REAPER_INTERVAL")); intervalValue != "" {
		interval, err := time.ParseDuration(intervalValue)
		if err != nil || interval <= 0 {
			invalid = append(invalid, "UNMUTE_REAPER_INTERVAL")
		} else {
			cfg.ReaperInterval = interval
		}
	}

	if originsValue := strings.TrimSpace(os.Getenv("UNMUTE_ALLOWED_ORIGINS")); originsValue != "" {
		origins := make([]string, 0, 2)
		for _, origin := range strings.Split(originsValue, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
		if len(origins) > 0 {
			cfg.AllowedOrigins = origins
		}
	}

	cfg.LiveKitAPIKey = strings.TrimSpace(os.Getenv("UNMUTE_LIVEKIT_API_KEY"))
	cfg.LiveKitAPISecret = strings.TrimSpace(os.Getenv("UNMUTE_LIVEKIT_API_SECRET"))
	cfg.LiveKitWSURL = strings.TrimSpace(os.Getenv("UNMUTE_LIVEKIT_WS_URL"))

	cfg.RazorpayKeyID = strings.TrimSpace(os.Getenv("UNMUTE_RAZORPAY_KEY_ID"))
	cfg.RazorpayKeySecret = strings.TrimSpace(os.Getenv("UNMUTE_RAZORPAY_KEY_SECRET"))

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
