// Package config builds service configuration from the environment so main
// stays lean. Anything required for safe operation is validated here: a
// process with a bad record key or store endpoint must refuse to start
// rather than fail per-request.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"time"
)

// Config captures everything the server needs at boot.
type Config struct {
	Addr string

	// RedisURL is the record store endpoint, e.g. redis://:secret@host:6379/0.
	// Credentials travel inside the URL, matching go-redis ParseURL.
	RedisURL string

	// RecordKey is the base64-encoded 32-byte key protecting applicant data
	// at rest. Validated here; decoded by the crypto service.
	RecordKey string

	// ReviewerSigningKey signs reviewer bearer tokens for the review surface.
	ReviewerSigningKey string

	DraftTTL        time.Duration
	ApplicationTTL  time.Duration
	AuditTTL        time.Duration
	CleanupInterval time.Duration

	LogFormat string
	LogLevel  string
}

// Defaults. Application retention is a policy decision, not derived from the
// draft TTL: drafts are a convenience, applications are under review.
const (
	DefaultDraftTTL        = 7 * 24 * time.Hour
	DefaultApplicationTTL  = 30 * 24 * time.Hour
	DefaultAuditTTL        = 90 * 24 * time.Hour
	DefaultCleanupInterval = time.Hour
)

// FromEnv builds a Config from environment variables.
// It returns an error for missing or malformed required settings; callers
// must treat that as fatal.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:               envOr("LENDO_ADDR", ":8080"),
		RedisURL:           os.Getenv("REDIS_URL"),
		RecordKey:          os.Getenv("RECORD_KEY"),
		ReviewerSigningKey: os.Getenv("REVIEWER_SIGNING_KEY"),
		DraftTTL:           DefaultDraftTTL,
		ApplicationTTL:     DefaultApplicationTTL,
		AuditTTL:           DefaultAuditTTL,
		CleanupInterval:    DefaultCleanupInterval,
		LogFormat:          envOr("LOG_FORMAT", "text"),
		LogLevel:           envOr("LOG_LEVEL", "info"),
	}

	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL is required")
	}
	if err := validateRecordKey(cfg.RecordKey); err != nil {
		return Config{}, err
	}
	if cfg.ReviewerSigningKey == "" {
		return Config{}, fmt.Errorf("REVIEWER_SIGNING_KEY is required")
	}

	for _, d := range []struct {
		env string
		dst *time.Duration
	}{
		{"DRAFT_TTL", &cfg.DraftTTL},
		{"APPLICATION_TTL", &cfg.ApplicationTTL},
		{"AUDIT_TTL", &cfg.AuditTTL},
		{"CLEANUP_INTERVAL", &cfg.CleanupInterval},
	} {
		raw := os.Getenv(d.env)
		if raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s: invalid duration %q: %w", d.env, raw, err)
		}
		if parsed <= 0 {
			return Config{}, fmt.Errorf("%s must be positive, got %q", d.env, raw)
		}
		*d.dst = parsed
	}

	return cfg, nil
}

// validateRecordKey checks presence and shape without keeping decoded bytes
// around; the crypto service decodes again at construction.
func validateRecordKey(key string) error {
	if key == "" {
		return fmt.Errorf("RECORD_KEY is required")
	}
	decoded, err := decodeKey(key)
	if err != nil {
		return fmt.Errorf("RECORD_KEY is not valid base64: %w", err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("RECORD_KEY must decode to 32 bytes, got %d", len(decoded))
	}
	return nil
}

func decodeKey(key string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(key); err == nil {
		return decoded, nil
	}
	return base64.RawURLEncoding.DecodeString(key)
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
