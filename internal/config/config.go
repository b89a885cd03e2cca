// Package config provides centralized configuration loaded from environment
// variables. Shared by the run and serve commands.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Table names — single source of truth for the sink schema
// --------------------------------------------------------------------------

const (
	NotificationsTable = "tour_notifications"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Bundling
	Policy         string // exact | predict
	Workers        int
	Timezone       string
	Location       *time.Location
	ThresholdsFile string // optional YAML override for predict thresholds

	// Optional Postgres sink
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// Preview API server
	APIHost        string
	APIPort        int
	MaxUploadBytes int64

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Observability
	LogLevel        slog.Level
	MetricsTextfile string // batch runs write Prometheus text format here
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	tz := envOr("BUNDLER_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("BUNDLER_TIMEZONE %q: %w", tz, err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(envOr("LOG_LEVEL", "INFO"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	return &Config{
		Policy:         envOr("BUNDLER_POLICY", "exact"),
		Workers:        envInt("BUNDLER_WORKERS", 4),
		Timezone:       tz,
		Location:       loc,
		ThresholdsFile: envOr("BUNDLER_THRESHOLDS_FILE", ""),

		DatabaseURL:    envOr("DATABASE_URL", ""),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 4),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:        envOr("API_HOST", "0.0.0.0"),
		APIPort:        envInt("API_PORT", envInt("PORT", 8000)),
		MaxUploadBytes: int64(envInt("MAX_UPLOAD_BYTES", 32<<20)),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		LogLevel:        level,
		MetricsTextfile: envOr("METRICS_TEXTFILE", ""),
	}, nil
}

// SetTimezone replaces the source location.
func (c *Config) SetTimezone(tz string) error {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", tz, err)
	}
	c.Timezone = tz
	c.Location = loc
	return nil
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
