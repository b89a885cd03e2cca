package config

import (
	"log/slog"
	"testing"
	"time"
	_ "time/tzdata"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"BUNDLER_POLICY", "BUNDLER_WORKERS", "BUNDLER_TIMEZONE", "DATABASE_URL", "LOG_LEVEL", "CORS_ALLOW_ORIGINS"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Policy != "exact" || cfg.Workers != 4 {
		t.Errorf("policy=%s workers=%d", cfg.Policy, cfg.Workers)
	}
	if cfg.Location != time.UTC {
		t.Errorf("Location = %v, want UTC", cfg.Location)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BUNDLER_POLICY", "predict")
	t.Setenv("BUNDLER_WORKERS", "8")
	t.Setenv("BUNDLER_TIMEZONE", "Europe/Berlin")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Policy != "predict" || cfg.Workers != 8 {
		t.Errorf("policy=%s workers=%d", cfg.Policy, cfg.Workers)
	}
	if cfg.Location.String() != "Europe/Berlin" {
		t.Errorf("Location = %s", cfg.Location)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if len(cfg.CORSAllowOrigins) != 2 {
		t.Errorf("CORSAllowOrigins = %v", cfg.CORSAllowOrigins)
	}
	if cfg.RateLimitEnabled {
		t.Error("RateLimitEnabled = true, want false")
	}
}

func TestLoadBadTimezone(t *testing.T) {
	t.Setenv("BUNDLER_TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
