// Package handler provides HTTP handlers for the bundle preview API.
// Handlers run the same pipeline as the batch command on an uploaded CSV.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/albapepper/tour-bundler/internal/api/respond"
	"github.com/albapepper/tour-bundler/internal/cache"
	"github.com/albapepper/tour-bundler/internal/config"
	"github.com/albapepper/tour-bundler/internal/metrics"
	"github.com/albapepper/tour-bundler/internal/notifications"
)

// Pinger reports whether the optional database sink is reachable.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	cfg        *config.Config
	cache      *cache.Cache
	metrics    *metrics.Metrics
	thresholds notifications.Thresholds
	db         Pinger // nil when no sink is configured
	logger     *slog.Logger
}

// New creates a Handler with shared dependencies.
func New(cfg *config.Config, c *cache.Cache, m *metrics.Metrics, th notifications.Thresholds, db Pinger, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:        cfg,
		cache:      c,
		metrics:    m,
		thresholds: th,
		db:         db,
		logger:     logger,
	}
}

// Root serves API info at /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":     "Tour Bundler Preview API",
		"status":   "running",
		"policies": []notifications.Policy{notifications.PolicyExact, notifications.PolicyPredict},
		"default":  h.cfg.Policy,
		"timezone": h.cfg.Timezone,
	})
}

// HealthCheck returns basic health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity when a sink is configured.
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
			"status":    "healthy",
			"database":  "not configured",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	if err := h.db.HealthCheck(r.Context()); err != nil {
		h.logger.Warn("database health check failed", "error", err)
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns preview cache statistics.
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
