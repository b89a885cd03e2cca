package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/tour-bundler/internal/config"
	"github.com/albapepper/tour-bundler/internal/dataset"
	"github.com/albapepper/tour-bundler/internal/db"
	"github.com/albapepper/tour-bundler/internal/metrics"
	"github.com/albapepper/tour-bundler/internal/notifications"
)

// runBundle reads input, bundles it, and writes output. Nothing is written
// unless every row parsed and bundling succeeded.
func runBundle(ctx context.Context, cfg *config.Config, input, output string, logger *slog.Logger) (*notifications.Result, error) {
	runID := uuid.New()
	logger = logger.With("run_id", runID)
	m := metrics.New()
	defer writeMetrics(cfg, m, logger)

	policy, err := notifications.ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}
	var th notifications.Thresholds
	if policy == notifications.PolicyPredict {
		th, err = notifications.LoadThresholds(cfg.ThresholdsFile)
		if err != nil {
			return nil, err
		}
	}

	start := time.Now()
	events, err := dataset.ReadFile(input, cfg.Location)
	if err != nil {
		m.Fail("read")
		return nil, fmt.Errorf("read %s: %w", input, err)
	}
	logger.Info("Events loaded", "path", input, "count", len(events), "timezone", cfg.Timezone)

	res, err := notifications.Run(ctx, events, notifications.Options{
		Policy:     policy,
		Thresholds: th,
		Workers:    cfg.Workers,
	}, logger)
	if err != nil {
		m.Fail("bundle")
		return nil, err
	}

	if err := dataset.WriteFile(output, res.Records); err != nil {
		m.Fail("write")
		return nil, fmt.Errorf("write %s: %w", output, err)
	}
	logger.Info("Notifications written", "path", output, "count", len(res.Records))

	if cfg.DatabaseURL != "" {
		if err := storeRecords(ctx, cfg, runID, res, logger); err != nil {
			m.Fail("sink")
			return nil, err
		}
	}

	m.Observe(res)
	logger.Info("Bundle run finished",
		"duration", time.Since(start).Round(time.Millisecond),
		"summary", res.Summary())
	return res, nil
}

func storeRecords(ctx context.Context, cfg *config.Config, runID uuid.UUID, res *notifications.Result, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.EnsureSchema(ctx); err != nil {
		return err
	}
	n, err := pool.InsertRecords(ctx, runID, res.Policy, res.Records)
	if err != nil {
		return fmt.Errorf("store notifications: %w", err)
	}
	logger.Info("Notifications stored", "table", config.NotificationsTable, "count", n)
	return nil
}

func writeMetrics(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) {
	if cfg.MetricsTextfile == "" {
		return
	}
	if err := m.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.Warn("metrics textfile not written", "path", cfg.MetricsTextfile, "error", err)
	}
}
