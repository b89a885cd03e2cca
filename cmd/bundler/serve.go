package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/albapepper/tour-bundler/internal/api"
	"github.com/albapepper/tour-bundler/internal/api/handler"
	"github.com/albapepper/tour-bundler/internal/cache"
	"github.com/albapepper/tour-bundler/internal/config"
	"github.com/albapepper/tour-bundler/internal/db"
	"github.com/albapepper/tour-bundler/internal/metrics"
	"github.com/albapepper/tour-bundler/internal/notifications"
)

const previewCacheEntries = 256

func serveCmd() *cobra.Command {
	var (
		flags commonFlags
		host  string
		port  int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the bundle preview API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfig(cmd, flags, func(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
				if cmd.Flags().Changed("host") {
					cfg.APIHost = host
				}
				if cmd.Flags().Changed("port") {
					cfg.APIPort = port
				}
				return serve(ctx, cfg, logger)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&host, "host", "", "Listen host (default API_HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default API_PORT)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	th, err := notifications.LoadThresholds(cfg.ThresholdsFile)
	if err != nil {
		return err
	}

	// Optional database, only for /health/db.
	var pinger handler.Pinger
	if cfg.DatabaseURL != "" {
		logger.Info("Connecting to database...")
		pool, err := db.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		pinger = pool
	}

	appCache := cache.New(true, previewCacheEntries)
	go appCache.Run(ctx)

	router := api.NewRouter(cfg, appCache, metrics.New(), th, pinger, logger)

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting bundle preview API",
			"addr", addr,
			"default_policy", cfg.Policy,
			"timezone", cfg.Timezone)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
