// Command bundler turns a friend-tour event log into bundled notifications.
//
// Usage:
//
//	bundler run events.csv notifications.csv --policy exact
//	bundler run events.csv notifications.csv --policy predict --workers 8
//	bundler thresholds --file thresholds.yaml
//	bundler serve --port 8080
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/tour-bundler/internal/config"
	"github.com/albapepper/tour-bundler/internal/notifications"
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "bundler",
		Short:         "Bundle friend-tour events into notifications",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(runCmd())
	root.AddCommand(thresholdsCmd())
	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// run command
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run INPUT OUTPUT",
		Short: "Bundle an events CSV into a notifications CSV",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfig(cmd, flags.common, func(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
				if cmd.Flags().Changed("database-url") {
					cfg.DatabaseURL = flags.databaseURL
				}
				if cmd.Flags().Changed("metrics-textfile") {
					cfg.MetricsTextfile = flags.metricsTextfile
				}
				_, err := runBundle(ctx, cfg, args[0], args[1], logger)
				return err
			})
		},
	}
	flags.common.register(cmd)
	cmd.Flags().StringVar(&flags.databaseURL, "database-url", "", "Also store records in Postgres (overrides DATABASE_URL)")
	cmd.Flags().StringVar(&flags.metricsTextfile, "metrics-textfile", "", "Write run metrics in Prometheus text format")
	return cmd
}

type runFlags struct {
	common          commonFlags
	databaseURL     string
	metricsTextfile string
}

// --------------------------------------------------------------------------
// thresholds command
// --------------------------------------------------------------------------

func thresholdsCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "thresholds",
		Short: "Print the effective predict-policy threshold table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = os.Getenv("BUNDLER_THRESHOLDS_FILE")
			}
			th, err := notifications.LoadThresholds(file)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "daytime: %d < hour < %d; high breadth: >= %d friends\n",
				th.DayStartHour, th.DayEndHour, th.BreadthCutoff)
			fmt.Fprintf(out, "%-8s %6s %6s\n", "", "low", "high")
			fmt.Fprintf(out, "%-8s %6d %6d\n", "day", th.DayLow, th.DayHigh)
			fmt.Fprintf(out, "%-8s %6d %6d\n", "night", th.NightLow, th.NightHigh)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Thresholds YAML (default BUNDLER_THRESHOLDS_FILE)")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// commonFlags override the environment configuration.
type commonFlags struct {
	policy     string
	workers    int
	timezone   string
	thresholds string
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.policy, "policy", "", "Bundling policy: exact or predict (default BUNDLER_POLICY, else exact)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Partitions bundled concurrently (default BUNDLER_WORKERS)")
	cmd.Flags().StringVar(&f.timezone, "timezone", "", "Source timezone of naive timestamps (default BUNDLER_TIMEZONE, else UTC)")
	cmd.Flags().StringVar(&f.thresholds, "thresholds", "", "Predict thresholds YAML (default BUNDLER_THRESHOLDS_FILE)")
}

// withConfig handles config loading, flag overrides, logger setup, and
// context cancellation.
func withConfig(cmd *cobra.Command, flags commonFlags, fn func(ctx context.Context, cfg *config.Config, logger *slog.Logger) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("policy") {
		cfg.Policy = flags.policy
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = flags.workers
	}
	if cmd.Flags().Changed("thresholds") {
		cfg.ThresholdsFile = flags.thresholds
	}
	if cmd.Flags().Changed("timezone") {
		if err := cfg.SetTimezone(flags.timezone); err != nil {
			return err
		}
	}

	// Reject a bad policy before touching any file.
	if _, err := notifications.ParsePolicy(cfg.Policy); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	return fn(ctx, cfg, logger)
}
