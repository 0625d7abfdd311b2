// Package cmd holds the recommender command line.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/starbank/recommender/internal/config"
	"github.com/starbank/recommender/internal/logger"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "recommender",
	Short: "Bank product recommendation service",
	Long: `recommender evaluates stored product rules against a customer's transaction
history and serves the matching products over HTTP. Configuration is read from
RECOMMENDER_* environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override RECOMMENDER_APP_LOG_LEVEL (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override RECOMMENDER_APP_LOG_FORMAT (json, text)")
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// bootstrap loads configuration, applies flag overrides and installs the
// process-wide logger.
func bootstrap(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") || flags.Changed("log-format") {
		if flags.Changed("log-level") {
			cfg.App.LogLevel = logLevel
		}
		if flags.Changed("log-format") {
			cfg.App.LogFormat = logFormat
		}
		if err := cfg.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid flag override: %w", err)
		}
	}

	log := logger.New(&cfg.App)
	slog.SetDefault(log)
	return cfg, log, nil
}
