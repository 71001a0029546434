package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"coursesched/internal/config"
	appLog "coursesched/internal/log"
	"coursesched/internal/schedule"
)

const version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "coursesched",
	Short: "Browse course offerings and build a conflict-free schedule",
	Long: `coursesched downloads a department's course list and serves a small web
page where students pick a term and select courses. Courses that overlap a
selected one are disabled.`,
	Version:      version,
	SilenceUsage: true,
	// Running without a subcommand starts the server.
	RunE: runServe,
}

// Execute runs the root command with a context canceled on SIGINT/SIGTERM
// and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.yaml", "Path to config file (created with defaults if missing)")
	addServeFlags(rootCmd)
}

// loadConfig loads the config file and sets up logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	appLog.Setup(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

func newLoader(cfg *config.Config) *schedule.Loader {
	return schedule.NewLoader(
		schedule.NewFetcher(cfg.CacheDir, cfg.Fetch.Timeout()),
		schedule.Options{
			URL:     cfg.ScheduleURL,
			Retries: cfg.Fetch.Retries,
			Backoff: cfg.Fetch.Backoff(),
		},
	)
}
