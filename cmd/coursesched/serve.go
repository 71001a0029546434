package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	appLog "coursesched/internal/log"
	"coursesched/internal/planner"
	"coursesched/internal/web"
)

const sweepSpec = "@every 5m"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the course planner (default)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().String("listen", "", "HTTP listen address (overrides config if set)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Listen = listen
	}

	appLog.Info("coursesched starting", "version", version)
	appLog.Info("effective config",
		"listen", cfg.Listen,
		"schedule_url", cfg.ScheduleURL,
		"default_term", cfg.DefaultTerm,
		"refresh", cfg.RefreshCron,
		"cache_dir", cfg.CacheDir,
		"timezone", cfg.Timezone,
		"basic_auth", cfg.BasicAuth != nil,
	)

	ctx := cmd.Context()
	loader := newLoader(cfg)
	sessions := planner.NewSessions(cfg.Term())

	srv, err := web.NewServer(cfg, loader, sessions)
	if err != nil {
		return err
	}

	// The page shows a loading banner until the first load succeeds.
	go func() {
		if err := loader.Run(ctx); err != nil && ctx.Err() == nil {
			appLog.Error("initial schedule load failed; waiting for next refresh", err)
		}
	}()

	c := cron.New()
	if _, err := loader.Schedule(ctx, c, cfg.RefreshCron); err != nil {
		return err
	}
	idle := time.Duration(cfg.SessionIdleMinutes) * time.Minute
	if _, err := c.AddFunc(sweepSpec, func() {
		if n := sessions.Sweep(idle); n > 0 {
			appLog.Debug("expired idle sessions", "removed", n, "remaining", sessions.Len())
		}
	}); err != nil {
		return err
	}
	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		appLog.Error("http server stopped", err)
		return err
	}
	appLog.Info("coursesched exiting", "pid", os.Getpid())
	return nil
}
