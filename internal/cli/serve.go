package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vibegraph/vibegraph/internal/api"
	"github.com/vibegraph/vibegraph/internal/config"
	"github.com/vibegraph/vibegraph/internal/db"
	"github.com/vibegraph/vibegraph/internal/db/driver"
	"github.com/vibegraph/vibegraph/internal/events"
	"github.com/vibegraph/vibegraph/internal/github"
	"github.com/vibegraph/vibegraph/internal/orchestrator"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and GitHub sync monitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			logger := newLogger()

			dialect, err := driver.ParseDialect(cfg.Database.Dialect)
			if err != nil {
				return err
			}
			store, err := db.Open(driver.Config{Dialect: dialect, DSN: cfg.Database.DSN}, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			registry := orchestrator.NewRegistry(cfg.Orchestrator.MaxParallelTasks, logger)
			provider := github.NewCLIProvider(cfg.Github.Token, logger)
			syncSvc := github.NewSyncService(provider, logger)
			monitor := github.NewSyncMonitor(store, syncSvc, cfg.Github.SyncInterval.Std(), logger)
			publisher := events.NewMemoryPublisher()
			defer publisher.Close()

			server := api.New(&api.Config{Addr: cfg.Server.Addr, Logger: logger}, store, registry, syncSvc, publisher)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return server.Start(ctx)
			})
			g.Go(func() error {
				return monitor.Run(ctx)
			})

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info("shutdown complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

// newLogger builds the process logger honoring --verbose.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
