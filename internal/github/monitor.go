package github

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSyncInterval is how often the monitor polls enabled links.
const DefaultSyncInterval = 300 * time.Second

// SyncMonitor periodically pulls every enabled GitHub project link.
// Links are processed sequentially per tick, stalest first, and one
// link's failure never aborts the tick.
type SyncMonitor struct {
	store    Store
	sync     *SyncService
	interval time.Duration
	logger   *slog.Logger
}

// NewSyncMonitor creates a monitor. A non-positive interval falls back
// to the default.
func NewSyncMonitor(store Store, sync *SyncService, interval time.Duration, logger *slog.Logger) *SyncMonitor {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncMonitor{
		store:    store,
		sync:     sync,
		interval: interval,
		logger:   logger,
	}
}

// Run drives the polling loop until the context is cancelled. It
// returns immediately when the provider is unreachable at startup.
func (m *SyncMonitor) Run(ctx context.Context) error {
	if err := m.sync.CheckAvailable(ctx); err != nil {
		m.logger.Warn("GitHub provider unavailable, sync monitor will not start", "error", err)
		return nil
	}

	m.logger.Info("starting GitHub sync monitor", "interval", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick syncs every enabled link once.
func (m *SyncMonitor) tick(ctx context.Context) {
	links, err := m.store.ListAllEnabledLinks(ctx)
	if err != nil {
		m.logger.Error("failed to load enabled GitHub links", "error", err)
		return
	}
	if len(links) == 0 {
		m.logger.Debug("no enabled GitHub links to sync")
		return
	}

	m.logger.Info("syncing enabled GitHub links", "count", len(links))

	for i := range links {
		link := &links[i]
		result, err := m.sync.SyncFromGithub(ctx, m.store, link, link.ProjectID)
		if err != nil {
			m.logger.Error("GitHub link sync failed",
				"link_id", link.ID,
				"github_project_id", link.GithubProjectID,
				"error", err)
			continue
		}
		if len(result.Errors) > 0 {
			m.logger.Warn("GitHub link sync completed with errors",
				"link_id", link.ID,
				"errors", len(result.Errors))
		}
	}

	// Retry anything the push side queued while offline.
	if n := m.sync.ProcessQueue(ctx, m.store); n > 0 {
		m.logger.Info("processed queued sync operations", "count", n)
	}
}
