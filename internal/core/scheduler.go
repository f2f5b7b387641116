package core

// scheduler.go runs background maintenance for report history.
//
// History entries keep full report snapshots, so they are pruned once they
// are older than the configured retention. The scheduler runs until its
// context is cancelled; a failed run is logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// PruneConfig holds configuration for the history prune scheduler.
type PruneConfig struct {
	Retention     time.Duration // Age after which entries are deleted; 0 disables pruning
	CheckInterval time.Duration // How often to run (default: 24h)
}

// StartPruneScheduler deletes expired history entries once on start and then
// every CheckInterval, until ctx is cancelled. It returns at once when
// retention is disabled.
func (s *Service) StartPruneScheduler(ctx context.Context, cfg PruneConfig) {
	if cfg.Retention <= 0 {
		slog.Info("history pruning disabled")
		return
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 24 * time.Hour
	}
	slog.Info("history prune scheduler started",
		"retention", cfg.Retention,
		"interval", cfg.CheckInterval,
	)

	s.runPruneJob(ctx, cfg.Retention)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history prune scheduler stopped")
			return
		case <-ticker.C:
			s.runPruneJob(ctx, cfg.Retention)
		}
	}
}

// runPruneJob performs one prune cycle.
func (s *Service) runPruneJob(ctx context.Context, retention time.Duration) {
	start := time.Now()
	pruned, err := s.PruneHistory(ctx, retention)
	if err != nil {
		slog.Error("history prune failed", "error", err)
		return
	}
	slog.Info("pruned history entries",
		"entries_pruned", pruned,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// PruneHistory deletes history entries older than retention.
func (s *Service) PruneHistory(ctx context.Context, retention time.Duration) (int64, error) {
	return s.store.PruneAudit(ctx, s.now().Add(-retention))
}
