package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/MohamedIjlal27/SFA-sub000/internal/types"
)

// Syncer defines the catalog operations needed by the sync worker.
type Syncer interface {
	Sync(ctx context.Context) (*types.SyncResult, error)
	Online(ctx context.Context) bool
}

// SyncWorker runs full catalog syncs on a fixed interval.
type SyncWorker struct {
	syncer      Syncer
	interval    time.Duration
	syncOnStart bool
}

// NewSyncWorker creates a worker with the given syncer and interval.
func NewSyncWorker(syncer Syncer, interval time.Duration, syncOnStart bool) *SyncWorker {
	return &SyncWorker{
		syncer:      syncer,
		interval:    interval,
		syncOnStart: syncOnStart,
	}
}

// Run starts the worker loop. It optionally syncs immediately, then on each
// interval. Respects context cancellation for graceful shutdown.
func (w *SyncWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "catalog-sync",
		"interval", w.interval,
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	if w.syncOnStart {
		w.sync(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "catalog-sync",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.sync(ctx)
		}
	}
}

// sync runs one sync and logs any errors. Offline ticks are skipped.
func (w *SyncWorker) sync(ctx context.Context) {
	if !w.syncer.Online(ctx) {
		slog.Debug("sync skipped",
			"component", "worker",
			"action", "sync_skipped",
			"reason", "offline",
		)
		return
	}

	result, err := w.syncer.Sync(ctx)
	if err != nil {
		// Check if it's a context cancellation (graceful shutdown)
		if ctx.Err() != nil {
			return
		}
		if types.IsAuthError(err) {
			slog.Error("scheduled sync needs a new login",
				"component", "worker",
				"action", "sync_auth_failed",
				"error", err,
			)
			return
		}
		slog.Warn("scheduled sync failed",
			"component", "worker",
			"action", "sync_failed",
			"error", err,
		)
		return
	}

	slog.Info("scheduled sync completed",
		"component", "worker",
		"action", "sync_complete",
		"sync_id", result.ID,
		"products", result.ProductCount,
	)
}
