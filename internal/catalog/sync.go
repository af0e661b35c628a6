package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MohamedIjlal27/SFA-sub000/internal/types"
	"github.com/oklog/ulid/v2"
)

// Sync replaces the structured store with a fresh copy of the server
// catalog. Either every fetched product and the new metadata are committed
// together, or the store is left exactly as it was. Saved flags of products
// that survive the sync are preserved.
//
// Concurrent calls share the run already in flight. A started run is not
// interrupted by cancellation of ctx; it ends when its requests complete or
// time out.
func (s *Service) Sync(ctx context.Context) (*types.SyncResult, error) {
	ch := s.group.DoChan("sync", func() (any, error) {
		return s.runSync(context.WithoutCancel(ctx))
	})

	select {
	case r := <-ch:
		result, _ := r.Val.(*types.SyncResult)
		return result, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) runSync(ctx context.Context) (*types.SyncResult, error) {
	result := &types.SyncResult{
		ID:        ulid.Make().String(),
		StartedAt: s.now(),
	}
	s.transition(types.SyncSyncing)

	slog.Info("sync started",
		"component", "catalog",
		"action", "sync_start",
		"sync_id", result.ID,
	)

	err := s.syncOnce(ctx, result)

	result.FinishedAt = s.now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)
	if err != nil {
		result.State = types.SyncFailed
		result.Error = err.Error()
		slog.Warn("sync failed",
			"component", "catalog",
			"action", "sync_failed",
			"sync_id", result.ID,
			"duration", result.Duration,
			"error", err,
		)
	} else {
		result.State = types.SyncSucceeded
		slog.Info("sync completed",
			"component", "catalog",
			"action", "sync_complete",
			"sync_id", result.ID,
			"products", result.ProductCount,
			"saved_kept", result.SavedKept,
			"duration", result.Duration,
		)
	}

	if s.local != nil {
		if rerr := s.local.RecordSyncRun(ctx, *result); rerr != nil {
			slog.Warn("failed to record sync run",
				"component", "catalog",
				"sync_id", result.ID,
				"error", rerr,
			)
		}
	}

	s.finish(result)
	return result, err
}

func (s *Service) syncOnce(ctx context.Context, result *types.SyncResult) error {
	if s.local == nil {
		return errNoStore
	}
	if s.remote == nil || !s.conn.Connected(ctx) {
		return fmt.Errorf("%w: device is offline", types.ErrRemoteUnavailable)
	}

	total, err := s.remote.FetchTotalCount(ctx)
	if err != nil {
		return err
	}
	products, err := s.remote.FetchFullCatalog(ctx, total)
	if err != nil {
		return err
	}

	// Flags are read and the catalog replaced under one write lock so a
	// toggle cannot land between the two.
	s.mu.Lock()
	defer s.mu.Unlock()

	saved, err := s.local.SavedFlags(ctx)
	if err != nil {
		return fmt.Errorf("%w: read saved flags: %v", types.ErrLocalStoreUnavailable, err)
	}

	merged := mergeAll(products, saved)
	for _, p := range merged {
		if p.IsSaved {
			result.SavedKept++
		}
	}

	meta := buildMetadata(merged, total, s.now())
	if err := s.local.ReplaceCatalog(ctx, merged, meta); err != nil {
		return fmt.Errorf("%w: replace catalog: %v", types.ErrLocalStoreUnavailable, err)
	}

	result.ProductCount = len(merged)
	return nil
}

// transition moves the sync state machine and notifies the observer.
func (s *Service) transition(to types.SyncState) {
	s.stateMu.Lock()
	from := s.state
	s.state = to
	notify := s.onStateChange
	s.stateMu.Unlock()

	if notify != nil && from != to {
		notify(from, to)
	}
}

// finish records the outcome of a run and returns the machine to idle.
func (s *Service) finish(result *types.SyncResult) {
	s.stateMu.Lock()
	copied := *result
	s.last = &copied
	s.stateMu.Unlock()

	s.transition(result.State)
	s.transition(types.SyncIdle)
}

// State returns the current sync state.
func (s *Service) State() types.SyncState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// LastResult returns the outcome of the most recent run in this process, or
// nil if none has run.
func (s *Service) LastResult() *types.SyncResult {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.last == nil {
		return nil
	}
	copied := *s.last
	return &copied
}

// SyncHistory returns recorded sync runs, newest first.
func (s *Service) SyncHistory(ctx context.Context, limit int) ([]types.SyncResult, error) {
	if s.local == nil {
		return nil, types.ErrLocalStoreUnavailable
	}
	if limit <= 0 {
		limit = 20
	}
	return s.local.SyncRuns(ctx, limit)
}
