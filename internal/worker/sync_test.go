package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MohamedIjlal27/SFA-sub000/internal/types"
)

// mockSyncer implements the Syncer interface for testing.
type mockSyncer struct {
	mu        sync.Mutex
	syncCalls int
	syncErr   error
	offline   bool
}

func (m *mockSyncer) Sync(ctx context.Context) (*types.SyncResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncCalls++
	if m.syncErr != nil {
		return &types.SyncResult{State: types.SyncFailed}, m.syncErr
	}
	return &types.SyncResult{ID: "run", State: types.SyncSucceeded}, nil
}

func (m *mockSyncer) Online(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.offline
}

func (m *mockSyncer) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncCalls
}

func runFor(w *SyncWorker, d time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	time.Sleep(d)
	cancel()
	<-done
}

func TestSyncWorker_SyncsOnStart(t *testing.T) {
	syncer := &mockSyncer{}
	runFor(NewSyncWorker(syncer, time.Hour, true), 50*time.Millisecond)

	if got := syncer.calls(); got != 1 {
		t.Errorf("Expected 1 Sync call on start, got %d", got)
	}
}

func TestSyncWorker_NoSyncOnStartWhenDisabled(t *testing.T) {
	syncer := &mockSyncer{}
	runFor(NewSyncWorker(syncer, time.Hour, false), 50*time.Millisecond)

	if got := syncer.calls(); got != 0 {
		t.Errorf("Expected no Sync call, got %d", got)
	}
}

func TestSyncWorker_SyncsOnInterval(t *testing.T) {
	syncer := &mockSyncer{}
	runFor(NewSyncWorker(syncer, 50*time.Millisecond, false), 175*time.Millisecond)

	if got := syncer.calls(); got < 2 {
		t.Errorf("Expected at least 2 interval syncs, got %d", got)
	}
}

func TestSyncWorker_SkipsWhenOffline(t *testing.T) {
	syncer := &mockSyncer{offline: true}
	runFor(NewSyncWorker(syncer, 20*time.Millisecond, true), 100*time.Millisecond)

	if got := syncer.calls(); got != 0 {
		t.Errorf("Expected no Sync calls while offline, got %d", got)
	}
}

func TestSyncWorker_ContinuesAfterFailure(t *testing.T) {
	syncer := &mockSyncer{syncErr: types.ErrRemoteUnavailable}
	runFor(NewSyncWorker(syncer, 30*time.Millisecond, true), 120*time.Millisecond)

	if got := syncer.calls(); got < 2 {
		t.Errorf("Expected worker to keep syncing after failures, got %d calls", got)
	}
}

func TestSyncWorker_StopsOnCancel(t *testing.T) {
	syncer := &mockSyncer{}
	w := NewSyncWorker(syncer, time.Hour, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}
