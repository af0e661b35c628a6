// Package catalog orchestrates the remote catalog, the structured store and
// the page cache behind a single offline-first read path and an
// all-or-nothing full sync.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MohamedIjlal27/SFA-sub000/internal/store"
	"github.com/MohamedIjlal27/SFA-sub000/internal/types"
	"github.com/MohamedIjlal27/SFA-sub000/internal/validation"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// Fetcher reads the authoritative catalog from the server.
type Fetcher interface {
	FetchPage(ctx context.Context, req types.PageRequest) (*types.PaginatedResponse, error)
	FetchTotalCount(ctx context.Context) (int, error)
	FetchFullCatalog(ctx context.Context, totalCount int) ([]types.Product, error)
	FetchCategories(ctx context.Context) ([]types.Category, error)
}

// LocalStore is the structured on-device copy of the catalog.
type LocalStore interface {
	Query(ctx context.Context, filter store.Filter, sortBy, sortOrder string, limit, offset int) ([]types.Product, int, error)
	ReplaceCatalog(ctx context.Context, products []types.Product, meta types.ProductsMetadata) error
	SavedFlags(ctx context.Context, itemCodes ...string) (map[string]bool, error)
	ToggleSaved(ctx context.Context, itemCode string) (bool, error)
	SavedProducts(ctx context.Context) ([]types.Product, error)
	Metadata(ctx context.Context) (*types.ProductsMetadata, error)
	RecordSyncRun(ctx context.Context, run types.SyncResult) error
	SyncRuns(ctx context.Context, limit int) ([]types.SyncResult, error)
}

// PageCache holds previously fetched pages keyed by types.CacheKey.
type PageCache interface {
	Put(ctx context.Context, key string, resp *types.PaginatedResponse) error
	Get(ctx context.Context, key string) (*types.PaginatedResponse, error)
}

// Connectivity reports whether the device can currently reach the server.
type Connectivity interface {
	Connected(ctx context.Context) bool
}

// ConnectivityFunc adapts a function to Connectivity.
type ConnectivityFunc func(ctx context.Context) bool

// Connected calls f(ctx).
func (f ConnectivityFunc) Connected(ctx context.Context) bool { return f(ctx) }

// Offline is a Connectivity that never connects.
var Offline = ConnectivityFunc(func(context.Context) bool { return false })

// Options tunes a Service.
type Options struct {
	// MaxConcurrentReads bounds concurrent GetPage calls. Zero means 8.
	MaxConcurrentReads int64
	// OnStateChange, when set, observes every sync state transition.
	OnStateChange func(from, to types.SyncState)
	// Now overrides the clock.
	Now func() time.Time
}

// Service is the sync orchestrator.
type Service struct {
	remote Fetcher
	local  LocalStore
	cache  PageCache
	conn   Connectivity

	// mu orders structured-store reads against the sync replace and flag
	// toggles. Remote fetching happens outside it.
	mu    sync.RWMutex
	reads *semaphore.Weighted
	group singleflight.Group

	stateMu       sync.Mutex
	state         types.SyncState
	last          *types.SyncResult
	onStateChange func(from, to types.SyncState)

	now func() time.Time
}

// NewService wires the orchestrator. Any of local and cache may be nil, in
// which case the corresponding tier is treated as unavailable.
func NewService(remote Fetcher, local LocalStore, cache PageCache, conn Connectivity, opts Options) *Service {
	if opts.MaxConcurrentReads <= 0 {
		opts.MaxConcurrentReads = 8
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if conn == nil {
		conn = Offline
	}
	return &Service{
		remote:        remote,
		local:         local,
		cache:         cache,
		conn:          conn,
		reads:         semaphore.NewWeighted(opts.MaxConcurrentReads),
		state:         types.SyncIdle,
		onStateChange: opts.OnStateChange,
		now:           opts.Now,
	}
}

// GetPage serves one page of the catalog from the freshest tier that can
// answer: the network when connected, then the structured store, then the
// page cache. Authentication errors from the network are returned as-is and
// never fall back. Requests filtered on saved are answered locally first
// since only the device knows which products are saved.
func (s *Service) GetPage(ctx context.Context, req types.PageRequest) (*types.PaginatedResponse, error) {
	req = req.Normalized()
	if errs := validation.ValidatePageRequest(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidRequest, validation.Errors(errs))
	}

	if err := s.reads.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.reads.Release(1)

	key := types.CacheKey(req)

	if !req.ActiveFilters.Has(types.FilterSaved) && s.conn.Connected(ctx) {
		resp, err := s.fromNetwork(ctx, req, key)
		if err == nil {
			return resp, nil
		}
		if types.IsAuthError(err) {
			return nil, err
		}
		slog.Warn("network page fetch failed, falling back",
			"component", "catalog",
			"action", "fallback_local",
			"page", req.Page,
			"error", err,
		)
	}

	resp, err := s.fromLocal(ctx, req)
	if err == nil {
		return resp, nil
	}
	slog.Info("local store could not serve page, trying page cache",
		"component", "catalog",
		"action", "fallback_page_cache",
		"page", req.Page,
		"error", err,
	)

	return s.fromPageCache(ctx, key)
}

func (s *Service) fromNetwork(ctx context.Context, req types.PageRequest, key string) (*types.PaginatedResponse, error) {
	if s.remote == nil {
		return nil, types.ErrRemoteUnavailable
	}
	fetched, err := s.remote.FetchPage(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := types.NewPaginatedResponse(fetched.Products, fetched.Total, req.Page, req.Limit)
	if s.cache != nil {
		if err := s.cache.Put(ctx, key, resp); err != nil {
			slog.Warn("page cache write failed",
				"component", "catalog",
				"action", "cache_put_failed",
				"error", err,
			)
		}
	}

	resp.Products = s.withLocalFlags(ctx, resp.Products)
	resp.Source = types.SourceNetwork
	return resp, nil
}

func (s *Service) fromLocal(ctx context.Context, req types.PageRequest) (*types.PaginatedResponse, error) {
	if s.local == nil {
		return nil, types.ErrLocalStoreUnavailable
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, err := s.local.Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrLocalStoreUnavailable, err)
	}
	if meta.LastSyncTime == nil {
		return nil, fmt.Errorf("%w: catalog never synced", types.ErrLocalStoreUnavailable)
	}

	products, total, err := s.local.Query(ctx, store.FilterFromRequest(req), req.SortBy, req.SortOrder, req.Limit, req.Offset())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrLocalStoreUnavailable, err)
	}

	resp := types.NewPaginatedResponse(products, total, req.Page, req.Limit)
	resp.Source = types.SourceLocal
	return resp, nil
}

func (s *Service) fromPageCache(ctx context.Context, key string) (*types.PaginatedResponse, error) {
	if s.cache == nil {
		return nil, types.ErrCatalogUnavailable
	}
	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrCatalogUnavailable, err)
	}

	resp := types.NewPaginatedResponse(cached.Products, cached.Total, cached.Page, cached.Limit)
	resp.Products = s.withLocalFlags(ctx, resp.Products)
	resp.Source = types.SourcePageCache
	return resp, nil
}

// withLocalFlags overlays the device's saved flags onto server products. A
// failed lookup leaves every product unsaved.
func (s *Service) withLocalFlags(ctx context.Context, products []types.Product) []types.Product {
	if len(products) == 0 {
		return products
	}
	var saved map[string]bool
	if s.local != nil {
		codes := make([]string, len(products))
		for i, p := range products {
			codes[i] = p.ItemCode
		}

		s.mu.RLock()
		flags, err := s.local.SavedFlags(ctx, codes...)
		s.mu.RUnlock()
		if err != nil {
			slog.Warn("saved flag lookup failed",
				"component", "catalog",
				"action", "flag_lookup_failed",
				"error", err,
			)
		}
		saved = flags
	}
	return mergeAll(products, saved)
}

// ToggleSaved flips the saved flag of a product held in the structured store
// and returns the new value.
func (s *Service) ToggleSaved(ctx context.Context, itemCode string) (bool, error) {
	if errs := validation.ValidateItemCode(itemCode); len(errs) > 0 {
		return false, fmt.Errorf("%w: %w", types.ErrInvalidRequest, validation.Errors(errs))
	}
	if s.local == nil {
		return false, types.ErrLocalStoreUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local.ToggleSaved(ctx, itemCode)
}

// SavedProducts returns every product the device has saved.
func (s *Service) SavedProducts(ctx context.Context) ([]types.Product, error) {
	if s.local == nil {
		return nil, types.ErrLocalStoreUnavailable
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.local.SavedProducts(ctx)
}

// LastSyncTime returns the completion time of the last successful sync, or
// nil if the device has never synced.
func (s *Service) LastSyncTime(ctx context.Context) (*time.Time, error) {
	meta, err := s.metadata(ctx)
	if err != nil {
		return nil, err
	}
	return meta.LastSyncTime, nil
}

// Metadata returns the metadata of the last successful sync.
func (s *Service) Metadata(ctx context.Context) (*types.ProductsMetadata, error) {
	return s.metadata(ctx)
}

// Categories returns the category names captured by the last sync. Before
// the first sync it asks the server instead when connected.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	meta, err := s.metadata(ctx)
	if err != nil {
		return nil, err
	}
	if meta.LastSyncTime != nil || s.remote == nil || !s.conn.Connected(ctx) {
		return meta.Categories, nil
	}

	remote, err := s.remote.FetchCategories(ctx)
	if err != nil {
		if types.IsAuthError(err) {
			return nil, err
		}
		slog.Warn("remote categories unavailable",
			"component", "catalog",
			"error", err,
		)
		return meta.Categories, nil
	}

	names := make([]string, 0, len(remote))
	for _, c := range remote {
		if c.Name != "" {
			names = append(names, c.Name)
		}
	}
	return names, nil
}

// Subcategories returns the subcategory names captured by the last sync.
func (s *Service) Subcategories(ctx context.Context) ([]string, error) {
	meta, err := s.metadata(ctx)
	if err != nil {
		return nil, err
	}
	return meta.Subcategories, nil
}

func (s *Service) metadata(ctx context.Context) (*types.ProductsMetadata, error) {
	if s.local == nil {
		return nil, types.ErrLocalStoreUnavailable
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, err := s.local.Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrLocalStoreUnavailable, err)
	}
	return meta, nil
}

// Online reports the current connectivity.
func (s *Service) Online(ctx context.Context) bool {
	return s.conn.Connected(ctx)
}

// errNoStore is returned by Sync when there is nowhere to write.
var errNoStore = errors.New("sync: no local store configured")
