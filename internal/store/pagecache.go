package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MohamedIjlal27/SFA-sub000/internal/types"
	"github.com/MohamedIjlal27/SFA-sub000/migrations"
)

// PageCache maps cache keys to previously fetched pages. It lives in its own
// database file and has no expiry; entries are overwritten, never aged out.
type PageCache struct {
	db  *sql.DB
	now func() time.Time
}

// NewPageCache opens (and migrates) the page-cache database at dbPath.
func NewPageCache(dbPath string) (*PageCache, error) {
	db, err := openSQLite(dbPath, migrations.PageCacheDir)
	if err != nil {
		return nil, err
	}
	return &PageCache{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (c *PageCache) Close() error {
	return c.db.Close()
}

// Put stores resp under key, replacing any previous entry.
func (c *PageCache) Put(ctx context.Context, key string, resp *types.PaginatedResponse) error {
	stored := *resp
	stored.Source = ""
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal page: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO page_cache (cache_key, response, cached_at)
		VALUES (?, ?, ?)
	`, key, string(data), c.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put page %s: %w", key, err)
	}
	return nil
}

// Get returns the page stored under key, or types.ErrCacheMiss.
func (c *PageCache) Get(ctx context.Context, key string) (*types.PaginatedResponse, error) {
	var data string
	err := c.db.QueryRowContext(ctx, "SELECT response FROM page_cache WHERE cache_key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get page %s: %w", key, err)
	}

	var resp types.PaginatedResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		return nil, fmt.Errorf("parse page %s: %w", key, err)
	}
	return &resp, nil
}

// Count returns the number of cached pages.
func (c *PageCache) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM page_cache").Scan(&n)
	return n, err
}

// Purge removes every cached page and returns how many were dropped.
func (c *PageCache) Purge(ctx context.Context) (int64, error) {
	result, err := c.db.ExecContext(ctx, "DELETE FROM page_cache")
	if err != nil {
		return 0, fmt.Errorf("purge page cache: %w", err)
	}
	return result.RowsAffected()
}
