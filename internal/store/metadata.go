package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MohamedIjlal27/SFA-sub000/internal/types"
)

// Metadata returns the metadata of the last successful full sync. Before the
// first sync it returns an empty value with a nil LastSyncTime.
func (s *ProductStore) Metadata(ctx context.Context) (*types.ProductsMetadata, error) {
	var totalCount int
	var lastSync sql.NullString
	var categoriesJSON, subcategoriesJSON string

	err := s.db.QueryRowContext(ctx, `
		SELECT total_count, last_sync_time, categories, subcategories
		FROM catalog_metadata WHERE id = 1
	`).Scan(&totalCount, &lastSync, &categoriesJSON, &subcategoriesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return &types.ProductsMetadata{Categories: []string{}, Subcategories: []string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query metadata: %w", err)
	}

	meta := &types.ProductsMetadata{TotalCount: totalCount}
	if err := json.Unmarshal([]byte(categoriesJSON), &meta.Categories); err != nil {
		return nil, fmt.Errorf("parse categories JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(subcategoriesJSON), &meta.Subcategories); err != nil {
		return nil, fmt.Errorf("parse subcategories JSON: %w", err)
	}
	if lastSync.Valid {
		if t, err := time.Parse(time.RFC3339Nano, lastSync.String); err == nil {
			meta.LastSyncTime = &t
		}
	}
	return meta, nil
}

// writeMetadata replaces the singleton metadata row inside tx.
func writeMetadata(ctx context.Context, tx *sql.Tx, meta types.ProductsMetadata) error {
	categories := meta.Categories
	if categories == nil {
		categories = []string{}
	}
	subcategories := meta.Subcategories
	if subcategories == nil {
		subcategories = []string{}
	}

	categoriesJSON, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}
	subcategoriesJSON, err := json.Marshal(subcategories)
	if err != nil {
		return fmt.Errorf("marshal subcategories: %w", err)
	}

	var lastSync any
	if meta.LastSyncTime != nil {
		lastSync = meta.LastSyncTime.UTC().Format(time.RFC3339Nano)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO catalog_metadata (id, total_count, last_sync_time, categories, subcategories)
		VALUES (1, ?, ?, ?, ?)
	`, meta.TotalCount, lastSync, string(categoriesJSON), string(subcategoriesJSON))
	if err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// RecordSyncRun appends a finished sync run to the history table.
func (s *ProductStore) RecordSyncRun(ctx context.Context, run types.SyncResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, state, product_count, saved_kept, started_at, finished_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, string(run.State), run.ProductCount, run.SavedKept,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Error)
	if err != nil {
		return fmt.Errorf("record sync run: %w", err)
	}
	return nil
}

// SyncRuns returns the most recent sync runs, newest first.
func (s *ProductStore) SyncRuns(ctx context.Context, limit int) ([]types.SyncResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, state, product_count, saved_kept, started_at, finished_at, error
		FROM sync_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync runs: %w", err)
	}
	defer rows.Close()

	runs := []types.SyncResult{}
	for rows.Next() {
		var run types.SyncResult
		var state, startedAt, finishedAt string
		if err := rows.Scan(&run.ID, &state, &run.ProductCount, &run.SavedKept, &startedAt, &finishedAt, &run.Error); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		run.State = types.SyncState(state)
		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			run.StartedAt = t
		}
		if t, err := time.Parse(time.RFC3339Nano, finishedAt); err == nil {
			run.FinishedAt = t
		}
		run.Duration = run.FinishedAt.Sub(run.StartedAt)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return runs, nil
}
