package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MohamedIjlal27/SFA-sub000/internal/types"
	"github.com/MohamedIjlal27/SFA-sub000/internal/validation"
	"github.com/go-chi/chi/v5"
)

// sourceHeader tells the UI which tier answered a product page.
const sourceHeader = "X-Catalog-Source"

// Catalog is the orchestrator surface the API serves.
type Catalog interface {
	GetPage(ctx context.Context, req types.PageRequest) (*types.PaginatedResponse, error)
	Sync(ctx context.Context) (*types.SyncResult, error)
	ToggleSaved(ctx context.Context, itemCode string) (bool, error)
	SavedProducts(ctx context.Context) ([]types.Product, error)
	Categories(ctx context.Context) ([]string, error)
	Subcategories(ctx context.Context) ([]string, error)
	Metadata(ctx context.Context) (*types.ProductsMetadata, error)
	SyncHistory(ctx context.Context, limit int) ([]types.SyncResult, error)
	State() types.SyncState
	LastResult() *types.SyncResult
	Online(ctx context.Context) bool
}

// Handler implements the API handlers
type Handler struct {
	catalog         Catalog
	apiKey          string
	version         string
	defaultPageSize int
}

// NewHandler creates a new Handler. An empty apiKey disables authentication.
func NewHandler(c Catalog, apiKey, version string, defaultPageSize int) *Handler {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	return &Handler{
		catalog:         c,
		apiKey:          apiKey,
		version:         version,
		defaultPageSize: defaultPageSize,
	}
}

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status       string          `json:"status"`
	Version      string          `json:"version"`
	Online       bool            `json:"online"`
	SyncState    types.SyncState `json:"syncState"`
	LastSyncTime *time.Time      `json:"lastSyncTime,omitempty"`
	ProductCount int             `json:"productCount"`
}

// SyncStatusResponse is returned by GET /api/v1/sync/status.
type SyncStatusResponse struct {
	State        types.SyncState    `json:"state"`
	LastSyncTime *time.Time         `json:"lastSyncTime,omitempty"`
	TotalCount   int                `json:"totalCount"`
	LastResult   *types.SyncResult  `json:"lastResult,omitempty"`
	History      []types.SyncResult `json:"history"`
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Online:    h.catalog.Online(r.Context()),
		SyncState: h.catalog.State(),
	}

	meta, err := h.catalog.Metadata(r.Context())
	if err != nil {
		slog.Warn("health: metadata unavailable", "component", "api", "error", err)
		resp.Status = "degraded"
	} else {
		resp.LastSyncTime = meta.LastSyncTime
		resp.ProductCount = meta.TotalCount
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListProducts handles GET /api/v1/products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	req, errs := h.parsePageRequest(r)
	if len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	resp, err := h.catalog.GetPage(r.Context(), req)
	if err != nil {
		MapCatalogError(w, r, err)
		return
	}

	w.Header().Set(sourceHeader, string(resp.Source))
	writeJSON(w, http.StatusOK, resp)
}

// parsePageRequest reads a page request from the query string. Integer
// parse failures are reported here; everything else is validated by the
// catalog service.
func (h *Handler) parsePageRequest(r *http.Request) (types.PageRequest, []validation.ValidationError) {
	q := r.URL.Query()
	c := &validation.Collector{}

	req := types.PageRequest{
		Page:          1,
		Limit:         h.defaultPageSize,
		SearchQuery:   q.Get("search"),
		Category:      q.Get("category"),
		ActiveFilters: types.ParseFilterSet(q.Get("filters")),
		SortBy:        q.Get("sortBy"),
		SortOrder:     q.Get("sortOrder"),
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.Add(&validation.ValidationError{Field: "page", Message: "must be an integer"})
		}
		req.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.Add(&validation.ValidationError{Field: "limit", Message: "must be an integer"})
		}
		req.Limit = n
	}
	for _, v := range q["subcategory"] {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				req.Subcategories = append(req.Subcategories, s)
			}
		}
	}

	return req, c.Errors()
}

// SavedProducts handles GET /api/v1/products/saved
func (h *Handler) SavedProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.SavedProducts(r.Context())
	if err != nil {
		MapCatalogError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

// ToggleSaved handles POST /api/v1/products/{itemCode}/saved
func (h *Handler) ToggleSaved(w http.ResponseWriter, r *http.Request) {
	itemCode := chi.URLParam(r, "itemCode")

	saved, err := h.catalog.ToggleSaved(r.Context(), itemCode)
	if err != nil {
		MapCatalogError(w, r, err)
		return
	}

	slog.Info("saved flag toggled",
		"component", "api",
		"item_code", itemCode,
		"is_saved", saved,
	)
	writeJSON(w, http.StatusOK, map[string]any{"itemCode": itemCode, "isSaved": saved})
}

// Categories handles GET /api/v1/categories
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		MapCatalogError(w, r, err)
		return
	}
	subcategories, err := h.catalog.Subcategories(r.Context())
	if err != nil {
		MapCatalogError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categories":    categories,
		"subcategories": subcategories,
	})
}

// TriggerSync handles POST /api/v1/sync. It blocks until the run finishes.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.catalog.Sync(r.Context())
	if err != nil {
		MapCatalogError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SyncStatus handles GET /api/v1/sync/status
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("history"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 100 {
			WriteProblemWithErrors(w, r, "Request contains invalid fields", []validation.ValidationError{
				{Field: "history", Message: "must be an integer between 0 and 100"},
			})
			return
		}
		limit = n
	}

	meta, err := h.catalog.Metadata(r.Context())
	if err != nil {
		MapCatalogError(w, r, err)
		return
	}

	history := []types.SyncResult{}
	if limit > 0 {
		history, err = h.catalog.SyncHistory(r.Context(), limit)
		if err != nil {
			MapCatalogError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, SyncStatusResponse{
		State:        h.catalog.State(),
		LastSyncTime: meta.LastSyncTime,
		TotalCount:   meta.TotalCount,
		LastResult:   h.catalog.LastResult(),
		History:      history,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "component", "api", "error", err)
	}
}
