package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a single catalog row. ItemCode is the identity key in every store.
// IsSaved is owned by the device; every other field is owned by the server.
type Product struct {
	ItemCode           string          `json:"itemCode"`
	Description        string          `json:"description"`
	Category           string          `json:"category"`
	SubCategory        string          `json:"subCategory"`
	CategoryCode       string          `json:"categoryCode"`
	UOMCode            string          `json:"uomCode"`
	Price              decimal.Decimal `json:"price"`
	Quantity           int             `json:"quantity"`
	Images             string          `json:"images,omitempty"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	IsSaved            bool            `json:"isSaved"`
	IsSold             bool            `json:"isSold"`
	IsNewShipment      bool            `json:"isNewShipment"`
}

// ImageURLs splits the comma-separated Images field, dropping blanks.
func (p Product) ImageURLs() []string {
	if p.Images == "" {
		return nil
	}
	var urls []string
	for _, u := range strings.Split(p.Images, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// DataSource identifies which tier produced a page.
type DataSource string

const (
	SourceNetwork   DataSource = "network"
	SourceLocal     DataSource = "local"
	SourcePageCache DataSource = "page_cache"
)

// Stale reports whether the page came from a fallback tier.
func (s DataSource) Stale() bool {
	return s == SourceLocal || s == SourcePageCache
}

// PaginatedResponse is one page of products plus pagination state.
type PaginatedResponse struct {
	Products   []Product  `json:"products"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"totalPages"`
	HasNext    bool       `json:"hasNext"`
	HasPrev    bool       `json:"hasPrev"`
	Source     DataSource `json:"source,omitempty"`
}

// NewPaginatedResponse derives TotalPages, HasNext and HasPrev from total,
// page and limit so the pagination invariants hold regardless of the caller.
func NewPaginatedResponse(products []Product, total, page, limit int) *PaginatedResponse {
	if products == nil {
		products = []Product{}
	}
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return &PaginatedResponse{
		Products:   products,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// ProductsMetadata describes the last successful full sync.
type ProductsMetadata struct {
	TotalCount    int        `json:"totalCount"`
	LastSyncTime  *time.Time `json:"lastSyncTime,omitempty"`
	Categories    []string   `json:"categories"`
	Subcategories []string   `json:"subcategories"`
}

// Category is an entry of the remote category vocabulary.
type Category struct {
	Name          string   `json:"name"`
	Code          string   `json:"code,omitempty"`
	Subcategories []string `json:"subcategories,omitempty"`
}

// LocalFlags holds the device-owned state of a product.
type LocalFlags struct {
	IsSaved bool
}

// SyncState is the lifecycle state of a full sync.
type SyncState string

const (
	SyncIdle      SyncState = "idle"
	SyncSyncing   SyncState = "syncing"
	SyncSucceeded SyncState = "succeeded"
	SyncFailed    SyncState = "failed"
)

// SyncResult summarises one full-sync run.
type SyncResult struct {
	ID           string        `json:"id"`
	State        SyncState     `json:"state"`
	ProductCount int           `json:"productCount"`
	SavedKept    int           `json:"savedKept"`
	StartedAt    time.Time     `json:"startedAt"`
	FinishedAt   time.Time     `json:"finishedAt"`
	Duration     time.Duration `json:"duration"`
	Error        string        `json:"error,omitempty"`
}
