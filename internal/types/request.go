package types

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Filter is a named catalog predicate the UI can toggle on.
type Filter string

const (
	FilterSaved       Filter = "saved"
	FilterSold        Filter = "sold"
	FilterNewShipment Filter = "newShipment"
	FilterInStock     Filter = "inStock"
	FilterDiscounted  Filter = "discounted"
)

var knownFilters = map[Filter]bool{
	FilterSaved:       true,
	FilterSold:        true,
	FilterNewShipment: true,
	FilterInStock:     true,
	FilterDiscounted:  true,
}

// Valid reports whether f is one of the known filters.
func (f Filter) Valid() bool {
	return knownFilters[f]
}

// FilterSet is an unordered collection of active filters.
type FilterSet []Filter

// Canonical returns the de-duplicated filters in sorted order.
func (fs FilterSet) Canonical() []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, string(f))
	}
	return canonical(out)
}

// Has reports whether f is in the set.
func (fs FilterSet) Has(f Filter) bool {
	return slices.Contains(fs, f)
}

// Without returns a copy of the set with f removed.
func (fs FilterSet) Without(f Filter) FilterSet {
	out := make(FilterSet, 0, len(fs))
	for _, x := range fs {
		if x != f {
			out = append(out, x)
		}
	}
	return out
}

// ParseFilterSet splits a comma-separated list of filter names.
func ParseFilterSet(s string) FilterSet {
	var fs FilterSet
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			fs = append(fs, Filter(part))
		}
	}
	return fs
}

// Sortable columns.
const (
	SortItemCode    = "itemCode"
	SortDescription = "description"
	SortPrice       = "price"
	SortQuantity    = "quantity"
	SortCategory    = "category"
)

const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// PageRequest is a single page-fetch request from the UI.
type PageRequest struct {
	Page          int       `json:"page" validate:"min=1"`
	Limit         int       `json:"limit" validate:"min=1,max=500"`
	SearchQuery   string    `json:"search,omitempty" validate:"max=200"`
	ActiveFilters FilterSet `json:"filters,omitempty" validate:"dive,catalog_filter"`
	Subcategories []string  `json:"subcategories,omitempty" validate:"dive,required"`
	Category      string    `json:"category,omitempty"`
	SortBy        string    `json:"sortBy,omitempty" validate:"omitempty,oneof=itemCode description price quantity category"`
	SortOrder     string    `json:"sortOrder,omitempty" validate:"omitempty,oneof=asc desc"`
}

// Normalized fills in the default sort and trims the search query.
func (r PageRequest) Normalized() PageRequest {
	r.SearchQuery = strings.TrimSpace(r.SearchQuery)
	r.Category = strings.TrimSpace(r.Category)
	if r.SortBy == "" {
		r.SortBy = SortItemCode
	}
	if r.SortOrder == "" {
		r.SortOrder = SortAsc
	}
	return r
}

// Offset is the row offset of the requested page. It saturates at
// math.MaxInt instead of overflowing.
func (r PageRequest) Offset() int {
	if r.Page < 1 || r.Limit < 1 {
		return 0
	}
	if r.Page-1 > math.MaxInt/r.Limit {
		return math.MaxInt
	}
	return (r.Page - 1) * r.Limit
}

// CanonicalSubcategories returns the de-duplicated subcategories in sorted order.
func (r PageRequest) CanonicalSubcategories() []string {
	return canonical(r.Subcategories)
}

// CacheKey fingerprints a request. Filter and subcategory order does not
// affect the key.
func CacheKey(r PageRequest) string {
	r = r.Normalized()
	var b strings.Builder
	b.WriteString("page=")
	b.WriteString(strconv.Itoa(r.Page))
	b.WriteString("|limit=")
	b.WriteString(strconv.Itoa(r.Limit))
	b.WriteString("|search=")
	b.WriteString(strings.ToLower(r.SearchQuery))
	b.WriteString("|filters=")
	b.WriteString(strings.Join(r.ActiveFilters.Canonical(), ","))
	b.WriteString("|subcategories=")
	b.WriteString(strings.Join(r.CanonicalSubcategories(), ","))
	b.WriteString("|category=")
	b.WriteString(r.Category)
	b.WriteString("|sort=")
	b.WriteString(r.SortBy)
	b.WriteString(":")
	b.WriteString(r.SortOrder)

	sum := sha256.Sum256([]byte(b.String()))
	return "page:v1:" + hex.EncodeToString(sum[:])
}

func canonical(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
