package catalog

import (
	"slices"
	"time"

	"github.com/MohamedIjlal27/SFA-sub000/internal/types"
)

// MergeFlags combines a server product with the device's prior flags. Every
// server-owned field comes from server; IsSaved comes from prior, or false
// when the product has no local history. Merging is idempotent.
func MergeFlags(server types.Product, prior *types.LocalFlags) types.Product {
	merged := server
	merged.IsSaved = prior != nil && prior.IsSaved
	return merged
}

// mergeAll applies MergeFlags to every product using a saved-flag lookup.
func mergeAll(products []types.Product, saved map[string]bool) []types.Product {
	out := make([]types.Product, len(products))
	for i, p := range products {
		var prior *types.LocalFlags
		if saved[p.ItemCode] {
			prior = &types.LocalFlags{IsSaved: true}
		}
		out[i] = MergeFlags(p, prior)
	}
	return out
}

// buildMetadata derives the metadata written alongside a full replace.
func buildMetadata(products []types.Product, totalCount int, syncedAt time.Time) types.ProductsMetadata {
	categories := make([]string, 0)
	subcategories := make([]string, 0)
	for _, p := range products {
		if p.Category != "" {
			categories = append(categories, p.Category)
		}
		if p.SubCategory != "" {
			subcategories = append(subcategories, p.SubCategory)
		}
	}
	slices.Sort(categories)
	slices.Sort(subcategories)

	return types.ProductsMetadata{
		TotalCount:    totalCount,
		LastSyncTime:  &syncedAt,
		Categories:    slices.Compact(categories),
		Subcategories: slices.Compact(subcategories),
	}
}
