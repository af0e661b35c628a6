// Package store implements the on-device persistence of the catalog: the
// structured product table with its metadata row, and the page cache.
package store

import "fmt"

// Stores bundles the two independently owned local databases.
type Stores struct {
	Products  *ProductStore
	PageCache *PageCache
}

// Open opens the catalog database and the page-cache database.
func Open(catalogPath, pageCachePath string) (*Stores, error) {
	products, err := NewProductStore(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog store: %w", err)
	}

	cache, err := NewPageCache(pageCachePath)
	if err != nil {
		products.Close()
		return nil, fmt.Errorf("open page cache: %w", err)
	}

	return &Stores{Products: products, PageCache: cache}, nil
}

// Close closes both databases.
func (s *Stores) Close() error {
	cacheErr := s.PageCache.Close()
	if err := s.Products.Close(); err != nil {
		return err
	}
	return cacheErr
}
