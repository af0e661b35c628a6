// Package migrations embeds the goose SQL migrations for the catalog and
// page-cache databases.
package migrations

import "embed"

// FS holds one directory of migrations per database.
//
//go:embed catalog/*.sql pagecache/*.sql
var FS embed.FS

const (
	CatalogDir   = "catalog"
	PageCacheDir = "pagecache"
)
