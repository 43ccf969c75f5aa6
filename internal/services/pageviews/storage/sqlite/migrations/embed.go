package migrations

import "embed"

// FS contains embedded SQLite migrations for page view storage.
//
//go:embed *.sql
var FS embed.FS
