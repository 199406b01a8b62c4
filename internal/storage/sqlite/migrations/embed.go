package migrations

import "embed"

// FS contains embedded SQLite migrations for timing storage.
//
//go:embed *.sql
var FS embed.FS
