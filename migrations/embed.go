// Package migrations embeds the audit database schema into the binary.
//
// Files follow YYYYMMDD_HHMMSS_name.up.sql / .down.sql and sit at the
// root of FS, which is what database.DB.Migrate expects.
package migrations

import "embed"

// FS holds every migration file in this directory.
//
//go:embed *.sql
var FS embed.FS
