// Package dbmigrations exposes the SQL migrations of the ingestion database.
package dbmigrations

import "embed"

// Files contains the embedded SQL migrations bundled into the binaries.
//
//go:embed *.sql
var Files embed.FS
