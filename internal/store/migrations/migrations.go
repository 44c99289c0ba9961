package migrations

import "embed"

// FS holds the SQL migrations applied to receipts.db.
//
//go:embed *.sql
var FS embed.FS
