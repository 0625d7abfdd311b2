// Package migrations embeds the rules database schema.
package migrations

import "embed"

// FS holds every *.sql file of this directory. Files are idempotent and run in name order.
//
//go:embed *.sql
var FS embed.FS
