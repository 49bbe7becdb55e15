// Package migrations holds the schema as golang-migrate up/down pairs
package migrations

import "embed"

// FS is the embedded copy of the *.sql files in this directory
//
//go:embed *.sql
var FS embed.FS
