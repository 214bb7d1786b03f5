// Package migrations embeds the warehouse DDL.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
