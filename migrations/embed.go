// Package migrations embeds the storefront database schema migrations.
package migrations

import "embed"

//go:embed *.up.sql
var FS embed.FS
