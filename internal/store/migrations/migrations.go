// Package migrations embeds the schema migrations of the checkout service.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
