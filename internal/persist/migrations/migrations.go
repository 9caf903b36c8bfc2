// Package migrations embeds the goose SQL migration files for the
// persist package.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
