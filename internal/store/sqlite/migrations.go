package sqlite

import "embed"

// Migrations holds the goose SQL migrations applied by Open.
//
//go:embed migrations/*.sql
var Migrations embed.FS
