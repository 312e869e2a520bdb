package sqlstore

import "embed"

// Migrations embeds the goose migration files so gappsd-migrate ships as
// a single static binary with no runtime dependency on the source tree.
//
//go:embed migrations/*.sql
var Migrations embed.FS
