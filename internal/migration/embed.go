package migration

import "embed"

// Billing schema migrations, applied in lexical order at startup.
//
//go:embed migrations/*.up.sql
var migrationFS embed.FS

const migrationsDir = "migrations"
