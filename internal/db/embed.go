// Package db holds the embedded schema migrations.
package db

import "embed"

// Migrations are applied by cmd/migrate with goose
//
//go:embed migrations/*.sql
var Migrations embed.FS
