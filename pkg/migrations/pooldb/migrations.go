// Package pooldb holds all the migrations for the pool API database
package pooldb

import (
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations is the registry all pooldb migration files attach to.
var Migrations = migrate.NewMigrations()

// NewMigrator creates a migrator over the pooldb migration set.
func NewMigrator(db *bun.DB) *migrate.Migrator {
	return migrate.NewMigrator(db, Migrations)
}
