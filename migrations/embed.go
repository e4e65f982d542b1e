// Package migrations embeds the SQL schema for the plant snapshot tables.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.RegisterMigrations(migrationsFS, ".")
}
