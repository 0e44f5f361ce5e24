// Package migrations compiles the schema scripts into the binary so a
// deployment is a single executable; the database package discovers
// them through the registration below.
package migrations

import (
	"embed"

	"github.com/nerrad567/voicebridge/internal/infrastructure/database"
)

//go:embed *.sql
var schemaFS embed.FS

func init() {
	database.MigrationsFS = schemaFS
	// Scripts sit beside this file, so the search root is the FS root.
	database.MigrationsDir = "."
}
