// Package migrations embeds the versioned schema, one goose directory per
// SQL dialect.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS

// Dir returns the migration set for a dialect directory name
// ("postgres" or "sqlite").
func Dir(name string) (fs.FS, error) {
	return fs.Sub(Migrations, name)
}
