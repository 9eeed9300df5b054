// Package migrations embeds the SQL migration scripts. Scripts are grouped
// by location: "migration" holds the schema, "testing" holds seed data that
// only test databases load.
package migrations

import (
	"embed"
)

// Location names.
const (
	LocationSchema  = "migration"
	LocationTesting = "testing"
)

//go:embed migration/*.sql testing/*.sql
var FS embed.FS
