package models

import "time"

// HistoryEntry is one row of the schema history table: a migration script
// applied by the migration runner together with the checksum it had when
// applied.
type HistoryEntry struct {
	InstalledRank int64
	Version       int64
	Description   string
	Script        string
	Checksum      int32
	InstalledOn   time.Time
	ExecutionTime time.Duration
	Success       bool
}
