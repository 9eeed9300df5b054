// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/dmitrijs2005/accounts/internal/dbx"
	"github.com/dmitrijs2005/accounts/internal/logging"
	"github.com/dmitrijs2005/accounts/internal/server/migrations"
	"github.com/dmitrijs2005/accounts/internal/server/migrator"
	"github.com/dmitrijs2005/accounts/internal/server/models"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/history"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct {
	logger logging.Logger
}

// Accounts returns an accounts.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewPostgresRepository(db)
}

// History returns a history.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) History(db dbx.DBTX) history.Repository {
	return history.NewPostgresRepository(db)
}

// runUp is a seam for testing migrator.Runner.Up.
var runUp = func(ctx context.Context, r *migrator.Runner) ([]models.HistoryEntry, error) {
	return r.Up(ctx)
}

// RunMigrations applies the embedded migrations found in the given locations
// (migrations.LocationSchema when none are given) and records them in the
// schema history.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB, locations ...string) ([]models.HistoryEntry, error) {
	if len(locations) == 0 {
		locations = []string{migrations.LocationSchema}
	}
	fsys, err := migrations.Locations(migrations.FS, locations...)
	if err != nil {
		return nil, fmt.Errorf("migration locations: %w", err)
	}
	return runUp(ctx, m.runner(db, fsys))
}

func (m *PostgresRepositoryManager) runner(db *sql.DB, fsys fs.FS) *migrator.Runner {
	return migrator.NewRunner(db, fsys, func(db dbx.DBTX) history.Repository { return m.History(db) }, m.logger)
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager(l logging.Logger) (RepositoryManager, error) {
	if l == nil {
		l = logging.Nop()
	}
	return &PostgresRepositoryManager{logger: l}, nil
}
