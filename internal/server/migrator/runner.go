// Package migrator applies the embedded SQL migrations with goose, records
// every applied script and its checksum in the schema history, and verifies
// that the recorded checksums still match the scripts.
package migrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/accounts/internal/checksum"
	"github.com/dmitrijs2005/accounts/internal/dbx"
	"github.com/dmitrijs2005/accounts/internal/logging"
	"github.com/dmitrijs2005/accounts/internal/server/models"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/history"
	"github.com/pressly/goose/v3"
)

type upper interface {
	Up(ctx context.Context) ([]*goose.MigrationResult, error)
}

// newProvider is a seam for testing goose.NewProvider.
var newProvider = func(db *sql.DB, fsys fs.FS) (upper, error) {
	return goose.NewProvider(goose.DialectPostgres, db, fsys)
}

// HistoryFactory binds a history repository to a DB handle.
type HistoryFactory func(db dbx.DBTX) history.Repository

// Runner applies pending migrations from a flat directory of goose SQL files.
type Runner struct {
	db      *sql.DB
	fsys    fs.FS
	history HistoryFactory
	logger  logging.Logger
}

func NewRunner(db *sql.DB, fsys fs.FS, h HistoryFactory, l logging.Logger) *Runner {
	return &Runner{db: db, fsys: fsys, history: h, logger: l.With("module", "migrator")}
}

// Up applies every pending migration and returns the history entries it
// recorded. A failing migration is recorded with Success=false and its error
// is returned after the history has been written.
func (r *Runner) Up(ctx context.Context) ([]models.HistoryEntry, error) {
	if err := r.history(r.db).EnsureTable(ctx); err != nil {
		return nil, fmt.Errorf("schema history: %w", err)
	}

	p, err := newProvider(r.db, r.fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}

	applied, upErr := p.Up(ctx)

	var failed *goose.MigrationResult
	if upErr != nil {
		var partial *goose.PartialError
		if !errors.As(upErr, &partial) {
			return nil, fmt.Errorf("migration error: %w", upErr)
		}
		applied, failed = partial.Applied, partial.Failed
	}

	entries := make([]models.HistoryEntry, 0, len(applied)+1)
	for _, res := range applied {
		e, err := r.entry(res, true)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if failed != nil {
		e, err := r.entry(failed, false)
		if err != nil {
			return nil, errors.Join(upErr, err)
		}
		entries = append(entries, e)
	}

	if len(entries) > 0 {
		err = dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			repo := r.history(tx)
			for i := range entries {
				if err := repo.Record(ctx, &entries[i]); err != nil {
					return fmt.Errorf("error recording %s: %w", entries[i].Script, err)
				}
			}
			return nil
		})
		if err != nil {
			return nil, errors.Join(upErr, err)
		}
	}

	for _, e := range entries {
		if e.Success {
			r.logger.Info(ctx, "Migration applied", "script", e.Script, "checksum", e.Checksum, "duration", e.ExecutionTime)
		} else {
			r.logger.Error(ctx, "Migration failed", "script", e.Script, "checksum", e.Checksum)
		}
	}

	if upErr != nil {
		return entries, fmt.Errorf("migration error: %w", upErr)
	}
	return entries, nil
}

func (r *Runner) entry(res *goose.MigrationResult, success bool) (models.HistoryEntry, error) {
	if res == nil || res.Source == nil {
		return models.HistoryEntry{}, errors.New("migration result without source")
	}

	sum, err := checksum.ComputeFile(r.fsys, res.Source.Path)
	if err != nil {
		return models.HistoryEntry{}, err
	}

	script := path.Base(res.Source.Path)
	return models.HistoryEntry{
		Version:       res.Source.Version,
		Description:   Description(script),
		Script:        script,
		Checksum:      sum,
		ExecutionTime: res.Duration,
		Success:       success,
	}, nil
}

// Description derives a human readable description from a goose file name:
// "00001_create_accounts.sql" becomes "create accounts".
func Description(script string) string {
	name := strings.TrimSuffix(script, path.Ext(script))
	if i := strings.IndexByte(name, '_'); i > 0 {
		if _, err := strconv.ParseInt(name[:i], 10, 64); err == nil {
			name = name[i+1:]
		}
	}
	return strings.ReplaceAll(name, "_", " ")
}
