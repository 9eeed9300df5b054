// Package history persists the schema history: one row per applied
// migration script with the checksum the script had when it was applied.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/dbx"
	"github.com/dmitrijs2005/accounts/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) EnsureTable(ctx context.Context) error {
	query :=
		`CREATE TABLE IF NOT EXISTS schema_history (
			installed_rank BIGSERIAL PRIMARY KEY,
			version        BIGINT NOT NULL,
			description    VARCHAR(200) NOT NULL,
			script         VARCHAR(1000) NOT NULL UNIQUE,
			checksum       INTEGER NOT NULL,
			installed_on   TIMESTAMPTZ NOT NULL DEFAULT now(),
			execution_time INTEGER NOT NULL,
			success        BOOLEAN NOT NULL
		)`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Record stores entry, replacing an earlier row for the same script (a
// failed attempt that has since been fixed and re-applied).
func (r *PostgresRepository) Record(ctx context.Context, entry *models.HistoryEntry) error {
	query :=
		`INSERT INTO schema_history (version, description, script, checksum, execution_time, success)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (script) DO UPDATE SET
		   version = EXCLUDED.version,
		   description = EXCLUDED.description,
		   checksum = EXCLUDED.checksum,
		   installed_on = now(),
		   execution_time = EXCLUDED.execution_time,
		   success = EXCLUDED.success
		 `

	_, err := r.db.ExecContext(ctx, query,
		entry.Version, entry.Description, entry.Script, entry.Checksum, entry.ExecutionTime.Milliseconds(), entry.Success)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindChecksum(ctx context.Context, script string) (int32, error) {
	query :=
		`SELECT checksum FROM schema_history
		 WHERE script = $1
		 `

	var checksum int32
	err := r.db.QueryRowContext(ctx, query, script).Scan(&checksum)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}

	return checksum, nil
}

func (r *PostgresRepository) CountSuccessful(ctx context.Context) (int, error) {
	query := `SELECT count(*) FROM schema_history WHERE success = true`

	var n int
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.HistoryEntry, error) {
	query :=
		`SELECT installed_rank, version, description, script, checksum, installed_on, execution_time, success
		 FROM schema_history
		 ORDER BY installed_rank
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		var execMillis int64
		if err := rows.Scan(&e.InstalledRank, &e.Version, &e.Description, &e.Script, &e.Checksum, &e.InstalledOn, &execMillis, &e.Success); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		e.ExecutionTime = time.Duration(execMillis) * time.Millisecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entries, nil
}
