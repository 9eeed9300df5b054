// Package accounts stores accounts in PostgreSQL.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/dbx"
	"github.com/dmitrijs2005/accounts/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the account. A duplicate id, user name or email yields
// common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {

	query :=
		`INSERT INTO accounts (id, user_name, email, active, created_at, last_access_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.ID, account.UserName, account.Email, account.Active, account.CreatedAt, account.LastAccessAt).
		Scan(&account.CreatedAt)

	if err != nil {
		if constraint, ok := dbx.UniqueViolation(err); ok {
			return nil, fmt.Errorf("%w: %s", common.ErrorAlreadyExists, constraint)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query :=
		`SELECT id, user_name, email, active, created_at, last_access_at FROM accounts
		 WHERE id = $1
		 `

	account := &models.Account{}
	var lastAccess sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&account.ID, &account.UserName, &account.Email, &account.Active, &account.CreatedAt, &lastAccess)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if lastAccess.Valid {
		t := lastAccess.Time
		account.LastAccessAt = &t
	}

	return account, nil
}
