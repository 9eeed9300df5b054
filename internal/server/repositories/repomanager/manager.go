package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/accounts/internal/dbx"
	"github.com/dmitrijs2005/accounts/internal/server/models"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/history"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB, locations ...string) ([]models.HistoryEntry, error)
	Accounts(db dbx.DBTX) accounts.Repository
	History(db dbx.DBTX) history.Repository
}
