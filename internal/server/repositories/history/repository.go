package history

import (
	"context"

	"github.com/dmitrijs2005/accounts/internal/server/models"
)

// Repository reads and writes the schema history table.
type Repository interface {
	EnsureTable(ctx context.Context) error
	Record(ctx context.Context, entry *models.HistoryEntry) error
	FindChecksum(ctx context.Context, script string) (int32, error)
	CountSuccessful(ctx context.Context) (int, error)
	List(ctx context.Context) ([]models.HistoryEntry, error)
}
