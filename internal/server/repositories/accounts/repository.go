package accounts

import (
	"context"

	"github.com/dmitrijs2005/accounts/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}
