// Package services contains server-side business logic. AccountService
// validates and stores accounts through the repository manager.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/server/models"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager) *AccountService {
	return &AccountService{db: db, repomanager: m, now: time.Now}
}

// FindByID returns the account with the given id or common.ErrorNotFound.
func (s *AccountService) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	a, err := s.repomanager.Accounts(s.db).FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error searching account %s: %w", id, err)
	}
	return a, nil
}

// Create stores a new account. A nil id is replaced with a random one and a
// zero CreatedAt with the current time.
func (s *AccountService) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: empty account", common.ErrorValidation)
	}

	a.UserName = strings.TrimSpace(a.UserName)
	a.Email = strings.TrimSpace(a.Email)
	if a.UserName == "" {
		return nil, fmt.Errorf("%w: userName is required", common.ErrorValidation)
	}
	if a.Email == "" {
		return nil, fmt.Errorf("%w: email is required", common.ErrorValidation)
	}
	if !strings.Contains(a.Email, "@") {
		return nil, fmt.Errorf("%w: email %q is malformed", common.ErrorValidation, a.Email)
	}

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}

	created, err := s.repomanager.Accounts(s.db).Create(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("error creating account: %w", err)
	}
	return created, nil
}
