package accounts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/accounts/internal/common"
	"github.com/dmitrijs2005/accounts/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	insertQuery = `(?s)^INSERT\s+INTO\s+accounts\s*\(id,\s*user_name,\s*email,\s*active,\s*created_at,\s*last_access_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*RETURNING\s+created_at\s*$`
	selectQuery = `(?s)^SELECT\s+id,\s*user_name,\s*email,\s*active,\s*created_at,\s*last_access_at\s+FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1\s*$`
)

var accountID = uuid.MustParse("d0edfcf9-1afd-4fe0-8846-ee0b0fe82dd5")

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func newAccount() *models.Account {
	lastAccess := time.Date(2023, 2, 4, 5, 0, 0, 0, time.UTC)
	return &models.Account{
		ID:           accountID,
		UserName:     "enorthcott8",
		Email:        "jhavile8@amazon.com",
		Active:       false,
		CreatedAt:    time.Date(2022, 8, 25, 4, 0, 0, 0, time.UTC),
		LastAccessAt: &lastAccess,
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	a := newAccount()
	stored := a.CreatedAt.Add(time.Millisecond)

	mock.ExpectQuery(insertQuery).
		WithArgs(a.ID, a.UserName, a.Email, a.Active, a.CreatedAt, a.LastAccessAt).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(stored))

	got, err := repo.Create(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, accountID, got.ID)
	assert.Equal(t, stored, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQuery).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"})

	_, err := repo.Create(context.Background(), newAccount())
	require.ErrorIs(t, err, common.ErrorAlreadyExists)
	assert.Contains(t, err.Error(), "accounts_email_key")
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQuery).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), newAccount())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
	assert.NotErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestFindByID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	want := newAccount()
	rows := sqlmock.NewRows([]string{"id", "user_name", "email", "active", "created_at", "last_access_at"}).
		AddRow(accountID.String(), want.UserName, want.Email, want.Active, want.CreatedAt, *want.LastAccessAt)
	mock.ExpectQuery(selectQuery).
		WithArgs(accountID).
		WillReturnRows(rows)

	got, err := repo.FindByID(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFindByID_NullLastAccess(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2022, 5, 2, 16, 45, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_name", "email", "active", "created_at", "last_access_at"}).
		AddRow(accountID.String(), "lwarman1", "gpoley1@example.com", true, created, nil)
	mock.ExpectQuery(selectQuery).
		WithArgs(accountID).
		WillReturnRows(rows)

	got, err := repo.FindByID(context.Background(), accountID)
	require.NoError(t, err)
	assert.Nil(t, got.LastAccessAt)
	assert.True(t, got.Active)
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectQuery).
		WithArgs(accountID).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), accountID)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestFindByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectQuery).
		WithArgs(accountID).
		WillReturnError(errors.New("db err"))

	_, err := repo.FindByID(context.Background(), accountID)
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
