// Package testdb starts a disposable PostgreSQL server for integration tests.
// A test binary acquires one Handle in TestMain and terminates it when the
// tests are done; the testcontainers reaper removes the container if the
// process dies first.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/accounts/internal/dbx"
	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const (
	Image    = "postgres:16-alpine"
	Database = "accounts"
	User     = "postgres"
	Password = "postgres"

	openTimeout = 10 * time.Second
)

type Handle struct {
	container *postgres.PostgresContainer
	dsn       string
}

// Start runs a fresh container and waits until it accepts connections.
func Start(ctx context.Context) (*Handle, error) {
	ctr, err := postgres.Run(ctx, Image,
		postgres.WithDatabase(Database),
		postgres.WithUsername(User),
		postgres.WithPassword(Password),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		if ctr != nil {
			_ = testcontainers.TerminateContainer(ctr)
		}
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = testcontainers.TerminateContainer(ctr)
		return nil, fmt.Errorf("postgres connection string: %w", err)
	}

	return &Handle{container: ctr, dsn: dsn}, nil
}

func (h *Handle) DSN() string { return h.dsn }

// Open returns a new pool connected to the container database.
func (h *Handle) Open(ctx context.Context) (*sql.DB, error) {
	return dbx.Open(ctx, h.dsn, openTimeout)
}

// CreateDatabase creates an empty database next to the default one and
// returns a pool connected to it. Tests that need a clean schema use it
// instead of starting another container.
func (h *Handle) CreateDatabase(ctx context.Context, name string) (*sql.DB, error) {
	admin, err := h.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer admin.Close()

	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return nil, fmt.Errorf("create database %s: %w", name, err)
	}

	u, err := url.Parse(h.dsn)
	if err != nil {
		return nil, err
	}
	u.Path = "/" + name
	return dbx.Open(ctx, u.String(), openTimeout)
}

// Terminate stops and removes the container.
func (h *Handle) Terminate(ctx context.Context) error {
	if h == nil || h.container == nil {
		return nil
	}
	return h.container.Terminate(ctx)
}
