// Package server initializes and runs the accounts server: it opens the
// database, applies migrations, and serves the REST API next to the gRPC
// health endpoint until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/accounts/internal/dbx"
	"github.com/dmitrijs2005/accounts/internal/logging"
	"github.com/dmitrijs2005/accounts/internal/server/config"
	"github.com/dmitrijs2005/accounts/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accounts/internal/server/rest"
	"github.com/dmitrijs2005/accounts/internal/server/services"

	gs "github.com/dmitrijs2005/accounts/internal/server/grpc"
)

const dbConnectTimeout = 5 * time.Second

// seams for tests
var (
	openDB         = dbx.Open
	newRepoManager = repomanager.NewPostgresRepositoryManager
)

type App struct {
	config         *config.Config
	logger         logging.Logger
	db             *sql.DB
	accountService *services.AccountService
}

func NewApp(c *config.Config) (*App, error) {
	logger, err := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}
	return newApp(context.Background(), c, logger)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB(ctx, c.DatabaseDSN, dbConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := newRepoManager(logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository manager init error: %w", err)
	}

	applied, err := rm.RunMigrations(ctx, db, c.MigrationLocations...)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}
	logger.Info(ctx, "Migrations done", "applied", len(applied), "locations", c.MigrationLocations)

	return &App{
		config:         c,
		logger:         logger,
		db:             db,
		accountService: services.NewAccountService(db, rm),
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Signal received", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	s, err := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.db)
	if err == nil {
		err = s.Run(ctx)
	}
	if err != nil {
		app.logger.Error(ctx, "gRPC server failed", "error", err)
		cancelFunc()
	}
	return err
}

func (app *App) startRESTServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	h := &rest.Handler{Accounts: app.accountService, DB: app.db}
	s := rest.NewRESTServer(app.config.EndpointAddrHTTP, rest.NewRouter(h, app.logger), app.config.ShutdownTimeout, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "REST server failed", "error", err)
		cancelFunc()
		return err
	}
	return nil
}

// Run serves until ctx is cancelled, a termination signal arrives or one of
// the servers fails. The database is closed before Run returns.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	collect := func(err error) {
		if err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		collect(app.startRESTServer(ctx, cancelFunc))
	}()
	go func() {
		defer wg.Done()
		collect(app.startGRPCServer(ctx, cancelFunc))
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		collect(fmt.Errorf("db close error: %w", err))
	}
	app.logger.Info(context.Background(), "App stopped")

	return errors.Join(errs...)
}
