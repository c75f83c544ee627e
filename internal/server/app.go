// Package server wires the docgate components together and runs the HTTP
// server until the process is told to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docgate/docgate/internal/logging"
	"github.com/docgate/docgate/internal/server/auth"
	"github.com/docgate/docgate/internal/server/config"
	"github.com/docgate/docgate/internal/server/httpapi"
	"github.com/docgate/docgate/internal/server/repositories/repomanager"
	"github.com/docgate/docgate/internal/server/services"
	"github.com/docgate/docgate/internal/server/storage"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// openDB is a seam for tests.
var openDB = repomanager.OpenDB

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	codec     *auth.TokenCodec
	accounts  *services.AccountService
	documents *services.DocumentService
}

// NewApp connects to the database, applies migrations, selects the blob
// backend and seeds the default administrator when a password is configured.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.Debug)

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := NewBlobStore(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	codec := auth.NewTokenCodec(c.SecretKey)
	app := &App{
		config:    c,
		logger:    logger,
		db:        db,
		codec:     codec,
		accounts:  services.NewAccountService(db, rm, codec, c, logger),
		documents: services.NewDocumentService(store, logger),
	}

	if err := app.seedDefaultAdmin(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return app, nil
}

// NewBlobStore returns the backend named by c.BlobBackend.
func NewBlobStore(ctx context.Context, c *config.Config) (storage.BlobStore, error) {
	switch c.BlobBackend {
	case config.BlobBackendS3:
		return storage.NewS3Store(ctx, c)
	case config.BlobBackendMemory:
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", c.BlobBackend)
	}
}

func (app *App) seedDefaultAdmin(ctx context.Context) error {
	if app.config.DefaultAdminPassword == "" {
		return nil
	}
	if _, err := app.accounts.SeedAdmin(ctx, app.config.DefaultAdminEmail, app.config.DefaultAdminPassword); err != nil {
		return fmt.Errorf("seed default admin: %w", err)
	}
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) handler() http.Handler {
	if app.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	var health func(context.Context) error
	if app.db != nil {
		health = app.db.PingContext
	}

	return httpapi.NewRouter(httpapi.Deps{
		Config:    app.config,
		Verifier:  app.codec,
		Accounts:  app.accounts,
		Documents: app.documents,
		Logger:    app.logger,
		Health:    health,
	})
}

// Run serves HTTP until ctx is canceled or a termination signal arrives,
// then drains in-flight requests.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	app.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(ctx, "shutdown failed", "error", err)
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close failed", "error", err)
		}
	}

	return runErr
}
