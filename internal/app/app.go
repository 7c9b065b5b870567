package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/photostream/backend/internal/cache"
	httpapi "github.com/photostream/backend/internal/http"
	"github.com/photostream/backend/internal/service"
	"github.com/photostream/backend/internal/store"
	"github.com/photostream/backend/internal/store/drivers/sqlite"
	"github.com/photostream/backend/pkg/slogx"
	"github.com/photostream/backend/pkg/tokenx"
)

// BuildVersion should be set at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application wires the store, cache, services and HTTP server together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	cache *cache.SessionCache

	authService *service.AuthService
	userService *service.UserService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized, migrations
// applied and the initial admin seeded.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "photostream-backend",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	codec, err := tokenx.NewCodec(cfg.JWTAlgorithm, cfg.JWTSecret)
	if err != nil {
		return nil, err
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	ctx := slogx.WithContext(context.Background(), app.logger)
	if err := app.initCache(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices(codec)

	if err := service.SeedAdmin(ctx, app.db, service.BootstrapParams{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		FullName: cfg.AdminFullName,
	}); err != nil {
		_ = app.cache.Close()
		_ = app.db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown stops the HTTP server, then releases the cache and database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.cache.Close(); err != nil {
		app.logger.Error("error closing cache", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initCache(ctx context.Context) error {
	sc, err := cache.New(ctx, app.cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to session cache: %w", err)
	}
	app.cache = sc
	return nil
}

func (app *Application) initServices(codec *tokenx.Codec) {
	app.authService = &service.AuthService{
		Codec:      codec,
		Store:      app.db,
		Cache:      app.cache,
		AccessTTL:  app.cfg.AccessTokenTTL,
		RefreshTTL: app.cfg.RefreshTokenTTL,
		EmailTTL:   app.cfg.EmailTokenTTL,
		CacheTTL:   app.cfg.CacheTTL,
	}
	app.userService = &service.UserService{
		Store: app.db,
		Cache: app.cache,
	}
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.cache, app.logger)
	router.AuthService = app.authService
	router.UserService = app.userService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
