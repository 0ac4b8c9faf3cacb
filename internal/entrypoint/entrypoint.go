// Package entrypoint wires the application together and runs the HTTP
// server until it receives a shutdown signal.
package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ivyscans/api/internal/audit"
	"github.com/ivyscans/api/internal/auth"
	"github.com/ivyscans/api/internal/catalog"
	"github.com/ivyscans/api/internal/config"
	"github.com/ivyscans/api/internal/database"
	auditrepo "github.com/ivyscans/api/internal/database/audit"
	"github.com/ivyscans/api/internal/database/tokens"
	"github.com/ivyscans/api/internal/genres"
	http_controllers "github.com/ivyscans/api/internal/http"
	"github.com/ivyscans/api/internal/library"
	"github.com/ivyscans/api/internal/scheduler"
	"github.com/ivyscans/api/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// App holds the wired application.
type App struct {
	Router    *gin.Engine
	DB        *database.Database
	Audit     *audit.Service
	Tokens    *tokens.Repository
	Tasks     *tasks.Client
	Scheduler *scheduler.MaintenanceScheduler

	cfg            *config.Config
	authController *auth.AuthController
	cancelWorkers  context.CancelFunc
}

// NewApp opens the database and builds every service and the router.
// Background workers are not started; see Start.
func NewApp(cfg *config.Config, version string) (*App, error) {
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app := &App{
		DB:     db,
		Audit:  audit.NewService(auditrepo.NewRepository(db.DB)),
		Tokens: tokens.NewRepository(db.DB),
		cfg:    cfg,
	}

	catalogService := catalog.NewService(db.DB)
	libraryService := library.NewService(db.DB, catalogService, app.Audit)
	issuer := auth.NewTokenIssuer(cfg.Auth)
	authService := auth.NewService(db.DB, issuer, libraryService, cfg.Auth)
	app.authController = auth.NewAuthController(authService, app.Audit, cfg.Auth)

	app.Router = http_controllers.NewRouter(http_controllers.RouterConfig{
		Catalog:        catalogService,
		Genres:         genres.NewService(db.DB),
		Library:        libraryService,
		Health:         db,
		AuthController: app.authController,
		AuthMiddleware: auth.NewMiddleware(issuer),
		Auditor:        app.Audit,
		EnableHSTS:     cfg.HTTP.EnableHSTS,
		Version:        version,
	})

	if cfg.Tasks.Enabled {
		app.Tasks, err = tasks.NewClient(cfg.TasksDatabasePath(), tasks.FromConfig(cfg.Tasks))
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize task queue: %w", err)
		}
		app.Tasks.Register(
			tasks.NewPurgeExpiredTokensQueue(app.Tokens, app.Audit),
			tasks.NewCleanupAuditEventsQueue(app.Audit, app.Audit),
		)
	}

	if cfg.Maintenance.Enabled {
		app.Scheduler = scheduler.NewMaintenanceScheduler(cfg.Maintenance.Schedule, app.maintenanceJob(), app.Audit)
	}

	return app, nil
}

// maintenanceJob enqueues the maintenance tasks, or runs them inline when
// the task queue is disabled.
func (a *App) maintenanceJob() scheduler.Job {
	retentionDays := a.cfg.Audit.RetentionDays
	if a.Tasks != nil {
		return func(ctx context.Context) error {
			_, err := a.Tasks.Add(
				tasks.PurgeExpiredTokensTask{},
				tasks.CleanupAuditEventsTask{RetentionDays: retentionDays},
			).Ctx(ctx).Save()
			return err
		}
	}

	purge := tasks.PurgeExpiredTokensProcessor(a.Tokens, a.Audit)
	cleanup := tasks.CleanupAuditEventsProcessor(a.Audit, a.Audit)
	return func(ctx context.Context) error {
		return errors.Join(
			purge(ctx, tasks.PurgeExpiredTokensTask{}),
			cleanup(ctx, tasks.CleanupAuditEventsTask{RetentionDays: retentionDays}),
		)
	}
}

// Start launches the task workers and the maintenance scheduler.
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancelWorkers = cancel

	if a.Tasks != nil {
		go a.Tasks.Start(ctx)
	}
	if a.Scheduler != nil {
		if err := a.Scheduler.Start(ctx); err != nil {
			cancel()
			return err
		}
	}
	return nil
}

// Shutdown stops background work and releases resources.
func (a *App) Shutdown(ctx context.Context) {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Tasks != nil {
		a.Tasks.Stop(ctx)
	}
	if a.cancelWorkers != nil {
		a.cancelWorkers()
	}
	if a.authController != nil {
		a.authController.Stop()
	}
	a.Audit.Wait()

	if a.Tasks != nil {
		if err := a.Tasks.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing task client")
		}
	}
	if err := a.DB.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database")
	}
}

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts down
// within the configured timeout.
func Serve(router http.Handler, cfg *config.Config, onShutdown ShutdownFunc) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, router, cfg, onShutdown)
}

func serve(ctx context.Context, router http.Handler, cfg *config.Config, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Dur("timeout", timeout).Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)

	// Stop background work after in-flight requests are drained
	if onShutdown != nil {
		onShutdown(shutdownCtx)
	}

	if err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info().Msg("Server exiting")
	return nil
}

// Run builds the application and serves it until shutdown.
func Run(cfg *config.Config, version string) error {
	log.Info().Str("version", version).Msg("Starting IvyScans API")

	app, err := NewApp(cfg, version)
	if err != nil {
		return err
	}
	if err := app.Start(); err != nil {
		app.Shutdown(context.Background())
		return err
	}
	return Serve(app.Router, cfg, app.Shutdown)
}

// PurgeTokens deletes expired refresh tokens once and returns how many
// were removed.
func PurgeTokens(ctx context.Context, cfg config.Database) (int64, error) {
	db, err := database.NewDatabase(cfg)
	if err != nil {
		return 0, fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	return tasks.PurgeExpiredTokens(ctx, tokens.NewRepository(db.DB), time.Now())
}
