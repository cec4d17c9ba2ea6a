package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"github.com/simongrossi/maptoposter-web/internal/api"
	"github.com/simongrossi/maptoposter-web/internal/config"
	"github.com/simongrossi/maptoposter-web/internal/events"
	"github.com/simongrossi/maptoposter-web/internal/platform/postgres"
	"github.com/simongrossi/maptoposter-web/internal/platform/redis"
	"github.com/simongrossi/maptoposter-web/internal/service"
	"github.com/simongrossi/maptoposter-web/internal/service/auth"
	"github.com/simongrossi/maptoposter-web/internal/storage"
	"github.com/simongrossi/maptoposter-web/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *goredis.Client

	taskStore task.TaskStore
	progress  task.ProgressStore
	posters   storage.Store

	// jwtService is nil when auth.jwt_secret is unset.
	jwtService    auth.JWTService
	pipeline      *service.Pipeline
	posterService *service.PosterService

	eventEmitter events.EventEmitter
	taskRunner   *task.TaskRunner
}

// newApplication creates a new application instance with all dependencies
// initialized and the task runner started. A nil db keeps job records in
// memory.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	if cfg.Auth.JWTSecret != "" {
		app.jwtService, err = auth.NewJWTService(cfg.Auth.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
		}
		logger.Info("JWT authentication enabled for poster submission")
	}

	if db != nil {
		app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	} else {
		logger.Warn("no database configured, job records are kept in memory")
		app.taskStore = task.NewMemoryTaskStore()
	}

	if cfg.Redis.URL != "" {
		app.redis, err = redis.NewClient(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		app.progress = redis.NewProgressStore(app.redis, cfg.Redis.ProgressTTL, logger)
		logger.Info("Live progress stored in redis")
	} else {
		app.progress = task.NewMemoryProgressStore()
	}

	app.posters, err = service.NewPosterStore(ctx, cfg.Storage, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize poster storage: %w", err)
	}

	app.pipeline, err = service.NewPipeline(cfg, app.posters, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize poster pipeline: %w", err)
	}

	posterTaskFactory, err := task.NewPosterTaskFactory(app.pipeline.Generator, app.taskStore, app.progress, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create poster task factory: %w", err)
	}

	app.taskRunner, err = setupTaskRunner(app, posterTaskFactory)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to setup task runner: %w", err)
	}

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(task.NewTaskFactoryEventHandler(
		events.PosterRequested,
		posterTaskFactory,
		app.taskRunner,
		logger,
	))
	app.eventEmitter = emitter

	app.posterService, err = service.NewPosterService(
		app.eventEmitter,
		app.taskStore,
		app.progress,
		app.pipeline.Themes,
		logger,
	)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create poster service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// setupTaskRunner creates the task runner, requeues unfinished jobs and
// starts the workers.
func setupTaskRunner(app *application, recoverer task.TaskRecoverer) (*task.TaskRunner, error) {
	taskRunner := task.NewTaskRunner(app.taskStore, recoverer, task.TaskRunnerConfig{
		QueueSize:    app.config.Task.QueueSize,
		WorkerCount:  app.config.Task.WorkerCount,
		StuckTaskAge: app.config.Task.StuckTaskAge(),
	}, app.logger)

	if err := taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}
	return taskRunner, nil
}

// healthChecks returns the dependency checks reported by GET /health.
func (app *application) healthChecks() map[string]api.HealthCheck {
	checks := make(map[string]api.HealthCheck)
	if app.db != nil {
		checks["database"] = app.db.PingContext
	}
	if app.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return app.redis.Ping(ctx).Err()
		}
	}
	return checks
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("Error closing redis connection", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
