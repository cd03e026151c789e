package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/mediflash/mediflash-api/internal/api"
	"github.com/mediflash/mediflash-api/internal/config"
	"github.com/mediflash/mediflash-api/internal/domain/srs"
	"github.com/mediflash/mediflash-api/internal/events"
	"github.com/mediflash/mediflash-api/internal/generation"
	"github.com/mediflash/mediflash-api/internal/platform/gemini"
	"github.com/mediflash/mediflash-api/internal/platform/postgres"
	platformredis "github.com/mediflash/mediflash-api/internal/platform/redis"
	"github.com/mediflash/mediflash-api/internal/platform/sqlite"
	"github.com/mediflash/mediflash-api/internal/store"
	"github.com/mediflash/mediflash-api/internal/study"
	"github.com/mediflash/mediflash-api/internal/task"
)

const (
	// idleSweepInterval is how often live sessions are checked for inactivity.
	idleSweepInterval = time.Minute

	shutdownTimeout = 10 * time.Second
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *goredis.Client

	decks    store.DeckStore
	progress store.ProgressStore

	// generator is nil when document extraction is disabled.
	generator generation.Generator
	srs       srs.Service
	emitter   *events.InMemoryEventEmitter

	queue   *task.TaskQueue
	tracker *task.Tracker
	pool    *task.WorkerPool

	manager *study.Manager

	stopSweeper context.CancelFunc
	sweeperDone chan struct{}
	cleanupOnce sync.Once
}

// appOption customizes an application before its components are wired.
type appOption func(*application)

// withGenerator replaces the configured Gemini generator.
func withGenerator(g generation.Generator) appOption {
	return func(app *application) {
		app.generator = g
	}
}

// newApplication creates a new application instance with all dependencies initialized.
// The database connection must already be open; the application owns it from here on
// and closes it in cleanup.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	opts ...appOption,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}
	for _, opt := range opts {
		opt(app)
	}

	if err := app.setupStores(ctx); err != nil {
		app.cleanup(ctx)
		return nil, err
	}

	if app.generator == nil && cfg.LLM.Enabled() {
		generator, err := gemini.NewGenerator(ctx, logger, cfg.LLM)
		if err != nil {
			app.cleanup(ctx)
			return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
		}
		app.generator = generator
		logger.Info("LLM generator initialized", slog.String("model", cfg.LLM.ModelName))
	}

	app.srs = srs.NewServiceWithParams(srs.NewParams(srs.ParamsConfig{
		MaxIntervalDays: cfg.Study.MaxIntervalDays,
	}))

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.Subscribe(events.TypeCardRated, study.NewProgressRecorder(app.progress, logger))

	if err := app.setupTaskRunner(); err != nil {
		app.cleanup(ctx)
		return nil, fmt.Errorf("failed to setup task runner: %w", err)
	}

	app.manager = study.NewManager(
		app.decks,
		app.progress,
		app.srs,
		study.Limits{
			NewCardsPerDay:     cfg.Study.NewCardsPerDay,
			NewCardsPerSession: cfg.Study.SessionNewCardLimit(),
		},
		logger,
		study.WithEmitter(app.emitter),
	)
	app.startIdleSweeper(ctx)

	logger.Info("application initialized successfully")
	return app, nil
}

// setupStores selects the deck and progress stores for the configured backends.
func (app *application) setupStores(ctx context.Context) error {
	switch app.config.Database.Driver {
	case config.DriverSQLite:
		app.decks = sqlite.NewDeckStore(app.db, app.logger)
		app.progress = sqlite.NewProgressStore(app.db, app.logger)
	case config.DriverPostgres:
		app.decks = postgres.NewPostgresDeckStore(app.db, app.logger)
		app.progress = postgres.NewPostgresProgressStore(app.db, app.logger)
	default:
		return fmt.Errorf("unsupported database driver %q", app.config.Database.Driver)
	}

	if app.config.Redis.Enabled {
		client, err := platformredis.Connect(ctx, app.config.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.redis = client
		app.progress = platformredis.NewProgressStore(client, app.logger)
		app.logger.Info("daily progress kept in redis", slog.String("addr", app.config.Redis.Addr))
	}
	return nil
}

// setupTaskRunner initializes and starts the background task processor.
// Extraction requests only reach the queue when a generator is configured.
func (app *application) setupTaskRunner() error {
	app.queue = task.NewTaskQueue(app.config.Task.QueueSize, app.logger)
	app.tracker = task.NewTracker()

	poolConfig := task.DefaultWorkerPoolConfig()
	poolConfig.WorkerCount = app.config.Task.WorkerCount
	app.pool = task.NewWorkerPool(app.queue, app.tracker, poolConfig, app.logger)
	app.pool.SetErrorHandler(func(t task.Task, err error) {
		app.logger.Error("background task failed",
			slog.String("task_id", t.ID().String()),
			slog.String("task_type", t.Type()),
			slog.Any("error", err))
	})

	if app.generator != nil {
		app.emitter.Subscribe(events.TypeExtractionRequested, task.NewExtractionEventHandler(
			app.generator,
			app.decks,
			app.queue,
			app.tracker,
			app.logger,
		))
	}

	return app.pool.Start()
}

// startIdleSweeper periodically exits sessions idle for longer than the
// configured limit. It is a no-op when the limit is zero.
func (app *application) startIdleSweeper(ctx context.Context) {
	maxIdle := time.Duration(app.config.Study.SessionIdleMinutes) * time.Minute
	if maxIdle <= 0 {
		return
	}

	sweepCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	app.stopSweeper = cancel
	app.sweeperDone = make(chan struct{})

	go func() {
		defer close(app.sweeperDone)
		ticker := time.NewTicker(idleSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n := app.manager.ExpireIdle(sweepCtx, maxIdle); n > 0 {
					app.logger.Debug("idle study sessions expired",
						slog.Int("expired", n),
						slog.Int("active", app.manager.ActiveSessions()))
				}
			}
		}
	}()
}

// routes builds the HTTP handler tree.
func (app *application) routes() http.Handler {
	return api.NewRouter(api.Handlers{
		Decks: api.NewDeckHandler(app.decks, app.logger),
		Extractions: api.NewExtractionHandler(
			app.decks,
			app.emitter,
			app.tracker,
			app.generator != nil,
			app.logger,
		),
		Study: api.NewStudyHandler(app.manager, app.logger),
	}, app.logger)
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.routes()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources. Queued
// extraction tasks are drained until ctx expires. Safe to call more than once.
func (app *application) cleanup(ctx context.Context) {
	app.cleanupOnce.Do(func() {
		if app.stopSweeper != nil {
			app.stopSweeper()
			<-app.sweeperDone
		}

		if app.queue != nil {
			app.queue.Close()
		}
		if app.pool != nil {
			if err := app.pool.Stop(ctx); err != nil {
				app.logger.Warn("worker pool did not drain before shutdown", slog.Any("error", err))
			}
		}

		if app.redis != nil {
			if err := app.redis.Close(); err != nil {
				app.logger.Error("error closing redis connection", slog.Any("error", err))
			}
		}
		if app.db != nil {
			if err := app.db.Close(); err != nil {
				app.logger.Error("error closing database connection", slog.Any("error", err))
			}
		}

		app.logger.Info("application shutdown completed")
	})
}
