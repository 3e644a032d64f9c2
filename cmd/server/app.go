package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/scry-bulkgen/internal/config"
	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/events"
	"github.com/phrazzld/scry-bulkgen/internal/generation"
	"github.com/phrazzld/scry-bulkgen/internal/job"
	"github.com/phrazzld/scry-bulkgen/internal/platform/postgres"
	"github.com/phrazzld/scry-bulkgen/internal/platform/redis"
	"github.com/phrazzld/scry-bulkgen/internal/service"
	"github.com/phrazzld/scry-bulkgen/internal/store"
	"github.com/phrazzld/scry-bulkgen/internal/task"
)

// application holds the shared dependencies of the server so they can be
// shut down in order.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	rdb    *goredis.Client

	jobStore     store.JobStore
	contentStore store.ContentStore

	runner     *task.Runner
	emitter    *events.InMemoryEventEmitter
	jobService service.JobService
}

// newApplication wires stores, providers, the generation pipeline, the
// runner and the control service. The runner is created but not started.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := app.setupStores(ctx); err != nil {
		return nil, err
	}

	provider, err := buildTieredProvider(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	generator, err := buildBatchGenerator(provider, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize batch generator: %w", err)
	}

	persister := job.NewPersistenceWorker(app.contentStore, app.jobStore, job.PersistenceConfig{
		MaxAttempts:        cfg.Persistence.MaxAttempts,
		BaseBackoff:        cfg.Persistence.BaseBackoff(),
		StopLossRatio:      cfg.Persistence.StopLossRatio,
		StopLossMinSamples: cfg.Persistence.StopLossMinSamples,
	}, logger)

	orchestrator, err := job.NewOrchestrator(app.jobStore, generator, persister, job.OrchestratorConfig{
		MaxBatchSize: cfg.Generation.MaxBatchSize,
		Control: job.ControlConfig{
			PollInterval:   cfg.Control.PollInterval(),
			MaxPauseChecks: cfg.Control.MaxPauseChecks,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orchestrator: %w", err)
	}

	app.runner, err = task.NewRunner(app.jobStore, orchestrator, task.RunnerConfig{
		WorkerCount:   cfg.Runner.WorkerCount,
		QueueSize:     cfg.Runner.QueueSize,
		StaleAfter:    cfg.Runner.StaleAfter(),
		SweepSchedule: cfg.Runner.SweepSchedule,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize job runner: %w", err)
	}

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(task.NewJobEventHandler(app.runner, logger), task.SchedulingEvents...)

	app.jobService, err = service.NewJobService(app.jobStore, app.emitter, service.JobServiceConfig{
		StaleAfter: cfg.Runner.StaleAfter(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize job service: %w", err)
	}

	logger.Info("application initialized")
	return app, nil
}

// setupStores creates the content store on PostgreSQL and the job store on
// the configured backend.
func (app *application) setupStores(ctx context.Context) error {
	app.contentStore = postgres.NewPostgresContentStore(app.db, app.logger)

	switch app.config.JobStore {
	case "redis":
		rdb, err := redis.NewClient(ctx, redis.Config{
			URL:       app.config.Redis.URL,
			KeyPrefix: app.config.Redis.KeyPrefix,
		})
		if err != nil {
			return err
		}
		app.rdb = rdb
		app.jobStore = redis.NewRedisJobStore(rdb, app.config.Redis.KeyPrefix, app.logger)
	default:
		app.jobStore = postgres.NewPostgresJobStore(app.db, app.logger)
	}

	app.logger.Info("stores initialized", "job_store", app.config.JobStore)
	return nil
}

func buildBatchGenerator(provider generation.Provider, cfg *config.Config, logger *slog.Logger) (*generation.BatchGenerator, error) {
	gate, err := generation.NewQualityGate(generation.GateConfig{
		MinTextLength:    cfg.Generation.MinTextLength,
		MinValidFraction: cfg.Generation.MinValidFraction,
	})
	if err != nil {
		return nil, err
	}

	prompts, err := generation.NewPromptBuilder(cfg.LLM.PromptTemplatePath, cfg.Generation.MinTextLength)
	if err != nil {
		return nil, err
	}

	temperature := cfg.LLM.Temperature
	return generation.NewBatchGenerator(
		provider,
		generation.NewClassifier(generation.DefaultClassifierConfig(), logger),
		gate,
		prompts,
		domain.NewUnitClassifier(cfg.Generation.DifficultUnits, cfg.Generation.SpecialistUnits),
		generation.BatchConfig{
			EscalateOnContentFilter: cfg.Generation.EscalateOnContentFilter,
			MaxRetryDelay:           cfg.Generation.MaxRetryDelay(),
			Temperature:             &temperature,
			MaxOutputTokens:         cfg.LLM.MaxOutputTokens,
		},
		logger,
	)
}

// Run starts the runner and serves HTTP until ctx is cancelled, then shuts
// everything down.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	if err := app.runner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start job runner: %w", err)
	}

	router := newRouter(app.jobService, app.db, app.logger)
	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops the runner before closing the stores it writes to.
func (app *application) cleanup() {
	if app.runner != nil {
		app.runner.Stop()
	}
	if app.rdb != nil {
		closeQuietly(app.rdb, app.logger)
	}
	if app.db != nil {
		closeQuietly(app.db, app.logger)
	}
	app.logger.Info("application shutdown completed")
}
