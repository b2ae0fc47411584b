package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/listas/listas-api/internal/config"
	"github.com/listas/listas-api/internal/events"
	"github.com/listas/listas-api/internal/fanout"
	"github.com/listas/listas-api/internal/platform/pagemeta"
	"github.com/listas/listas-api/internal/platform/postgres"
	"github.com/listas/listas-api/internal/position"
	"github.com/listas/listas-api/internal/service"
	"github.com/listas/listas-api/internal/store"
	"github.com/listas/listas-api/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	resourceStore    store.ResourceStore
	listStore        store.ListStore
	integrationStore store.IntegrationStore
	taskStore        task.TaskStore

	// Pipeline components
	positions   *position.Manager
	coordinator *fanout.Coordinator
	metaFetcher pagemeta.Fetcher

	// Service interfaces
	resourceService    service.ResourceService
	importService      service.ImportService
	integrationService service.IntegrationService

	// Event system
	eventEmitter events.EventEmitter

	// Task handling
	taskRegistry *task.Registry
	taskRunner   *task.TaskRunner
}

// newApplication creates a new application instance with all dependencies
// initialized and the background pipelines started. It accepts core
// dependencies like configuration, logger, and database connection that must
// be established before application initialization.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Initialize stores
	app.resourceStore = postgres.NewPostgresResourceStore(db, logger)
	app.listStore = postgres.NewPostgresListStore(db, logger)
	app.integrationStore = postgres.NewPostgresIntegrationStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db)

	// Position manager shared by the API path, the fan-out coordinator, and
	// the import pipeline.
	var err error
	app.positions, err = position.NewManager(app.resourceStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create position manager: %w", err)
	}

	// Fan-out coordinator replicating new resources into subscribed lists.
	app.coordinator, err = fanout.NewCoordinator(
		app.resourceStore,
		app.integrationStore,
		app.listStore,
		app.positions,
		fanout.Config{MaxInFlight: cfg.Fanout.MaxInFlight},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fan-out coordinator: %w", err)
	}

	// Page metadata extraction client used by enrichment tasks.
	metaClient, err := pagemeta.NewClient(cfg.Enrichment, logger.With("component", "pagemeta_client"))
	if err != nil {
		return nil, fmt.Errorf("failed to create page metadata client: %w", err)
	}
	app.metaFetcher = metaClient

	// Event emitter connecting request handling to the task pipeline.
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)

	// Task registry and runner
	if err := setupTaskPipeline(app); err != nil {
		return nil, err
	}

	// Initialize resource service
	app.resourceService, err = service.NewResourceService(
		db,
		app.resourceStore,
		app.listStore,
		app.positions,
		app.coordinator,
		app.eventEmitter,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource service: %w", err)
	}

	// Initialize import service
	app.importService, err = service.NewImportService(app.listStore, app.eventEmitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create import service: %w", err)
	}

	// Initialize integration service
	app.integrationService, err = service.NewIntegrationService(app.integrationStore, app.listStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create integration service: %w", err)
	}

	// Start the fan-out consumer once everything it touches exists.
	app.coordinator.Start()

	logger.Info("Application initialized successfully")
	return app, nil
}

// setupTaskPipeline wires the durable task pipeline: the registry of task
// factories, the runner that executes and recovers tasks, and the event
// handler that turns emitted task requests into submitted tasks.
func setupTaskPipeline(app *application) error {
	app.taskRegistry = task.NewRegistry()

	populateFactory, err := task.NewPopulateResourceTaskFactory(
		app.resourceStore,
		app.metaFetcher,
		app.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create populate task factory: %w", err)
	}
	app.taskRegistry.Register(populateFactory)

	createFactory, err := task.NewCreateResourcesTaskFactory(
		app.resourceStore,
		app.listStore,
		app.positions,
		app.eventEmitter,
		app.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create import task factory: %w", err)
	}
	app.taskRegistry.Register(createFactory)

	app.taskRunner = task.NewTaskRunner(app.taskStore, task.TaskRunnerConfig{
		QueueSize:    app.config.Task.QueueSize,
		WorkerCount:  app.config.Task.WorkerCount,
		StuckTaskAge: time.Duration(app.config.Task.StuckTaskAgeMinutes) * time.Minute,
	}, app.logger)
	app.taskRunner.SetRegistry(app.taskRegistry)

	// Starting the runner recovers any tasks left over from a previous run.
	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	// Register the event handler so emitted task requests reach the runner.
	eventHandler, err := task.NewTaskRequestEventHandler(
		app.taskRegistry,
		app.taskRunner,
		app.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create task event handler: %w", err)
	}

	if emitter, ok := app.eventEmitter.(*events.InMemoryEventEmitter); ok {
		emitter.RegisterHandler(eventHandler)
	} else {
		return fmt.Errorf("unexpected event emitter type, cannot register task handler")
	}

	return nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	err := app.startHTTPServer(ctx, router)
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	// Stop the fan-out consumer before the task runner so neither accepts new
	// work while the other is draining.
	if app.coordinator != nil {
		app.coordinator.Stop()
	}

	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
