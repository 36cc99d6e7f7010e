package cmd

import (
	"context"
	"fmt"

	"record-sync/core/config"
	"record-sync/core/database"
	"record-sync/core/reconcile"
	"record-sync/core/storage"
	"record-sync/core/windowstore"
	"record-sync/feature/mappings"
	"record-sync/feature/remote"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// engine bundles everything a command needs to run reconciliation cycles.
type engine struct {
	db       *gorm.DB
	registry *reconcile.Registry
	tracker  *reconcile.Tracker
	runner   *reconcile.Runner
}

// newEngine connects both stores, opens the window backend and builds the
// validated mapping registry from the configured definitions file.
func newEngine(ctx context.Context, cfg *config.Config, logg *zap.Logger) (*engine, error) {
	db, err := connectDatabase(cfg)
	if err != nil {
		return nil, err
	}
	logg.Info("Connected to local database",
		zap.String("driver", cfg.Database.Driver),
		zap.String("name", cfg.Database.Name))

	windows, err := openWindowStore(ctx, cfg, db)
	if err != nil {
		return nil, err
	}

	file, err := mappings.Load(cfg.Sync.MappingsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load mappings: %w", err)
	}

	client := remote.NewClient(cfg.Remote)
	registry, err := mappings.Build(ctx, file, mappings.StoreFactory{DB: db, Client: client}, logg)
	if err != nil {
		return nil, fmt.Errorf("failed to build mappings: %w", err)
	}
	logg.Info("Mappings registered", zap.Strings("mappings", registry.Names()))

	tracker := reconcile.NewTracker(windows)
	runner := reconcile.NewRunner(registry, tracker, logg, cfg.Sync.RunnerOptions()...)
	return &engine{db: db, registry: registry, tracker: tracker, runner: runner}, nil
}

// openWindowStore builds the configured window backend. The object storage
// client is only created when that backend is selected.
func openWindowStore(ctx context.Context, cfg *config.Config, db *gorm.DB) (windowstore.Store, error) {
	var client storage.Client
	if cfg.Tracker.Backend == windowstore.BackendStorage {
		c, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		client = c
	}
	windows, err := windowstore.Build(ctx, cfg.Tracker, db, client, cfg.Storage.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to open window store: %w", err)
	}
	return windows, nil
}

func connectDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
