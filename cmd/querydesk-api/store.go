package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/querydesk/querydesk/internal/api"
	"github.com/querydesk/querydesk/internal/config"
	"github.com/querydesk/querydesk/internal/dataset"
	"github.com/querydesk/querydesk/internal/query"
	duckdbengine "github.com/querydesk/querydesk/internal/query/duckdb"
	sqliteengine "github.com/querydesk/querydesk/internal/query/sqlite"
	s3store "github.com/querydesk/querydesk/internal/storage/s3"
)

type queryStore interface {
	query.Engine
	HealthCheck(ctx context.Context) error
	Close() error
}

// openStore builds the configured engine and loads the dataset into it. The
// returned checks report whether the dataset source stays reachable.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (queryStore, []api.ReadinessCheck, error) {
	if cfg.Dataset.Source == config.DatasetSourceBuiltin {
		logger.Info("loading built-in dataset", slog.String("driver", cfg.Store.Driver))
		store, err := openSnapshot(ctx, cfg.Store.Driver, dataset.Builtin())
		return store, nil, err
	}

	objectStore, err := s3store.New(ctx, cfg.ObjectStore)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize object store: %w", err)
	}
	checks := []api.ReadinessCheck{
		api.CheckObjectStoreConfig(cfg),
		snapshotCheck(objectStore, cfg.Dataset.Prefix),
	}
	logger.Info("loading dataset snapshot",
		slog.String("driver", cfg.Store.Driver),
		slog.String("bucket", cfg.ObjectStore.Bucket),
		slog.String("prefix", cfg.Dataset.Prefix),
	)
	if cfg.Store.Driver == config.StoreDriverDuckDB {
		store, err := duckdbengine.OpenParquet(ctx, objectStore, cfg.Dataset.Prefix)
		if err != nil {
			return nil, nil, fmt.Errorf("load dataset parquet: %w", err)
		}
		return store, checks, nil
	}
	snapshot, err := dataset.Load(ctx, objectStore, cfg.Dataset.Prefix)
	if err != nil {
		return nil, nil, fmt.Errorf("load dataset snapshot: %w", err)
	}
	store, err := openSnapshot(ctx, cfg.Store.Driver, snapshot)
	if err != nil {
		return nil, nil, err
	}
	return store, checks, nil
}

func openSnapshot(ctx context.Context, driver string, snapshot dataset.Snapshot) (queryStore, error) {
	if driver == config.StoreDriverDuckDB {
		return duckdbengine.Open(ctx, snapshot)
	}
	return sqliteengine.Open(ctx, snapshot)
}

// snapshotCheck fails when the bucket or any object of the published
// snapshot disappears.
func snapshotCheck(store *s3store.Store, prefix string) api.ReadinessCheck {
	return func(ctx context.Context) error {
		if err := store.HealthCheck(ctx); err != nil {
			return err
		}
		if _, err := dataset.Inspect(ctx, store, prefix); err != nil {
			return fmt.Errorf("dataset snapshot %q: %w", prefix, err)
		}
		return nil
	}
}
