package core

import (
	"context"
	"fmt"

	"courtcore/internal/infra/persistence/memory"
	"courtcore/internal/infra/persistence/mysql"
	"courtcore/internal/infra/persistence/postgres"
	"courtcore/internal/infra/persistence/redis"
	"courtcore/internal/infra/persistence/sqlite"
	"courtcore/internal/repository"
	"courtcore/pkg/domain"
)

// StorageDriver identifies a concrete snapshot backend.
type StorageDriver string

const (
	StorageNone     StorageDriver = "none"     // no durability at all
	StorageMemory   StorageDriver = "memory"   // in-process snapshots (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageMySQL    StorageDriver = "mysql"    // MySQL server
	StorageRedis    StorageDriver = "redis"    // one Redis hash
)

// StorageConfig selects a backend. Empty driver defaults to sqlite.
type StorageConfig struct {
	Driver        StorageDriver
	SQLitePath    string
	PostgresDSN   string
	MySQLDSN      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}

// OpenBackend constructs the backend cfg names. StorageNone returns nil.
func OpenBackend(ctx context.Context, cfg StorageConfig) (domain.SnapshotBackend, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	var (
		backend domain.SnapshotBackend
		err     error
	)
	switch driver {
	case StorageNone:
		return nil, nil
	case StorageMemory:
		return memory.New(), nil
	case StorageSQLite:
		backend, err = nonNil(sqlite.Open(ctx, cfg.SQLitePath))
	case StoragePostgres:
		backend, err = nonNil(postgres.Open(ctx, cfg.PostgresDSN))
	case StorageMySQL:
		backend, err = nonNil(mysql.Open(ctx, cfg.MySQLDSN))
	case StorageRedis:
		backend, err = nonNil(redis.Open(ctx, redis.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB, Key: cfg.RedisKey}))
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", driver, err)
	}
	return backend, nil
}

// nonNil keeps a typed nil pointer out of the returned interface.
func nonNil[B domain.SnapshotBackend](b B, err error) (domain.SnapshotBackend, error) {
	if err != nil {
		return nil, err
	}
	return b, nil
}

// OpenStore opens the configured backend, restores its snapshot into a new
// Store and re-derives slot flags the snapshot may have carried out of sync.
// A repaired state is saved back before the store is returned. Orphaned
// reservations are left for an explicit repair.
func OpenStore(ctx context.Context, cfg StorageConfig, opts ...repository.Option) (*Store, error) {
	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := NewStore(backend, opts...)
	if err := store.Restore(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	report, err := store.EnsureDataConsistency(ctx, ConsistencyOptions{})
	if err == nil && report.Changed() {
		err = store.Persist(ctx)
	}
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("repair restored snapshot: %w", err)
	}
	return store, nil
}
