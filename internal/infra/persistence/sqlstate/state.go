// Package sqlstate persists domain snapshots to a single key/value table,
// one row per bucket. The SQL drivers differ only in their Dialect.
package sqlstate

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"courtcore/pkg/domain"
)

// Dialect carries the driver specific statements.
type Dialect struct {
	Name string
	// CreateTable must be idempotent.
	CreateTable string
	// Upsert binds (bucket, payload).
	Upsert string
}

// Select is shared by every dialect.
const Select = `SELECT bucket, payload FROM state`

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store implements domain.SnapshotBackend over database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
	mu      sync.Mutex
}

var _ domain.SnapshotBackend = (*Store)(nil)

// Open connects with driverName, pings the server and ensures the state table.
func Open(ctx context.Context, driverName, dsn string, dialect Dialect) (*Store, error) {
	openMu.Lock()
	db, err := sqlOpen(driverName, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}
	store, err := New(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an open handle.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if _, err := db.ExecContext(ctx, dialect.CreateTable); err != nil {
		return nil, fmt.Errorf("ensure state table: %w", err)
	}
	return &Store{db: db, dialect: dialect}, nil
}

// DB exposes the handle for tests.
func (s *Store) DB() *sql.DB { return s.db }

// Load reads every bucket row into a snapshot. An empty table yields an empty snapshot.
func (s *Store) Load(ctx context.Context) (domain.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, Select)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snap domain.Snapshot
	for rows.Next() {
		var (
			bucket  string
			payload []byte
		)
		if err := rows.Scan(&bucket, &payload); err != nil {
			return domain.Snapshot{}, fmt.Errorf("scan state: %w", err)
		}
		if err := snap.DecodeBucket(bucket, payload); err != nil {
			return domain.Snapshot{}, err
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Snapshot{}, fmt.Errorf("iterate state: %w", err)
	}
	return snap, nil
}

// Save upserts every bucket in one transaction.
func (s *Store) Save(ctx context.Context, snap domain.Snapshot) (retErr error) {
	buckets, err := snap.EncodeBuckets()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range domain.SnapshotBuckets {
		if _, err := tx.ExecContext(ctx, s.dialect.Upsert, bucket, buckets[bucket]); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close releases the handle.
func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sql.Open seam for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
