// Package sqlite persists snapshots to an embedded SQLite file.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"courtcore/internal/infra/persistence/sqlstate"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// DefaultPath is used when Open receives an empty path.
const DefaultPath = "courtcore.db"

// Dialect targets SQLite.
var Dialect = sqlstate.Dialect{
	Name: "sqlite",
	CreateTable: `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`,
	Upsert: `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`,
}

// Open creates the parent directory if needed and opens the database file.
func Open(ctx context.Context, path string) (*sqlstate.Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	return sqlstate.Open(ctx, "sqlite", path, Dialect)
}
