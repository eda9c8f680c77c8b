// Package postgres persists snapshots to a PostgreSQL state table.
package postgres

import (
	"context"

	"courtcore/internal/infra/persistence/sqlstate"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	driverName = "pgx"
	// DefaultDSN targets a local server.
	DefaultDSN = "postgres://localhost/courtcore?sslmode=disable"
)

// Dialect targets PostgreSQL. Payloads are stored as JSONB.
var Dialect = sqlstate.Dialect{
	Name: "postgres",
	CreateTable: `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`,
	Upsert: `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`,
}

// Open connects to dsn, falling back to DefaultDSN.
func Open(ctx context.Context, dsn string) (*sqlstate.Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	return sqlstate.Open(ctx, driverName, dsn, Dialect)
}
