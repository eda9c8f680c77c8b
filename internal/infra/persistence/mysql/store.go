// Package mysql persists snapshots to a MySQL state table.
package mysql

import (
	"context"

	"courtcore/internal/infra/persistence/sqlstate"

	_ "github.com/go-sql-driver/mysql" // register the mysql driver
)

const (
	driverName = "mysql"
	// DefaultDSN targets a local server with UTC time parsing.
	DefaultDSN = "root@tcp(localhost:3306)/courtcore?charset=utf8mb4&parseTime=true&loc=UTC"
)

// Dialect targets MySQL.
var Dialect = sqlstate.Dialect{
	Name: "mysql",
	CreateTable: `CREATE TABLE IF NOT EXISTS state (
		bucket VARCHAR(64) PRIMARY KEY,
		payload LONGBLOB NOT NULL
	)`,
	Upsert: `INSERT INTO state(bucket,payload) VALUES(?,?) ON DUPLICATE KEY UPDATE payload=VALUES(payload)`,
}

// Open connects to dsn, falling back to DefaultDSN.
func Open(ctx context.Context, dsn string) (*sqlstate.Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	return sqlstate.Open(ctx, driverName, dsn, Dialect)
}
