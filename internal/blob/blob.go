// Package blob is the only entry point to blob storage. Callers depend on
// Store; the driver packages under internal/infra/blob stay private to it.
package blob

import (
	"context"
	"fmt"

	"courtcore/internal/blob/core"
	"courtcore/internal/infra/blob/fs"
	"courtcore/internal/infra/blob/memory"
	"courtcore/internal/infra/blob/s3"
)

type (
	Driver     = core.Driver
	PutOptions = core.PutOptions
	Info       = core.Info
	Store      = core.Store
	// S3Config configures the S3 driver.
	S3Config = s3.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrNotFound = core.ErrNotFound
	ErrExists   = core.ErrExists
)

// Config selects and configures a driver.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// NewMemory returns a process-local store.
func NewMemory() Store { return memory.New() }

// NewFilesystem returns a store rooted at root, creating it if needed.
func NewFilesystem(root string) (Store, error) {
	store, err := fs.New(root)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewS3 returns a store backed by one S3 bucket.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	store, err := s3.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Open constructs the store cfg describes. An empty driver selects the
// filesystem.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
