// Package config loads runtime settings from COURTCORE_ environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"courtcore/internal/blob"
	"courtcore/internal/cache"
	"courtcore/internal/core"
	"courtcore/pkg/domain"
)

// Prefix is prepended to every variable name.
const Prefix = "COURTCORE"

// App holds every setting of the service and CLI.
type App struct {
	// Storage
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"sqlite"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"courtcore.db"`
	PostgresDSN   string `envconfig:"POSTGRES_DSN"`
	MySQLDSN      string `envconfig:"MYSQL_DSN"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisKey      string `envconfig:"REDIS_KEY" default:"courtcore:state"`
	// Scheduling
	Hours string `envconfig:"HOURS"`
	// Audit archive
	BlobDriver string        `envconfig:"BLOB_DRIVER" default:"fs"`
	BlobFSRoot string        `envconfig:"BLOB_FS_ROOT" default:"./blobdata"`
	S3         blob.S3Config `envconfig:"BLOB_S3"`
	// Events; an empty URL disables publishing.
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"courtcore.events"`
	// Repository cache; a negative size disables it.
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	CacheSize int           `envconfig:"CACHE_SIZE" default:"1000"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the environment.
func Load() (App, error) {
	var c App
	if err := envconfig.Process(Prefix, &c); err != nil {
		return App{}, fmt.Errorf("load config: %w", err)
	}
	return c, nil
}

// Storage maps the storage settings.
func (c App) Storage() core.StorageConfig {
	return core.StorageConfig{
		Driver:        core.StorageDriver(strings.ToLower(c.StorageDriver)),
		SQLitePath:    c.SQLitePath,
		PostgresDSN:   c.PostgresDSN,
		MySQLDSN:      c.MySQLDSN,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		RedisKey:      c.RedisKey,
	}
}

// Blob maps the archive settings.
func (c App) Blob() blob.Config {
	return blob.Config{Driver: blob.Driver(strings.ToLower(c.BlobDriver)), FSRoot: c.BlobFSRoot, S3: c.S3}
}

// Cache maps the repository cache settings.
func (c App) Cache() cache.Config {
	return cache.Config{TTL: c.CacheTTL, Size: c.CacheSize}
}

// OperatingHours parses Hours, falling back to the defaults when unset.
func (c App) OperatingHours() (domain.OperatingHours, error) {
	if strings.TrimSpace(c.Hours) == "" {
		return domain.DefaultOperatingHours(), nil
	}
	hours, err := domain.ParseOperatingHours(c.Hours)
	if err != nil {
		return nil, fmt.Errorf("%s_HOURS: %w", Prefix, err)
	}
	return hours, nil
}

// SlogLevel maps LogLevel; unknown values select info.
func (c App) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
