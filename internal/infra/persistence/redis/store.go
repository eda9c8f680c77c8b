// Package redis persists snapshots as fields of one Redis hash.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"courtcore/pkg/domain"
)

const (
	// DefaultAddr targets a local server.
	DefaultAddr = "localhost:6379"
	// DefaultKey names the hash holding every bucket.
	DefaultKey  = "courtcore:state"
	pingTimeout = 2 * time.Second
)

// Config selects the server and hash key.
type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// hashClient is the subset of *goredis.Client the store calls.
type hashClient interface {
	HGetAll(ctx context.Context, key string) *goredis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...any) *goredis.IntCmd
	Close() error
}

// Store implements domain.SnapshotBackend. Save writes all buckets in a single
// HSET so readers never observe a partial snapshot.
type Store struct {
	client hashClient
	key    string
}

var _ domain.SnapshotBackend = (*Store)(nil)

// Open connects and pings the server.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: cfg.Password, DB: cfg.DB})
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return newStore(client, cfg.Key), nil
}

func newStore(client hashClient, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

// Load implements domain.SnapshotBackend.
func (s *Store) Load(ctx context.Context) (domain.Snapshot, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("hgetall %s: %w", s.key, err)
	}
	var snap domain.Snapshot
	for bucket, payload := range fields {
		if err := snap.DecodeBucket(bucket, []byte(payload)); err != nil {
			return domain.Snapshot{}, err
		}
	}
	return snap, nil
}

// Save implements domain.SnapshotBackend.
func (s *Store) Save(ctx context.Context, snap domain.Snapshot) error {
	buckets, err := snap.EncodeBuckets()
	if err != nil {
		return err
	}
	values := make([]any, 0, 2*len(buckets))
	for _, bucket := range domain.SnapshotBuckets {
		values = append(values, bucket, string(buckets[bucket]))
	}
	if err := s.client.HSet(ctx, s.key, values...).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", s.key, err)
	}
	return nil
}

// Close implements domain.SnapshotBackend.
func (s *Store) Close() error { return s.client.Close() }
