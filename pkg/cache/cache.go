// Package cache stores rendered responses with sliding expiration, either in
// process memory or in Redis when several instances share one cache.
package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	// DefaultTTL is how long an entry lives after its last read.
	DefaultTTL = 8 * time.Hour
)

// Cache is a byte cache with sliding expiration: every hit extends the entry's life.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Opts holds cache configuration options.
type Opts struct {
	Backend       string        `long:"backend" env:"BACKEND" description:"Cache backend" choice:"memory" choice:"redis" default:"memory"`
	TTL           time.Duration `long:"ttl" env:"TTL" description:"Sliding expiration of cached responses" default:"8h"`
	MaxEntries    int           `long:"max-entries" env:"MAX_ENTRIES" description:"Maximum entries held by the memory backend, 0 for unbounded" default:"10000"`
	MaxBytes      int64         `long:"max-bytes" env:"MAX_BYTES" description:"Total response bytes held by the memory backend, 0 for unbounded" default:"268435456"`
	MaxEntryBytes int64         `long:"max-entry-bytes" env:"MAX_ENTRY_BYTES" description:"Largest response cached by any backend, 0 for unbounded" default:"8388608"`
	SweepInterval time.Duration `long:"sweep-interval" env:"SWEEP_INTERVAL" description:"How often the memory backend drops expired entries" default:"5m"`
	Redis         RedisOpts     `group:"Redis Options" namespace:"redis" env-namespace:"REDIS"`
}

// RedisOpts configures the redis backend.
type RedisOpts struct {
	Addr           string        `long:"addr" env:"ADDR" description:"Redis address" default:"localhost:6379"`
	Username       string        `long:"username" env:"USERNAME" description:"Redis username"`
	Password       string        `long:"password" env:"PASSWORD" description:"Redis password"`
	DB             int           `long:"db" env:"DB" description:"Redis database" default:"0"`
	Prefix         string        `long:"prefix" env:"PREFIX" description:"Key prefix" default:"imagestub:"`
	ConnectTimeout time.Duration `long:"connect-timeout" env:"CONNECT_TIMEOUT" description:"How long to retry the initial ping" default:"10s"`
}

// New creates a cache based on the provided configuration.
func New(ctx context.Context, opts Opts) (Cache, error) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	switch opts.Backend {
	case BackendMemory, "":
		limits := Limits{Entries: opts.MaxEntries, Bytes: opts.MaxBytes, EntryBytes: opts.MaxEntryBytes}
		return NewMemory(ttl, limits, opts.SweepInterval), nil
	case BackendRedis:
		r, err := NewRedis(ctx, opts.Redis, ttl)
		if err != nil {
			return nil, err
		}
		r.maxEntryBytes = opts.MaxEntryBytes
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", opts.Backend)
	}
}
