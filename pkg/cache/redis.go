package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// Redis is a cache shared between instances. Reads use GETEX so a hit
// slides the key's expiry like the memory backend does.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string

	// Values larger than this are not stored; 0 stores everything.
	maxEntryBytes int64
}

// NewRedis connects to redis, retrying the initial ping with exponential
// backoff for up to opts.ConnectTimeout.
func NewRedis(ctx context.Context, opts RedisOpts, ttl time.Duration) (*Redis, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})

	var policy backoff.BackOff = &backoff.StopBackOff{}
	if opts.ConnectTimeout > 0 {
		b := backoff.NewExponentialBackOff()
		b.MaxElapsedTime = opts.ConnectTimeout
		policy = b
	}
	ping := func() error {
		return client.Ping(ctx).Err()
	}
	if err := backoff.Retry(ping, backoff.WithContext(policy, ctx)); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Redis{
		client: client,
		ttl:    ttl,
		prefix: opts.Prefix,
	}, nil
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := r.client.GetEx(ctx, r.key(key), r.ttl).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return raw, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if r.maxEntryBytes > 0 && int64(len(value)) > r.maxEntryBytes {
		return nil
	}
	if err := r.client.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
