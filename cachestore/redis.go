package cachestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a Redis store.
type RedisConfig struct {
	// Addr is the host:port of the Redis server. Required unless Client is set.
	Addr string
	// Username and Password authenticate the connection.
	Username string
	Password string
	// DB selects the logical database.
	DB int
	// Client is an optional pre-configured client. Addr and credentials are
	// ignored when it is set.
	Client redis.UniversalClient
}

func (c *RedisConfig) validate() error {
	if c.Client == nil && c.Addr == "" {
		return fmt.Errorf("addr is required when client is not provided")
	}
	return nil
}

// Redis is a Store backed by a Redis server. TTLs map to key expiry and
// compare-and-swap uses WATCH/MULTI.
type Redis struct {
	client redis.UniversalClient
	owned  bool
}

// NewRedis creates a Redis store. It does not contact the server.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}
	if cfg.Client != nil {
		return &Redis{client: cfg.Client}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Redis{client: client, owned: true}, nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the client if this store created it.
func (r *Redis) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return value, true, nil
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, normalizeTTL(ttl)).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

// CompareAndSwap implements Swapper. A concurrent modification of key between
// the read and the write reports false rather than an error.
func (r *Redis) CompareAndSwap(ctx context.Context, key string, prev, next []byte, ttl time.Duration) (bool, error) {
	swapped := false
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		exists := true
		if errors.Is(err, redis.Nil) {
			exists = false
		} else if err != nil {
			return err
		}

		switch {
		case prev == nil && exists:
			return nil
		case prev != nil && (!exists || !bytes.Equal(current, prev)):
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, normalizeTTL(ttl))
			return nil
		})
		if err != nil {
			return err
		}
		swapped = true
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis compare-and-swap %q: %w", key, err)
	}
	return swapped, nil
}

// normalizeTTL maps a zero or negative TTL to "no expiry".
func normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return ttl
}

var (
	_ Store   = (*Redis)(nil)
	_ Swapper = (*Redis)(nil)
)
