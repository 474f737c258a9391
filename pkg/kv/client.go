package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/billifyhq/billify-backend/pkg/config"
	"github.com/billifyhq/billify-backend/pkg/logger"
)

const scanBatch = 200

// Store is the prefix-addressable record store capability. Records are
// opaque serialized blobs keyed by a type-prefixed identifier.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// Locker hands out mutual-exclusion tokens keyed inside the record store.
type Locker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
}

// Client implements the record store over Redis.
type Client struct {
	raw *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New bootstraps a Redis-backed store with pooling/timeouts and verifies
// connectivity.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{raw: raw}, nil
}

// NewFromClient wraps an existing Redis client. Used by tests.
func NewFromClient(raw *redis.Client) *Client {
	return &Client{raw: raw}
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Get returns the value stored at key; the second result is false when the
// key is absent.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	if c == nil || c.raw == nil {
		return "", false, errors.New("kv client not initialized")
	}
	value, err := c.raw.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Put stores a serialized record at key.
func (c *Client) Put(ctx context.Context, key, value string) error {
	if c == nil || c.raw == nil {
		return errors.New("kv client not initialized")
	}
	return c.raw.Set(ctx, key, value, 0).Err()
}

// Delete removes the record at key.
func (c *Client) Delete(ctx context.Context, key string) error {
	if c == nil || c.raw == nil {
		return errors.New("kv client not initialized")
	}
	return c.raw.Del(ctx, key).Err()
}

// ListKeys scans every key under the given type prefix. Ordering is not
// significant to callers.
func (c *Client) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	if c == nil || c.raw == nil {
		return nil, errors.New("kv client not initialized")
	}
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := c.raw.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("scan %q: %w", prefix, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// SetNX sets a value only if the key does not exist yet.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c == nil || c.raw == nil {
		return false, errors.New("kv client not initialized")
	}
	return c.raw.SetNX(ctx, key, value, ttl).Result()
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.raw == nil {
		return errors.New("kv client not initialized")
	}
	return c.raw.Ping(ctx).Err()
}

// Close shuts down the underlying client.
func (c *Client) Close() error {
	if c == nil || c.raw == nil {
		return nil
	}
	return c.raw.Close()
}
