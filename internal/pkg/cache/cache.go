// Package cache provides a Redis-backed result cache. Engine runs are
// deterministic for identical snapshots, so a snapshot fingerprint can be
// served from cache instead of recomputing the whole term.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when no entry exists for the key
var ErrMiss = errors.New("cache miss")

// Config holds Redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// ResultCache stores serialized run results keyed by snapshot fingerprint
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultCache connects to Redis and verifies the connection
func NewResultCache(ctx context.Context, cfg Config) (*ResultCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &ResultCache{client: client, ttl: cfg.TTL}, nil
}

func key(fingerprint string) string {
	return "termflow:run:" + fingerprint
}

// Get loads a cached value into dest. Returns ErrMiss when the fingerprint
// has no entry.
func (c *ResultCache) Get(ctx context.Context, fingerprint string, dest interface{}) error {
	data, err := c.client.Get(ctx, key(fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("cache get: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache decode: %w", err)
	}
	return nil
}

// Set stores a value under the fingerprint with the configured TTL
func (c *ResultCache) Set(ctx context.Context, fingerprint string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	if err := c.client.Set(ctx, key(fingerprint), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate drops a cached entry, used when upstream data changes mid-TTL
func (c *ResultCache) Invalidate(ctx context.Context, fingerprint string) error {
	return c.client.Del(ctx, key(fingerprint)).Err()
}

// Close releases the underlying connection pool
func (c *ResultCache) Close() error {
	return c.client.Close()
}
