// Package catalog caches rendered product views in Redis. The cache is an
// accelerator for the public listing and detail pages; every write path that
// touches a product or its stock marks the view stale by bumping a version
// key, which orphans all previously cached entries.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const versionKey = "catalog:ver"

type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New connects to Redis. A connection failure is returned to the caller,
// which may choose to run without a cache; all methods on a nil *Cache are
// safe no-ops that report a miss.
func New(redisURL string, ttl time.Duration, logger *zap.Logger) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Cache{client: client, ttl: ttl, logger: logger}, nil
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// Get returns the cached payload for key under the current catalog version.
// Any Redis error degrades to a miss so a cache outage never fails a read.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, c.versionedKey(ctx, key)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return data, true
}

func (c *Cache) Set(ctx context.Context, key string, payload []byte) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, c.versionedKey(ctx, key), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate is the "view is stale" signal. Bumping the version makes every
// key minted under the old version unreachable; the entries age out via TTL.
func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.client.Incr(ctx, versionKey).Err(); err != nil {
		c.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

func (c *Cache) versionedKey(ctx context.Context, key string) string {
	ver, err := c.client.Get(ctx, versionKey).Int64()
	if err != nil && err != redis.Nil {
		ver = 0
	}
	return fmt.Sprintf("catalog:v%d:%s", ver, key)
}
