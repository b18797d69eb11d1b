package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Catalog is a Redis-backed read-through cache for catalog data. Cache
// failures are logged and treated as misses so Redis outages never take down
// reads.
type Catalog struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCatalog creates a catalog cache with the given TTL.
func NewCatalog(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Catalog {
	return &Catalog{client: client, ttl: ttl, logger: logger}
}

const (
	categoriesKey = "catalog:categories"
	tagsKey       = "catalog:tags"
	productKeyFmt = "catalog:product:%s"
)

// GetJSON loads the cached value for key into target. It returns false on a
// miss or any cache error.
func (c *Catalog) GetJSON(ctx context.Context, key string, target any) bool {
	if c == nil || c.client == nil {
		return false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "cache read failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return false
	}

	if err := json.Unmarshal(data, target); err != nil {
		c.logger.WarnContext(ctx, "cache entry corrupt, dropping",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		c.Invalidate(ctx, key)
		return false
	}

	return true
}

// SetJSON stores the value under key with the configured TTL.
func (c *Catalog) SetJSON(ctx context.Context, key string, value any) {
	if c == nil || c.client == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.WarnContext(ctx, "cache marshal failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Invalidate removes the given keys from the cache.
func (c *Catalog) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.client == nil || len(keys) == 0 {
		return
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache invalidation failed",
			slog.String("error", err.Error()),
		)
	}
}

// CategoriesKey returns the cache key for the category list.
func CategoriesKey() string { return categoriesKey }

// TagsKey returns the cache key for the tag list.
func TagsKey() string { return tagsKey }

// ProductKey returns the cache key for a single product.
func ProductKey(id string) string { return fmt.Sprintf(productKeyFmt, id) }
