package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alischiller/authz-service/internal/core/port"
)

const indexKeyPrefix = "authz:cache-index:"

// Cache implements port.Cache over Redis. Alongside every stored key it
// maintains an explicit per-prefix index set so DeleteByPrefix never has
// to scan the keyspace.
type Cache struct {
	client   *redis.Client
	indexTTL time.Duration
}

// NewCache constructs a Redis-backed cache. indexTTL bounds how long a
// prefix index survives without writes; it should be at least as long
// as the largest value TTL in use.
func NewCache(client *redis.Client, indexTTL time.Duration) *Cache {
	if indexTTL <= 0 {
		indexTTL = time.Hour
	}
	return &Cache{client: client, indexTTL: indexTTL}
}

// Get returns the value stored under key, or port.ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", port.ErrCacheMiss
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return value, nil
}

// Set stores value under key with the provided TTL and registers the
// key in its prefix index.
func (c *Cache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, value, ttl)

	index := indexKeyPrefix + keyPrefix(key)
	pipe.SAdd(ctx, index, key)
	pipe.Expire(ctx, index, c.indexTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the given keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// DeleteByPrefix removes every key registered under the prefix along
// with the index set itself.
func (c *Cache) DeleteByPrefix(ctx context.Context, prefix string) error {
	index := indexKeyPrefix + prefix
	members, err := c.client.SMembers(ctx, index).Result()
	if err != nil {
		return fmt.Errorf("redis smembers: %w", err)
	}

	keys := append(members, index)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del by prefix: %w", err)
	}
	return nil
}

// keyPrefix strips the trailing segment of a colon-separated key, so
// "authz:role:id:123" indexes under "authz:role:id".
func keyPrefix(key string) string {
	if idx := strings.LastIndex(key, ":"); idx > 0 {
		return key[:idx]
	}
	return key
}

var _ port.Cache = (*Cache)(nil)
