package port

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss indicates the requested key is not present in the cache.
var ErrCacheMiss = errors.New("cache: miss")

// Cache is a process-wide keyed store used strictly as a read-through
// accelerator. The backing store remains authoritative; concurrent
// populations of the same key are last-write-wins.
type Cache interface {
	// Get returns the raw value for key, or ErrCacheMiss.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key with the provided TTL.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Delete removes a single key.
	Delete(ctx context.Context, keys ...string) error
	// DeleteByPrefix removes every key registered under the prefix. The
	// implementation maintains an explicit per-prefix key index rather
	// than scanning the keyspace.
	DeleteByPrefix(ctx context.Context, prefix string) error
}
