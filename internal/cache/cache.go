// Package cache provides the read-through caching discipline used by
// the authorization graph: deterministic keys, a fixed TTL safety net,
// and a generic get-or-create helper over the port.Cache capability.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alischiller/authz-service/internal/core/port"
	"github.com/alischiller/authz-service/internal/infra/metrics"
)

// DefaultTTL is the safety-net expiry applied to every cached entry
// regardless of explicit invalidation.
const DefaultTTL = 30 * time.Minute

// Key builders. Keys are deterministic functions of entity type,
// id-or-name, and an optional qualifier.

// RoleByID returns the cache key for a role id lookup.
func RoleByID(id string) string { return "authz:role:id:" + id }

// RoleByName returns the cache key for a role name lookup.
func RoleByName(name string) string { return "authz:role:name:" + normalize(name) }

// AllRoles is the aggregate key for the full role list.
const AllRoles = "authz:roles:all"

// ActiveRoles is the aggregate key for active roles only.
const ActiveRoles = "authz:roles:active"

// RolesByUser returns the cache key for a user's role list.
func RolesByUser(userID string) string { return "authz:roles:byUser:" + userID }

// PermissionByID returns the cache key for a permission id lookup.
func PermissionByID(id string) string { return "authz:permission:id:" + id }

// PermissionByName returns the cache key for a permission name lookup.
func PermissionByName(name string) string { return "authz:permission:name:" + normalize(name) }

// AllPermissions is the aggregate key for the full permission list.
const AllPermissions = "authz:permissions:all"

// ActivePermissions is the aggregate key for active permissions only.
const ActivePermissions = "authz:permissions:active"

// PermissionsByRole returns the cache key for a role's permission list.
func PermissionsByRole(roleID string) string { return "authz:permissions:byRole:" + roleID }

// PermissionsByUser returns the cache key for a user's flattened permission list.
func PermissionsByUser(userID string) string { return "authz:permissions:byUser:" + userID }

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// GetOrCreate returns the cached value under key, or invokes factory,
// caches its result with ttl, and returns it. Concurrent callers may
// race to populate the same key; last write wins, which is acceptable
// because cached values are idempotent re-reads of store state.
func GetOrCreate[T any](ctx context.Context, c port.Cache, key string, ttl time.Duration, factory func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	raw, err := c.Get(ctx, key)
	switch {
	case err == nil:
		var value T
		if unmarshalErr := json.Unmarshal([]byte(raw), &value); unmarshalErr == nil {
			metrics.CacheHits.WithLabelValues(prefixOf(key)).Inc()
			return value, nil
		}
		// Corrupt entry: fall through to recompute.
	case !errors.Is(err, port.ErrCacheMiss):
		return zero, fmt.Errorf("cache get %s: %w", key, err)
	}

	metrics.CacheMisses.WithLabelValues(prefixOf(key)).Inc()

	value, err := factory(ctx)
	if err != nil {
		return zero, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return zero, fmt.Errorf("cache marshal %s: %w", key, err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := c.Set(ctx, key, string(encoded), ttl); err != nil {
		return zero, fmt.Errorf("cache set %s: %w", key, err)
	}

	return value, nil
}

func prefixOf(key string) string {
	if idx := strings.LastIndex(key, ":"); idx > 0 {
		return key[:idx]
	}
	return key
}
