package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/alischiller/authz-service/internal/cache"
	"github.com/alischiller/authz-service/internal/core/domain"
	"github.com/alischiller/authz-service/internal/core/port"
)

// graphCache centralizes invalidation of the authorization graph cache.
// Every mutating operation must leave no stale entry visible to
// subsequent reads, so invalidation always covers the id key, the name
// key, the aggregate keys, and the per-subject derived lists.
type graphCache struct {
	cache  port.Cache
	logger *zap.Logger
}

func newGraphCache(c port.Cache, logger *zap.Logger) *graphCache {
	return &graphCache{cache: c, logger: logger}
}

func (g *graphCache) invalidateRole(ctx context.Context, role domain.Role) {
	g.remove(ctx,
		cache.RoleByID(role.ID),
		cache.RoleByName(role.Name),
		cache.AllRoles,
		cache.ActiveRoles,
		cache.PermissionsByRole(role.ID),
	)
	g.removePrefix(ctx, "authz:roles:byUser")
	g.removePrefix(ctx, "authz:permissions:byUser")
}

func (g *graphCache) invalidatePermission(ctx context.Context, permission domain.Permission) {
	g.remove(ctx,
		cache.PermissionByID(permission.ID),
		cache.PermissionByName(permission.Name),
		cache.AllPermissions,
		cache.ActivePermissions,
	)
	g.removePrefix(ctx, "authz:permissions:byRole")
	g.removePrefix(ctx, "authz:permissions:byUser")
}

func (g *graphCache) invalidateRoleGrants(ctx context.Context, roleID string) {
	g.remove(ctx, cache.PermissionsByRole(roleID))
	g.removePrefix(ctx, "authz:permissions:byUser")
}

func (g *graphCache) invalidateUserGrants(ctx context.Context, userID string) {
	g.remove(ctx,
		cache.RolesByUser(userID),
		cache.PermissionsByUser(userID),
	)
}

func (g *graphCache) remove(ctx context.Context, keys ...string) {
	if err := g.cache.Delete(ctx, keys...); err != nil {
		g.logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (g *graphCache) removePrefix(ctx context.Context, prefix string) {
	if err := g.cache.DeleteByPrefix(ctx, prefix); err != nil {
		g.logger.Warn("cache prefix invalidation failed", zap.String("prefix", prefix), zap.Error(err))
	}
}
