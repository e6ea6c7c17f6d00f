package port

import (
	"context"
	"time"

	"github.com/alischiller/authz-service/internal/core/domain"
)

// GrantRepository manages the role-permission-user relationship rows.
// All removals are soft deletes; physical removal happens only through
// PurgeDeletedBefore.
type GrantRepository interface {
	CreateRolePermission(ctx context.Context, grant domain.RolePermission) error
	// CreateRolePermissions inserts the grants atomically: a failure on
	// any row leaves none of them persisted.
	CreateRolePermissions(ctx context.Context, grants []domain.RolePermission) error
	RolePermissionExists(ctx context.Context, roleID, permissionID string) (bool, error)
	ListRolePermissionIDs(ctx context.Context, roleID string) ([]string, error)
	DeleteRolePermission(ctx context.Context, roleID, permissionID string, now time.Time) error
	// ReplaceRolePermissions swaps the full permission set of a role in a
	// single transaction: missing grants are inserted, surplus grants are
	// soft-deleted.
	ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string, now time.Time) error

	CreateUserRole(ctx context.Context, grant domain.UserRole) error
	UserRoleExists(ctx context.Context, userID, roleID string) (bool, error)
	DeleteUserRole(ctx context.Context, userID, roleID string, now time.Time) error

	CreateUserPermission(ctx context.Context, grant domain.UserPermission) error
	UserPermissionExists(ctx context.Context, userID, permissionID string) (bool, error)
	DeleteUserPermission(ctx context.Context, userID, permissionID string, now time.Time) error

	// PurgeDeletedBefore physically removes relationship rows that were
	// soft-deleted before the cutoff and returns how many were purged.
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
