package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alischiller/authz-service/internal/cache"
	"github.com/alischiller/authz-service/internal/core/domain"
	"github.com/alischiller/authz-service/internal/core/port"
	"github.com/alischiller/authz-service/internal/repository"
)

var (
	// ErrGrantExists indicates the relationship already exists and the
	// caller chose the strict add variant.
	ErrGrantExists = errors.New("grant already exists")
)

// AuthorizationService answers "does subject S hold permission P?" and
// mutates the role-permission-user graph. Every read path goes through
// the read-through cache; every mutation invalidates the affected keys.
type AuthorizationService struct {
	roles       port.RoleRepository
	permissions port.PermissionRepository
	grants      port.GrantRepository
	cache       port.Cache
	clock       port.Clock
	logger      *zap.Logger
	ttl         time.Duration

	graph *graphCache
}

// NewAuthorizationService constructs an AuthorizationService.
func NewAuthorizationService(
	roles port.RoleRepository,
	permissions port.PermissionRepository,
	grants port.GrantRepository,
	cacheStore port.Cache,
	clock port.Clock,
	logger *zap.Logger,
) *AuthorizationService {
	if clock == nil {
		clock = port.SystemClock()
	}
	return &AuthorizationService{
		roles:       roles,
		permissions: permissions,
		grants:      grants,
		cache:       cacheStore,
		clock:       clock,
		logger:      logger,
		ttl:         cache.DefaultTTL,
		graph:       newGraphCache(cacheStore, logger),
	}
}

// WithCacheTTL overrides the read-through cache entry lifetime.
func (s *AuthorizationService) WithCacheTTL(ttl time.Duration) *AuthorizationService {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

// GetRoleByID returns the role with the given id, or nil when absent.
func (s *AuthorizationService) GetRoleByID(ctx context.Context, roleID string) (*domain.Role, error) {
	if err := requireUUID("role id", roleID); err != nil {
		return nil, err
	}

	role, err := cache.GetOrCreate(ctx, s.cache, cache.RoleByID(roleID), s.ttl, func(ctx context.Context) (*domain.Role, error) {
		return s.roles.GetByID(ctx, roleID)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return role, err
}

// GetRoleByName returns the role with the given name, or nil when absent.
func (s *AuthorizationService) GetRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "role name is required")
	}

	role, err := cache.GetOrCreate(ctx, s.cache, cache.RoleByName(name), s.ttl, func(ctx context.Context) (*domain.Role, error) {
		return s.roles.GetByName(ctx, name)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return role, err
}

// GetPermissionByID returns the permission with the given id, or nil when absent.
func (s *AuthorizationService) GetPermissionByID(ctx context.Context, permissionID string) (*domain.Permission, error) {
	if err := requireUUID("permission id", permissionID); err != nil {
		return nil, err
	}

	permission, err := cache.GetOrCreate(ctx, s.cache, cache.PermissionByID(permissionID), s.ttl, func(ctx context.Context) (*domain.Permission, error) {
		return s.permissions.GetByID(ctx, permissionID)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return permission, err
}

// GetPermissionByName returns the permission with the given name, or nil when absent.
func (s *AuthorizationService) GetPermissionByName(ctx context.Context, name string) (*domain.Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "permission name is required")
	}

	permission, err := cache.GetOrCreate(ctx, s.cache, cache.PermissionByName(name), s.ttl, func(ctx context.Context) (*domain.Permission, error) {
		return s.permissions.GetByName(ctx, name)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return permission, err
}

// GetRolePermissions returns the permissions currently granted to a role.
func (s *AuthorizationService) GetRolePermissions(ctx context.Context, roleID string) ([]domain.Permission, error) {
	if err := requireUUID("role id", roleID); err != nil {
		return nil, err
	}

	return cache.GetOrCreate(ctx, s.cache, cache.PermissionsByRole(roleID), s.ttl, func(ctx context.Context) ([]domain.Permission, error) {
		return s.permissions.ListByRole(ctx, roleID)
	})
}

// GetUserRoles returns the roles assigned to a user.
func (s *AuthorizationService) GetUserRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	if err := requireUUID("user id", userID); err != nil {
		return nil, err
	}

	return cache.GetOrCreate(ctx, s.cache, cache.RolesByUser(userID), s.ttl, func(ctx context.Context) ([]domain.Role, error) {
		return s.roles.ListByUser(ctx, userID)
	})
}

// HasPermission reports whether the user holds the named permission
// through an active role carrying an active permission, or through an
// active direct grant. Inactive roles and permissions are silently
// excluded, never errored.
func (s *AuthorizationService) HasPermission(ctx context.Context, userID, permissionName string) (bool, error) {
	if err := requireUUID("user id", userID); err != nil {
		return false, err
	}
	permissionName = strings.TrimSpace(permissionName)
	if permissionName == "" {
		return false, domain.NewValidationError("permission", "permission name is required")
	}

	roles, err := s.GetUserRoles(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("resolve user roles: %w", err)
	}

	for _, role := range roles {
		if !role.IsActive {
			continue
		}

		permissions, err := s.GetRolePermissions(ctx, role.ID)
		if err != nil {
			return false, fmt.Errorf("resolve role permissions: %w", err)
		}

		for _, permission := range permissions {
			if permission.IsActive && strings.EqualFold(permission.Name, permissionName) {
				return true, nil
			}
		}
	}

	direct, err := cache.GetOrCreate(ctx, s.cache, cache.PermissionsByUser(userID), s.ttl, func(ctx context.Context) ([]domain.Permission, error) {
		return s.permissions.ListByUser(ctx, userID)
	})
	if err != nil {
		return false, fmt.Errorf("resolve user permissions: %w", err)
	}

	for _, permission := range direct {
		if permission.IsActive && strings.EqualFold(permission.Name, permissionName) {
			return true, nil
		}
	}

	return false, nil
}

// AddPermissionToRole grants a permission to a role. Adding an already
// existing pair is a no-op.
func (s *AuthorizationService) AddPermissionToRole(ctx context.Context, roleID, permissionID string) error {
	return s.addPermissionToRole(ctx, roleID, permissionID, false)
}

// AddPermissionToRoleStrict grants a permission to a role and fails
// with ErrGrantExists when the pair already exists.
func (s *AuthorizationService) AddPermissionToRoleStrict(ctx context.Context, roleID, permissionID string) error {
	return s.addPermissionToRole(ctx, roleID, permissionID, true)
}

func (s *AuthorizationService) addPermissionToRole(ctx context.Context, roleID, permissionID string, strict bool) error {
	if err := requireUUID("role id", roleID); err != nil {
		return err
	}
	if err := requireUUID("permission id", permissionID); err != nil {
		return err
	}

	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return fmt.Errorf("lookup role: %w", err)
	}
	if _, err := s.permissions.GetByID(ctx, permissionID); err != nil {
		return fmt.Errorf("lookup permission: %w", err)
	}

	exists, err := s.grants.RolePermissionExists(ctx, roleID, permissionID)
	if err != nil {
		return fmt.Errorf("check role permission: %w", err)
	}
	if exists {
		if strict {
			return ErrGrantExists
		}
		return nil
	}

	grant := domain.RolePermission{
		ID:           uuid.NewString(),
		RoleID:       roleID,
		PermissionID: permissionID,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.grants.CreateRolePermission(ctx, grant); err != nil {
		return fmt.Errorf("create role permission: %w", err)
	}

	s.graph.invalidateRoleGrants(ctx, roleID)
	return nil
}

// AddPermissionsToRole grants multiple permissions to a role in one
// batch. The whole batch is rejected with ErrGrantExists if any target
// pair already exists; the inserts run in a single store transaction,
// so a failure partway through leaves nothing applied.
func (s *AuthorizationService) AddPermissionsToRole(ctx context.Context, roleID string, permissionIDs []string) error {
	if err := requireUUID("role id", roleID); err != nil {
		return err
	}
	if len(permissionIDs) == 0 {
		return domain.NewValidationError("permission ids", "at least one permission id is required")
	}
	for _, permissionID := range permissionIDs {
		if err := requireUUID("permission id", permissionID); err != nil {
			return err
		}
	}

	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return fmt.Errorf("lookup role: %w", err)
	}

	for _, permissionID := range permissionIDs {
		exists, err := s.grants.RolePermissionExists(ctx, roleID, permissionID)
		if err != nil {
			return fmt.Errorf("check role permission: %w", err)
		}
		if exists {
			return fmt.Errorf("permission %s: %w", permissionID, ErrGrantExists)
		}
	}

	now := s.clock.Now()
	grants := make([]domain.RolePermission, 0, len(permissionIDs))
	for _, permissionID := range permissionIDs {
		grants = append(grants, domain.RolePermission{
			ID:           uuid.NewString(),
			RoleID:       roleID,
			PermissionID: permissionID,
			CreatedAt:    now,
		})
	}
	if err := s.grants.CreateRolePermissions(ctx, grants); err != nil {
		// A pair racing past the pre-check still trips the unique index
		// inside the transaction, rolling back the whole batch.
		if errors.Is(err, repository.ErrConflict) {
			return ErrGrantExists
		}
		return fmt.Errorf("create role permissions: %w", err)
	}

	s.graph.invalidateRoleGrants(ctx, roleID)
	return nil
}

// RemovePermissionFromRole soft-deletes the grant for the pair.
func (s *AuthorizationService) RemovePermissionFromRole(ctx context.Context, roleID, permissionID string) error {
	if err := requireUUID("role id", roleID); err != nil {
		return err
	}
	if err := requireUUID("permission id", permissionID); err != nil {
		return err
	}

	if err := s.grants.DeleteRolePermission(ctx, roleID, permissionID, s.clock.Now()); err != nil {
		return fmt.Errorf("delete role permission: %w", err)
	}

	s.graph.invalidateRoleGrants(ctx, roleID)
	return nil
}

// UpdateRolePermissions replaces the role's full permission set with
// the provided ids, applying the diff inside one transaction.
func (s *AuthorizationService) UpdateRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	if err := requireUUID("role id", roleID); err != nil {
		return err
	}
	for _, permissionID := range permissionIDs {
		if err := requireUUID("permission id", permissionID); err != nil {
			return err
		}
	}

	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return fmt.Errorf("lookup role: %w", err)
	}

	if err := s.grants.ReplaceRolePermissions(ctx, roleID, permissionIDs, s.clock.Now()); err != nil {
		return fmt.Errorf("replace role permissions: %w", err)
	}

	s.graph.invalidateRoleGrants(ctx, roleID)
	return nil
}

// AssignRoleToUser grants a role to a user. Assigning an existing pair
// is a no-op.
func (s *AuthorizationService) AssignRoleToUser(ctx context.Context, userID, roleID string) error {
	if err := requireUUID("user id", userID); err != nil {
		return err
	}
	if err := requireUUID("role id", roleID); err != nil {
		return err
	}

	exists, err := s.grants.UserRoleExists(ctx, userID, roleID)
	if err != nil {
		return fmt.Errorf("check user role: %w", err)
	}
	if exists {
		return nil
	}

	grant := domain.UserRole{
		ID:        uuid.NewString(),
		UserID:    userID,
		RoleID:    roleID,
		CreatedAt: s.clock.Now(),
	}
	if err := s.grants.CreateUserRole(ctx, grant); err != nil {
		return fmt.Errorf("create user role: %w", err)
	}

	s.graph.invalidateUserGrants(ctx, userID)
	return nil
}

// RevokeRoleFromUser soft-deletes the user's role assignment.
func (s *AuthorizationService) RevokeRoleFromUser(ctx context.Context, userID, roleID string) error {
	if err := requireUUID("user id", userID); err != nil {
		return err
	}
	if err := requireUUID("role id", roleID); err != nil {
		return err
	}

	if err := s.grants.DeleteUserRole(ctx, userID, roleID, s.clock.Now()); err != nil {
		return fmt.Errorf("delete user role: %w", err)
	}

	s.graph.invalidateUserGrants(ctx, userID)
	return nil
}

// GrantPermissionToUser grants a permission directly to a user,
// bypassing role membership. Granting an existing pair is a no-op.
func (s *AuthorizationService) GrantPermissionToUser(ctx context.Context, userID, permissionID string) error {
	if err := requireUUID("user id", userID); err != nil {
		return err
	}
	if err := requireUUID("permission id", permissionID); err != nil {
		return err
	}

	exists, err := s.grants.UserPermissionExists(ctx, userID, permissionID)
	if err != nil {
		return fmt.Errorf("check user permission: %w", err)
	}
	if exists {
		return nil
	}

	grant := domain.UserPermission{
		ID:           uuid.NewString(),
		UserID:       userID,
		PermissionID: permissionID,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.grants.CreateUserPermission(ctx, grant); err != nil {
		return fmt.Errorf("create user permission: %w", err)
	}

	s.graph.invalidateUserGrants(ctx, userID)
	return nil
}

// RevokePermissionFromUser soft-deletes the user's direct grant.
func (s *AuthorizationService) RevokePermissionFromUser(ctx context.Context, userID, permissionID string) error {
	if err := requireUUID("user id", userID); err != nil {
		return err
	}
	if err := requireUUID("permission id", permissionID); err != nil {
		return err
	}

	if err := s.grants.DeleteUserPermission(ctx, userID, permissionID, s.clock.Now()); err != nil {
		return fmt.Errorf("delete user permission: %w", err)
	}

	s.graph.invalidateUserGrants(ctx, userID)
	return nil
}

// requireUUID fails fast with a FormatError before any store or cache
// access when the identifier is not a valid UUID.
func requireUUID(field, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.NewValidationError(field, field+" is required")
	}
	if _, err := uuid.Parse(value); err != nil {
		return domain.NewFormatError(field, value)
	}
	return nil
}
