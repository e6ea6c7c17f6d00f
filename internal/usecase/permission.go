package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alischiller/authz-service/internal/core/domain"
	"github.com/alischiller/authz-service/internal/core/port"
)

// ErrPermissionExists indicates a permission with the provided name already exists.
var ErrPermissionExists = errors.New("permission already exists")

// CreatePermissionInput captures the payload for creating a permission.
type CreatePermissionInput struct {
	Name        string
	Group       string
	Type        domain.PermissionType
	Description *string
}

// UpdatePermissionInput captures the payload for updating a permission.
type UpdatePermissionInput struct {
	ID          string
	Group       *string
	Type        *domain.PermissionType
	Description *string
}

// PermissionService manages the permission aggregate.
type PermissionService struct {
	permissions port.PermissionRepository
	clock       port.Clock
	logger      *zap.Logger
	graph       *graphCache
}

// NewPermissionService constructs a PermissionService.
func NewPermissionService(permissions port.PermissionRepository, cacheStore port.Cache, clock port.Clock, logger *zap.Logger) *PermissionService {
	if clock == nil {
		clock = port.SystemClock()
	}
	return &PermissionService{
		permissions: permissions,
		clock:       clock,
		logger:      logger,
		graph:       newGraphCache(cacheStore, logger),
	}
}

// CreatePermission provisions a new active permission. Names are unique
// ignoring case, since permission checks match them case-insensitively;
// the stored casing is preserved for display. Uniqueness is checked
// through the repository before insertion; a race on the unique index
// still surfaces as repository.ErrConflict.
func (s *PermissionService) CreatePermission(ctx context.Context, input CreatePermissionInput) (*domain.Permission, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "permission name is required")
	}

	group := strings.TrimSpace(input.Group)
	if group == "" {
		return nil, domain.NewValidationError("group", "permission group is required")
	}

	permType := input.Type
	if permType == "" {
		permType = domain.PermissionTypeRead
	}

	exists, err := s.permissions.ExistsByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check permission name: %w", err)
	}
	if exists {
		return nil, ErrPermissionExists
	}

	permission := domain.Permission{
		ID:       uuid.NewString(),
		Name:     name,
		Group:    group,
		Type:     permType,
		IsActive: true,
	}
	if input.Description != nil {
		trimmed := strings.TrimSpace(*input.Description)
		if trimmed != "" {
			permission.Description = &trimmed
		}
	}

	if err := s.permissions.Create(ctx, permission); err != nil {
		return nil, fmt.Errorf("create permission: %w", err)
	}

	s.graph.invalidatePermission(ctx, permission)
	return &permission, nil
}

// UpdatePermission modifies group, type, or description of an existing permission.
func (s *PermissionService) UpdatePermission(ctx context.Context, input UpdatePermissionInput) (*domain.Permission, error) {
	if err := requireUUID("permission id", input.ID); err != nil {
		return nil, err
	}

	permission, err := s.permissions.GetByID(ctx, input.ID)
	if err != nil {
		return nil, fmt.Errorf("get permission: %w", err)
	}

	if input.Group != nil {
		trimmed := strings.TrimSpace(*input.Group)
		if trimmed == "" {
			return nil, domain.NewValidationError("group", "permission group must not be empty")
		}
		permission.Group = trimmed
	}
	if input.Type != nil {
		permission.Type = *input.Type
	}
	if input.Description != nil {
		trimmed := strings.TrimSpace(*input.Description)
		if trimmed == "" {
			permission.Description = nil
		} else {
			permission.Description = &trimmed
		}
	}

	if err := s.permissions.Update(ctx, *permission); err != nil {
		return nil, fmt.Errorf("update permission: %w", err)
	}

	s.graph.invalidatePermission(ctx, *permission)
	return permission, nil
}

// SetPermissionActive toggles the permission's active flag. Deactivated
// permissions stop being granted immediately, without the caller
// re-fetching anything.
func (s *PermissionService) SetPermissionActive(ctx context.Context, permissionID string, active bool) error {
	if err := requireUUID("permission id", permissionID); err != nil {
		return err
	}

	permission, err := s.permissions.GetByID(ctx, permissionID)
	if err != nil {
		return fmt.Errorf("get permission: %w", err)
	}

	if err := s.permissions.SetActive(ctx, permissionID, active); err != nil {
		return fmt.Errorf("set permission active: %w", err)
	}

	s.graph.invalidatePermission(ctx, *permission)
	return nil
}

// DeletePermission removes a permission entirely.
func (s *PermissionService) DeletePermission(ctx context.Context, permissionID string) error {
	if err := requireUUID("permission id", permissionID); err != nil {
		return err
	}

	permission, err := s.permissions.GetByID(ctx, permissionID)
	if err != nil {
		return fmt.Errorf("get permission: %w", err)
	}

	if err := s.permissions.Delete(ctx, permissionID); err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}

	s.graph.invalidatePermission(ctx, *permission)
	return nil
}

// ListPermissions returns all permissions, optionally filtered by group.
func (s *PermissionService) ListPermissions(ctx context.Context, group string) ([]domain.Permission, error) {
	group = strings.TrimSpace(group)
	if group == "" {
		return s.permissions.List(ctx)
	}
	return s.permissions.ListByGroup(ctx, group)
}
