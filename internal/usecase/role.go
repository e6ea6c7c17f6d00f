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
	"github.com/alischiller/authz-service/internal/repository"
)

var (
	// ErrRoleExists indicates a role with the provided name already exists.
	ErrRoleExists = errors.New("role already exists")
	// ErrSystemRole indicates the operation is not allowed on system roles.
	ErrSystemRole = errors.New("system roles cannot be modified")
)

// CreateRoleInput captures the payload for creating a role.
type CreateRoleInput struct {
	Name        string
	DisplayName string
	Description *string
	IsSystem    bool
}

// UpdateRoleInput captures the payload for updating a role.
type UpdateRoleInput struct {
	ID          string
	DisplayName *string
	Description *string
}

// RoleService manages the role aggregate.
type RoleService struct {
	roles  port.RoleRepository
	clock  port.Clock
	logger *zap.Logger
	graph  *graphCache
}

// NewRoleService constructs a RoleService.
func NewRoleService(roles port.RoleRepository, cacheStore port.Cache, clock port.Clock, logger *zap.Logger) *RoleService {
	if clock == nil {
		clock = port.SystemClock()
	}
	return &RoleService{
		roles:  roles,
		clock:  clock,
		logger: logger,
		graph:  newGraphCache(cacheStore, logger),
	}
}

// CreateRole provisions a new active role with a unique name.
func (s *RoleService) CreateRole(ctx context.Context, input CreateRoleInput) (*domain.Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "role name is required")
	}

	if existing, err := s.roles.GetByName(ctx, name); err == nil && existing != nil {
		return nil, ErrRoleExists
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup role by name: %w", err)
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = name
	}

	role := domain.Role{
		ID:          uuid.NewString(),
		Name:        name,
		DisplayName: displayName,
		IsSystem:    input.IsSystem,
		IsActive:    true,
	}
	if input.Description != nil {
		trimmed := strings.TrimSpace(*input.Description)
		if trimmed != "" {
			role.Description = &trimmed
		}
	}

	if err := s.roles.Create(ctx, role); err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}

	s.graph.invalidateRole(ctx, role)
	return &role, nil
}

// UpdateRole modifies display name and description of an existing role.
func (s *RoleService) UpdateRole(ctx context.Context, input UpdateRoleInput) (*domain.Role, error) {
	if err := requireUUID("role id", input.ID); err != nil {
		return nil, err
	}

	role, err := s.roles.GetByID(ctx, input.ID)
	if err != nil {
		return nil, fmt.Errorf("get role: %w", err)
	}

	if input.DisplayName != nil {
		trimmed := strings.TrimSpace(*input.DisplayName)
		if trimmed == "" {
			return nil, domain.NewValidationError("display name", "display name must not be empty")
		}
		role.DisplayName = trimmed
	}
	if input.Description != nil {
		trimmed := strings.TrimSpace(*input.Description)
		if trimmed == "" {
			role.Description = nil
		} else {
			role.Description = &trimmed
		}
	}

	if err := s.roles.Update(ctx, *role); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}

	s.graph.invalidateRole(ctx, *role)
	return role, nil
}

// SetRoleActive toggles the role's active flag. Deactivated roles stop
// contributing permissions immediately.
func (s *RoleService) SetRoleActive(ctx context.Context, roleID string, active bool) error {
	if err := requireUUID("role id", roleID); err != nil {
		return err
	}

	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return fmt.Errorf("get role: %w", err)
	}

	if err := s.roles.SetActive(ctx, roleID, active); err != nil {
		return fmt.Errorf("set role active: %w", err)
	}

	s.graph.invalidateRole(ctx, *role)
	return nil
}

// DeleteRole removes a non-system role entirely. System roles are protected.
func (s *RoleService) DeleteRole(ctx context.Context, roleID string) error {
	if err := requireUUID("role id", roleID); err != nil {
		return err
	}

	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return fmt.Errorf("get role: %w", err)
	}

	if role.IsSystem {
		return ErrSystemRole
	}

	if err := s.roles.Delete(ctx, roleID); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}

	s.graph.invalidateRole(ctx, *role)
	return nil
}

// ListRoles returns all roles.
func (s *RoleService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.roles.List(ctx)
}
