package port

import (
	"context"

	"github.com/alischiller/authz-service/internal/core/domain"
)

// PermissionRepository manages permission storage.
type PermissionRepository interface {
	Create(ctx context.Context, permission domain.Permission) error
	GetByID(ctx context.Context, id string) (*domain.Permission, error)
	GetByName(ctx context.Context, name string) (*domain.Permission, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]domain.Permission, error)
	ListActive(ctx context.Context) ([]domain.Permission, error)
	ListByGroup(ctx context.Context, group string) ([]domain.Permission, error)
	ListByRole(ctx context.Context, roleID string) ([]domain.Permission, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Permission, error)
	Update(ctx context.Context, permission domain.Permission) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}
