package port

import (
	"context"

	"github.com/alischiller/authz-service/internal/core/domain"
)

// RoleRepository handles role persistence.
type RoleRepository interface {
	Create(ctx context.Context, role domain.Role) error
	GetByID(ctx context.Context, id string) (*domain.Role, error)
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	List(ctx context.Context) ([]domain.Role, error)
	ListActive(ctx context.Context) ([]domain.Role, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Role, error)
	Update(ctx context.Context, role domain.Role) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}
