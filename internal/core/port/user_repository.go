package port

import (
	"context"

	"github.com/alischiller/authz-service/internal/core/domain"
)

// UserRepository manages account rows and their security questions.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user domain.User) error
	UpdateLockState(ctx context.Context, user domain.User) error
	UpdatePassword(ctx context.Context, user domain.User) error
	SetTwoFactorSecret(ctx context.Context, userID string, secret *string) error

	ReplaceSecurityQuestions(ctx context.Context, userID string, questions []domain.StoredSecurityQuestion) error
	ListSecurityQuestions(ctx context.Context, userID string) ([]domain.StoredSecurityQuestion, error)
	UpdateSecurityQuestion(ctx context.Context, question domain.StoredSecurityQuestion) error
}
