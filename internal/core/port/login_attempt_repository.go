package port

import (
	"context"

	"github.com/alischiller/authz-service/internal/core/domain"
)

// LoginAttemptRepository records authentication attempts for auditing.
type LoginAttemptRepository interface {
	Record(ctx context.Context, attempt domain.LoginAttempt) error
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.LoginAttempt, error)
}
