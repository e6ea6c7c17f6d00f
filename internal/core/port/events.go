package port

import (
	"context"

	"github.com/alischiller/authz-service/internal/core/domain"
)

// EventPublisher dispatches notification events to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.NotificationEvent) error
}
