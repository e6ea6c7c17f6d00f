package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/alischiller/authz-service/internal/core/domain"
	"github.com/alischiller/authz-service/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful
// for development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

var _ port.EventPublisher = (*StubPublisher)(nil)

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

// Publish logs the event at info level.
func (p *StubPublisher) Publish(_ context.Context, event domain.NotificationEvent) error {
	at := event.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", event.EventType),
		zap.String("event_id", event.EventID),
		zap.String("user_id", event.UserID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("detail", event.Detail),
	)
	return nil
}
