package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alischiller/authz-service/internal/core/domain"
	"github.com/alischiller/authz-service/internal/core/port"
	"github.com/alischiller/authz-service/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

var _ port.EventPublisher = (*EventPublisher)(nil)

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Detail    map[string]string `json:"detail,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Publish wraps the notification event in a versioned envelope and
// hands it to the async producer. The event type doubles as the topic
// name under the configured prefix.
func (p *EventPublisher) Publish(ctx context.Context, event domain.NotificationEvent) error {
	id := event.EventID
	if id == "" {
		id = uuid.NewString()
	}

	ts := event.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: event.EventType,
		UserID:    event.UserID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Detail:    event.Detail,
		Metadata: map[string]string{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(event.EventType),
		Key:   sarama.StringEncoder(event.UserID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
