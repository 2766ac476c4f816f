package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/attack-monitor/iam-service/internal/core/domain"
	"github.com/attack-monitor/iam-service/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserRegistered publishes iam.user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		UserID       string         `json:"user_id"`
		Username     string         `json:"username"`
		RegisteredAt time.Time      `json:"registered_at"`
		Roles        []string       `json:"roles,omitempty"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		UserID:       event.UserID,
		Username:     event.Username,
		RegisteredAt: event.RegisteredAt.UTC(),
		Roles:        event.Roles,
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, "iam.user.registered", event.UserID, event.RegisteredAt, payload)
}

// PublishPasswordChanged publishes iam.user.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		UserID    string         `json:"user_id"`
		ChangedAt time.Time      `json:"changed_at"`
		ChangedBy string         `json:"changed_by,omitempty"`
		Forced    bool           `json:"forced"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		UserID:    event.UserID,
		ChangedAt: event.ChangedAt.UTC(),
		ChangedBy: event.ChangedBy,
		Forced:    event.Forced,
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "iam.user.password.changed", event.UserID, event.ChangedAt, payload)
}

// PublishRolesReplaced publishes iam.user.roles.replaced events.
func (p *EventPublisher) PublishRolesReplaced(ctx context.Context, event domain.RolesReplacedEvent) error {
	payload := struct {
		UserID     string         `json:"user_id"`
		RoleIDs    []int64        `json:"role_ids"`
		ReplacedBy string         `json:"replaced_by,omitempty"`
		ReplacedAt time.Time      `json:"replaced_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		UserID:     event.UserID,
		RoleIDs:    event.RoleIDs,
		ReplacedBy: event.ReplacedBy,
		ReplacedAt: event.ReplacedAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "iam.user.roles.replaced", event.UserID, event.ReplacedAt, payload)
}

// PublishUserDeleted publishes iam.user.deleted events.
func (p *EventPublisher) PublishUserDeleted(ctx context.Context, event domain.UserDeletedEvent) error {
	payload := struct {
		UserID    string         `json:"user_id"`
		Username  string         `json:"username"`
		DeletedBy string         `json:"deleted_by,omitempty"`
		DeletedAt time.Time      `json:"deleted_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		UserID:    event.UserID,
		Username:  event.Username,
		DeletedBy: event.DeletedBy,
		DeletedAt: event.DeletedAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "iam.user.deleted", event.UserID, event.DeletedAt, payload)
}
