package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/attack-monitor/iam-service/internal/core/domain"
	"github.com/attack-monitor/iam-service/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserRegistered logs iam.user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	payload := map[string]any{
		"user_id":       event.UserID,
		"username":      event.Username,
		"registered_at": event.RegisteredAt,
		"roles":         event.Roles,
		"metadata":      event.Metadata,
	}
	p.logEvent("iam.user.registered", event.UserID, event.RegisteredAt, payload)
	return nil
}

// PublishPasswordChanged logs iam.user.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"changed_at": event.ChangedAt,
		"changed_by": event.ChangedBy,
		"forced":     event.Forced,
		"metadata":   event.Metadata,
	}
	p.logEvent("iam.user.password.changed", event.UserID, event.ChangedAt, payload)
	return nil
}

// PublishRolesReplaced logs iam.user.roles.replaced events.
func (p *StubPublisher) PublishRolesReplaced(_ context.Context, event domain.RolesReplacedEvent) error {
	payload := map[string]any{
		"user_id":     event.UserID,
		"role_ids":    event.RoleIDs,
		"replaced_by": event.ReplacedBy,
		"replaced_at": event.ReplacedAt,
		"metadata":    event.Metadata,
	}
	p.logEvent("iam.user.roles.replaced", event.UserID, event.ReplacedAt, payload)
	return nil
}

// PublishUserDeleted logs iam.user.deleted events.
func (p *StubPublisher) PublishUserDeleted(_ context.Context, event domain.UserDeletedEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"username":   event.Username,
		"deleted_by": event.DeletedBy,
		"deleted_at": event.DeletedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent("iam.user.deleted", event.UserID, event.DeletedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)

var _ port.EventPublisher = (*EventPublisher)(nil)
