package port

import (
	"context"

	"github.com/attack-monitor/iam-service/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishRolesReplaced(ctx context.Context, event domain.RolesReplacedEvent) error
	PublishUserDeleted(ctx context.Context, event domain.UserDeletedEvent) error
}
