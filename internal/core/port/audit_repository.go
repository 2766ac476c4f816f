package port

import (
	"context"

	"github.com/attack-monitor/iam-service/internal/core/domain"
)

// AuditRepository persists audit trail entries.
type AuditRepository interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.AuditEntry, error)
}
