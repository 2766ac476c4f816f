package port

import (
	"context"

	"github.com/attack-monitor/iam-service/internal/core/domain"
)

// PermissionPatch carries the optional fields of a partial permission update.
type PermissionPatch struct {
	Name        *string
	Description *string
}

// PermissionRepository handles permission persistence.
type PermissionRepository interface {
	Create(ctx context.Context, permission domain.Permission) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Permission, error)
	GetByName(ctx context.Context, name string) (*domain.Permission, error)
	List(ctx context.Context) ([]domain.Permission, error)
	Update(ctx context.Context, id int64, patch PermissionPatch) error
	Delete(ctx context.Context, id int64) error
}
