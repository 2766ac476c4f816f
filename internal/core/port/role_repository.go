package port

import (
	"context"

	"github.com/attack-monitor/iam-service/internal/core/domain"
)

// RolePatch carries the optional fields of a partial role update.
type RolePatch struct {
	Name        *string
	Description *string
}

// RoleRepository handles role persistence.
type RoleRepository interface {
	Create(ctx context.Context, role domain.Role) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Role, error)
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	List(ctx context.Context) ([]domain.Role, error)
	Update(ctx context.Context, id int64, patch RolePatch) error
	Delete(ctx context.Context, id int64) error
	ListPermissions(ctx context.Context, roleID int64) ([]domain.Permission, error)
	ReplacePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
}
