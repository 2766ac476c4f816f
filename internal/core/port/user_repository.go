package port

import (
	"context"

	"github.com/attack-monitor/iam-service/internal/core/domain"
)

// UserPatch carries the optional fields of a partial user update.
// Only non-nil fields are applied.
type UserPatch struct {
	Username     *string
	PasswordHash *string
	IsActive     *bool
}

// IsEmpty reports whether the patch carries no changes.
func (p UserPatch) IsEmpty() bool {
	return p.Username == nil && p.PasswordHash == nil && p.IsActive == nil
}

// UserRepository exposes persistence behavior for users.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	// CreateWithRoles persists the user and its initial role assignments
	// atomically.
	CreateWithRoles(ctx context.Context, user domain.User, roleIDs []int64) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context, offset, limit int) ([]domain.User, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, id string, patch UserPatch) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	Delete(ctx context.Context, id string) error
	ListRoles(ctx context.Context, userID string) ([]domain.Role, error)
	ReplaceRoles(ctx context.Context, userID string, roleIDs []int64) error
}
