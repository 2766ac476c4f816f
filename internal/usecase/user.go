package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/attack-monitor/iam-service/internal/core/domain"
	"github.com/attack-monitor/iam-service/internal/core/port"
	"github.com/attack-monitor/iam-service/internal/infra/security"
	"github.com/attack-monitor/iam-service/internal/repository"
)

var (
	// ErrUserNotFound is returned when the target user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrForbidden indicates the actor may not act on the target resource.
	ErrForbidden = errors.New("insufficient privileges")
	// ErrSelfDeletion indicates an administrator attempted to delete their own account.
	ErrSelfDeletion = errors.New("administrators cannot delete their own account")
	// ErrCurrentPasswordInvalid indicates the provided current password is incorrect.
	ErrCurrentPasswordInvalid = errors.New("current password is incorrect")
)

// UserPage is one page of the user directory.
type UserPage struct {
	Users  []domain.User
	Total  int
	Offset int
	Limit  int
}

// UpdateUserInput carries the optional fields of a user update.
type UpdateUserInput struct {
	Username *string
	IsActive *bool
}

// CreateUserInput captures an administrative user creation request.
type CreateUserInput struct {
	Username string
	Password string
	IsActive *bool
	RoleIDs  []int64
}

// UserService handles user lifecycle operations.
type UserService struct {
	users             port.UserRepository
	roles             port.RoleRepository
	publisher         port.EventPublisher
	audit             port.AuditRepository
	passwordValidator *security.PasswordValidator
	logger            *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(
	users port.UserRepository,
	roles port.RoleRepository,
	publisher port.EventPublisher,
	audit port.AuditRepository,
	validator *security.PasswordValidator,
	logger *zap.Logger,
) *UserService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:             users,
		roles:             roles,
		publisher:         publisher,
		audit:             audit,
		passwordValidator: validator,
		logger:            logger,
	}
}

// Get resolves a user with its roles.
func (s *UserService) Get(ctx context.Context, userID string) (domain.Account, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrUserNotFound
		}
		return domain.Account{}, fmt.Errorf("lookup user: %w", err)
	}

	roles, err := s.users.ListRoles(ctx, user.ID)
	if err != nil {
		return domain.Account{}, fmt.Errorf("list user roles: %w", err)
	}

	return domain.Account{User: user.Sanitized(), Roles: roles}, nil
}

// List returns a page of the user directory plus the total count.
func (s *UserService) List(ctx context.Context, offset, limit int) (UserPage, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	users, err := s.users.List(ctx, offset, limit)
	if err != nil {
		return UserPage{}, fmt.Errorf("list users: %w", err)
	}
	for i := range users {
		users[i] = users[i].Sanitized()
	}

	total, err := s.users.Count(ctx)
	if err != nil {
		return UserPage{}, fmt.Errorf("count users: %w", err)
	}

	return UserPage{Users: users, Total: total, Offset: offset, Limit: limit}, nil
}

// Create provisions a user administratively. Without explicit role ids the
// default role is assigned when it exists.
func (s *UserService) Create(ctx context.Context, actorID string, input CreateUserInput) (domain.Account, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return domain.Account{}, fmt.Errorf("username is required")
	}
	if input.Password == "" {
		return domain.Account{}, fmt.Errorf("password is required")
	}

	if err := s.passwordValidator.Validate(input.Password); err != nil {
		return domain.Account{}, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		IsActive:     isActive,
		CreatedAt:    time.Now().UTC(),
	}

	roleIDs := input.RoleIDs
	if len(roleIDs) == 0 {
		if defaultRole, err := s.roles.GetByName(ctx, domain.RoleNameUser); err == nil {
			roleIDs = []int64{defaultRole.ID}
		}
	}

	// Role ids are validated up front so the atomic insert never has to roll
	// back on an unknown role.
	account := domain.Account{User: user.Sanitized()}
	if len(roleIDs) > 0 {
		resolved, err := s.resolveRoles(ctx, roleIDs)
		if err != nil {
			return domain.Account{}, err
		}
		account.Roles = resolved
	}

	if err := s.users.CreateWithRoles(ctx, user, roleIDs); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.Account{}, ErrUsernameTaken
		}
		return domain.Account{}, fmt.Errorf("create user: %w", err)
	}

	s.recordAudit(ctx, actorID, "admin_create_user")

	return account, nil
}

// Update applies a partial update. Username changes contend with the unique
// constraint the same way registration does.
func (s *UserService) Update(ctx context.Context, actorID, targetID string, input UpdateUserInput) (domain.Account, error) {
	patch := port.UserPatch{IsActive: input.IsActive}
	if input.Username != nil {
		trimmed := strings.TrimSpace(*input.Username)
		if trimmed == "" {
			return domain.Account{}, fmt.Errorf("username must not be empty")
		}
		patch.Username = &trimmed
	}

	if !patch.IsEmpty() {
		if err := s.users.Update(ctx, targetID, patch); err != nil {
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return domain.Account{}, ErrUserNotFound
			case errors.Is(err, repository.ErrConflict):
				return domain.Account{}, ErrUsernameTaken
			}
			return domain.Account{}, fmt.Errorf("update user: %w", err)
		}
	}

	s.recordAudit(ctx, actorID, "update_user")

	return s.Get(ctx, targetID)
}

// ChangePassword performs a self-service password change gated on the
// current password.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("new password is required")
	}
	if err := s.passwordValidator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if !security.VerifyPassword(currentPassword, user.PasswordHash) {
		return ErrCurrentPasswordInvalid
	}

	return s.setPassword(ctx, user, newPassword, userID, false)
}

// ForceSetPassword overwrites a user's password without the current one.
// Reserved for administrators.
func (s *UserService) ForceSetPassword(ctx context.Context, actorID, targetID, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("new password is required")
	}
	if err := s.passwordValidator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	user, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	return s.setPassword(ctx, user, newPassword, actorID, true)
}

func (s *UserService) setPassword(ctx context.Context, user *domain.User, newPassword, changedBy string, forced bool) error {
	hashed, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hashed); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}

	changedAt := time.Now().UTC()
	s.recordAudit(ctx, user.ID, "password_change")
	if s.publisher != nil {
		event := domain.PasswordChangedEvent{
			UserID:    user.ID,
			ChangedAt: changedAt,
			ChangedBy: changedBy,
			Forced:    forced,
		}
		if err := s.publisher.PublishPasswordChanged(ctx, event); err != nil {
			s.logger.Warn("publish password changed event failed",
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// Delete removes a user. Administrators cannot delete themselves through
// this path.
func (s *UserService) Delete(ctx context.Context, actorID, targetID string) error {
	if actorID != "" && actorID == targetID {
		return ErrSelfDeletion
	}

	user, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if err := s.users.Delete(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	deletedAt := time.Now().UTC()
	s.recordAudit(ctx, actorID, "delete_user")
	if s.publisher != nil {
		event := domain.UserDeletedEvent{
			UserID:    user.ID,
			Username:  user.Username,
			DeletedBy: actorID,
			DeletedAt: deletedAt,
		}
		if err := s.publisher.PublishUserDeleted(ctx, event); err != nil {
			s.logger.Warn("publish user deleted event failed",
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// ReplaceRoles swaps the target's role set wholesale for the provided ids.
func (s *UserService) ReplaceRoles(ctx context.Context, actorID, targetID string, roleIDs []int64) (domain.Account, error) {
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrUserNotFound
		}
		return domain.Account{}, fmt.Errorf("lookup user: %w", err)
	}

	if _, err := s.resolveRoles(ctx, roleIDs); err != nil {
		return domain.Account{}, err
	}

	if err := s.users.ReplaceRoles(ctx, targetID, roleIDs); err != nil {
		return domain.Account{}, fmt.Errorf("replace roles: %w", err)
	}

	replacedAt := time.Now().UTC()
	s.recordAudit(ctx, actorID, "replace_roles")
	if s.publisher != nil {
		event := domain.RolesReplacedEvent{
			UserID:     targetID,
			RoleIDs:    roleIDs,
			ReplacedBy: actorID,
			ReplacedAt: replacedAt,
		}
		if err := s.publisher.PublishRolesReplaced(ctx, event); err != nil {
			s.logger.Warn("publish roles replaced event failed",
				zap.String("user_id", targetID),
				zap.Error(err),
			)
		}
	}

	return s.Get(ctx, targetID)
}

func (s *UserService) resolveRoles(ctx context.Context, roleIDs []int64) ([]domain.Role, error) {
	resolved := make([]domain.Role, 0, len(roleIDs))
	for _, roleID := range roleIDs {
		role, err := s.roles.GetByID(ctx, roleID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("role %d: %w", roleID, ErrRoleNotFound)
			}
			return nil, fmt.Errorf("lookup role %d: %w", roleID, err)
		}
		resolved = append(resolved, *role)
	}
	return resolved, nil
}

func (s *UserService) recordAudit(ctx context.Context, userID, action string) {
	if s.audit == nil {
		return
	}
	entry := domain.AuditEntry{Action: action, CreatedAt: time.Now().UTC()}
	if userID != "" {
		entry.UserID = &userID
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}
