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
	// ErrUsernameTaken indicates another account already holds the username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrPasswordPolicyViolation indicates the password does not satisfy the configured policy.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
)

// RegistrationService handles new account onboarding.
type RegistrationService struct {
	users             port.UserRepository
	roles             port.RoleRepository
	publisher         port.EventPublisher
	audit             port.AuditRepository
	passwordValidator *security.PasswordValidator
	logger            *zap.Logger
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(
	users port.UserRepository,
	roles port.RoleRepository,
	publisher port.EventPublisher,
	audit port.AuditRepository,
	validator *security.PasswordValidator,
	logger *zap.Logger,
) *RegistrationService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		users:             users,
		roles:             roles,
		publisher:         publisher,
		audit:             audit,
		passwordValidator: validator,
		logger:            logger,
	}
}

// Register creates a new active account holding the default role. The unique
// username constraint decides races between concurrent registrations.
func (s *RegistrationService) Register(ctx context.Context, username, password string) (domain.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.Account{}, fmt.Errorf("username is required")
	}
	if password == "" {
		return domain.Account{}, fmt.Errorf("password is required")
	}

	if err := s.passwordValidator.Validate(password); err != nil {
		return domain.Account{}, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
	}

	// Resolve the default role before touching the users table so the insert
	// and the role assignment land in the same transaction.
	var roleIDs []int64
	account := domain.Account{User: user.Sanitized()}

	defaultRole, err := s.roles.GetByName(ctx, domain.RoleNameUser)
	switch {
	case err == nil:
		roleIDs = []int64{defaultRole.ID}
		account.Roles = []domain.Role{*defaultRole}
	case errors.Is(err, repository.ErrNotFound):
		s.logger.Warn("default role missing, user created without roles",
			zap.String("role", domain.RoleNameUser),
		)
	default:
		return domain.Account{}, fmt.Errorf("lookup default role: %w", err)
	}

	if err := s.users.CreateWithRoles(ctx, user, roleIDs); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.Account{}, ErrUsernameTaken
		}
		return domain.Account{}, fmt.Errorf("create user: %w", err)
	}

	s.recordAudit(ctx, user.ID, "register")
	s.publishRegistered(ctx, account, now)

	return account, nil
}

func (s *RegistrationService) publishRegistered(ctx context.Context, account domain.Account, at time.Time) {
	if s.publisher == nil {
		return
	}
	event := domain.UserRegisteredEvent{
		UserID:       account.User.ID,
		Username:     account.User.Username,
		RegisteredAt: at,
		Roles:        account.RoleNames(),
	}
	if err := s.publisher.PublishUserRegistered(ctx, event); err != nil {
		s.logger.Warn("publish user registered event failed",
			zap.String("user_id", account.User.ID),
			zap.Error(err),
		)
	}
}

func (s *RegistrationService) recordAudit(ctx context.Context, userID, action string) {
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
