package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/attack-monitor/iam-service/internal/core/domain"
	"github.com/attack-monitor/iam-service/internal/core/port"
	"github.com/attack-monitor/iam-service/internal/infra/security"
	"github.com/attack-monitor/iam-service/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the provided username or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount indicates the account is deactivated.
	ErrInactiveAccount = errors.New("account is not active")
	// ErrInvalidAccessToken indicates the provided access token is malformed or signature validation failed.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the provided access token has expired.
	ErrExpiredAccessToken = errors.New("access token expired")
)

// TokenState classifies a token for the debug endpoint.
type TokenState string

const (
	TokenStateValid   TokenState = "valid"
	TokenStateExpired TokenState = "expired"
	TokenStateInvalid TokenState = "invalid"
)

// TokenStatus reports the diagnostic classification of a presented token.
type TokenStatus struct {
	State     TokenState
	Subject   string
	UserID    string
	Roles     []string
	ExpiresAt *time.Time
}

// AuthService coordinates authentication flows.
type AuthService struct {
	users  port.UserRepository
	tokens *security.TokenService
	audit  port.AuditRepository
	logger *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users port.UserRepository, tokens *security.TokenService, audit port.AuditRepository, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, tokens: tokens, audit: audit, logger: logger}
}

// Authenticate validates credentials and issues an access token. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (string, domain.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", domain.Account{}, fmt.Errorf("username is required")
	}
	if password == "" {
		return "", domain.Account{}, fmt.Errorf("password is required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", domain.Account{}, ErrInvalidCredentials
		}
		return "", domain.Account{}, fmt.Errorf("lookup user: %w", err)
	}

	if !security.VerifyPassword(password, user.PasswordHash) {
		return "", domain.Account{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		return "", domain.Account{}, ErrInactiveAccount
	}

	roles, err := s.users.ListRoles(ctx, user.ID)
	if err != nil {
		return "", domain.Account{}, fmt.Errorf("list user roles: %w", err)
	}

	account := domain.Account{User: user.Sanitized(), Roles: roles}

	token, err := s.IssueToken(ctx, account)
	if err != nil {
		return "", domain.Account{}, err
	}

	s.recordAudit(ctx, user.ID, "login")

	return token, account, nil
}

// IssueToken issues a session token for the resolved account.
func (s *AuthService) IssueToken(_ context.Context, account domain.Account) (string, error) {
	if account.User.ID == "" {
		return "", fmt.Errorf("user id is required")
	}
	if account.User.Username == "" {
		return "", fmt.Errorf("username is required")
	}

	token, err := s.tokens.Issue(security.SessionTokenOptions{
		Subject: account.User.Username,
		UserID:  account.User.ID,
		Roles:   account.RoleNames(),
	})
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	return token, nil
}

// ParseAccessToken validates a presented token and maps the two failure
// classes onto separate sentinels so callers can tell tampered from expired.
func (s *AuthService) ParseAccessToken(token string) (*security.SessionClaims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, ErrInvalidAccessToken
	}
	if s.tokens.IsExpired(token) {
		return nil, ErrExpiredAccessToken
	}
	return claims, nil
}

// AuthenticateToken resolves the account behind a valid token. A token whose
// subject no longer exists is treated as invalid.
func (s *AuthService) AuthenticateToken(ctx context.Context, token string) (domain.Account, error) {
	claims, err := s.ParseAccessToken(token)
	if err != nil {
		return domain.Account{}, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrInvalidAccessToken
		}
		return domain.Account{}, fmt.Errorf("lookup user: %w", err)
	}

	roles, err := s.users.ListRoles(ctx, user.ID)
	if err != nil {
		return domain.Account{}, fmt.Errorf("list user roles: %w", err)
	}

	return domain.Account{User: user.Sanitized(), Roles: roles}, nil
}

// Refresh exchanges a still-valid token for a brand-new one with a fresh
// expiry. Expired tokens cannot be refreshed.
func (s *AuthService) Refresh(ctx context.Context, token string) (string, domain.Account, error) {
	account, err := s.AuthenticateToken(ctx, token)
	if err != nil {
		return "", domain.Account{}, err
	}

	if !account.User.IsActive {
		return "", domain.Account{}, ErrInactiveAccount
	}

	fresh, err := s.IssueToken(ctx, account)
	if err != nil {
		return "", domain.Account{}, err
	}

	return fresh, account, nil
}

// TokenStatus classifies a presented token as valid, expired, or invalid
// without failing. Expired tokens still expose their claims.
func (s *AuthService) TokenStatus(token string) TokenStatus {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return TokenStatus{State: TokenStateInvalid}
	}

	status := TokenStatus{
		Subject: claims.Subject,
		UserID:  claims.UserID,
		Roles:   claims.Roles,
	}
	if claims.ExpiresAt != nil {
		expiresAt := claims.ExpiresAt.Time.UTC()
		status.ExpiresAt = &expiresAt
	}

	if s.tokens.IsExpired(token) {
		status.State = TokenStateExpired
	} else {
		status.State = TokenStateValid
	}

	return status
}

func (s *AuthService) recordAudit(ctx context.Context, userID, action string) {
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
