package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/attack-monitor/iam-service/internal/core/domain"
	"github.com/attack-monitor/iam-service/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: middleware.GetTraceID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserSummary describes a minimal view of a user returned by the API.
type UserSummary struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	IsActive  bool      `json:"is_active"`
	Roles     []string  `json:"roles,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterRequest defines the account registration payload.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse contains the created account.
type RegisterResponse struct {
	User UserSummary `json:"user"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
	User        UserSummary `json:"user"`
}

// RefreshResponse contains the token issued by the refresh endpoint.
type RefreshResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
	User        UserSummary `json:"user"`
}

// VerifyTokenResponse returns the identity resolved from a bearer token.
type VerifyTokenResponse struct {
	Valid bool        `json:"valid"`
	User  UserSummary `json:"user"`
}

// DebugTokenRequest carries a token for diagnostic inspection.
type DebugTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// DebugTokenResponse reports the token state without resolving the account.
type DebugTokenResponse struct {
	State     string   `json:"state"`
	Subject   string   `json:"subject,omitempty"`
	UserID    string   `json:"user_id,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	ExpiresAt *string  `json:"expires_at,omitempty"`
}

// UserListResponse wraps a page of users.
type UserListResponse struct {
	Users  []UserSummary `json:"users"`
	Total  int           `json:"total"`
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
}

// UserCreateRequest defines the admin user creation payload.
type UserCreateRequest struct {
	Username string  `json:"username" binding:"required"`
	Password string  `json:"password" binding:"required"`
	IsActive *bool   `json:"is_active,omitempty"`
	RoleIDs  []int64 `json:"role_ids,omitempty"`
}

// UserUpdateRequest defines the partial user update payload.
type UserUpdateRequest struct {
	Username *string `json:"username,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// PasswordChangeRequest captures a password change request body. The current
// password is required on the self path and ignored on the admin path.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// UserRolesRequest replaces the full role set of a user.
type UserRolesRequest struct {
	RoleIDs []int64 `json:"role_ids" binding:"required"`
}

// RoleRequest defines the payload for creating or updating a role.
type RoleRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description,omitempty"`
}

// RolePayload summarizes a role entity.
type RolePayload struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// RoleListResponse wraps multiple roles.
type RoleListResponse struct {
	Roles []RolePayload `json:"roles"`
}

// RolePermissionsRequest replaces the permission set attached to a role.
type RolePermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids" binding:"required"`
}

// PermissionRequest defines the payload for creating or updating a permission.
type PermissionRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description,omitempty"`
}

// PermissionPayload summarizes a permission entity.
type PermissionPayload struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// PermissionListResponse wraps multiple permissions.
type PermissionListResponse struct {
	Permissions []PermissionPayload `json:"permissions"`
}

// AuditEntryPayload describes one recorded security-relevant action.
type AuditEntryPayload struct {
	ID        int64     `json:"id"`
	UserID    *string   `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditListResponse wraps audit entries for a user.
type AuditListResponse struct {
	Entries []AuditEntryPayload `json:"entries"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// newUserSummary converts a domain account to a summary suitable for API responses.
func newUserSummary(account domain.Account) UserSummary {
	return UserSummary{
		ID:        account.User.ID,
		Username:  account.User.Username,
		IsActive:  account.User.IsActive,
		Roles:     account.RoleNames(),
		CreatedAt: account.User.CreatedAt,
	}
}

func newRolePayload(role domain.Role) RolePayload {
	return RolePayload{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
	}
}

func newPermissionPayload(permission domain.Permission) PermissionPayload {
	return PermissionPayload{
		ID:          permission.ID,
		Name:        permission.Name,
		Description: permission.Description,
	}
}
