package usecase

import "strings"

// Authorizer decides whether an authenticated actor may act on a target user.
// Admin roles bypass every check; permission entities are deliberately not
// consulted on that path.
type Authorizer interface {
	IsAdmin(roleNames []string) bool
	CanAccessUser(actorID string, actorRoles []string, targetUserID string) bool
}

// RoleAuthorizer grants access by role name with a self-ownership fallback.
type RoleAuthorizer struct {
	adminRoles map[string]struct{}
}

// NewRoleAuthorizer constructs an authorizer trusting the provided admin role
// names. Matching is case-insensitive.
func NewRoleAuthorizer(adminRoleNames []string) *RoleAuthorizer {
	adminRoles := make(map[string]struct{}, len(adminRoleNames))
	for _, name := range adminRoleNames {
		trimmed := strings.ToLower(strings.TrimSpace(name))
		if trimmed != "" {
			adminRoles[trimmed] = struct{}{}
		}
	}
	return &RoleAuthorizer{adminRoles: adminRoles}
}

// IsAdmin reports whether any of the role names carries the admin bypass.
func (a *RoleAuthorizer) IsAdmin(roleNames []string) bool {
	for _, name := range roleNames {
		if _, ok := a.adminRoles[strings.ToLower(strings.TrimSpace(name))]; ok {
			return true
		}
	}
	return false
}

// CanAccessUser applies the precedence admin first, then self-ownership.
func (a *RoleAuthorizer) CanAccessUser(actorID string, actorRoles []string, targetUserID string) bool {
	if a.IsAdmin(actorRoles) {
		return true
	}
	return actorID != "" && actorID == targetUserID
}

var _ Authorizer = (*RoleAuthorizer)(nil)
