package domain

import "time"

// Default role names seeded at bootstrap.
const (
	RoleNameUser  = "user"
	RoleNameAdmin = "admin"
)

// Role defines a named group of privileges.
type Role struct {
	ID          int64
	Name        string
	Description *string
	CreatedAt   time.Time
}

// Permission defines a named capability grouped into roles.
type Permission struct {
	ID          int64
	Name        string
	Description *string
	CreatedAt   time.Time
}

// UserRole assigns a role to a user.
type UserRole struct {
	UserID string
	RoleID int64
}

// RolePermission links a role with a permission.
type RolePermission struct {
	RoleID       int64
	PermissionID int64
}
