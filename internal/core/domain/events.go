package domain

import "time"

// UserRegisteredEvent represents the payload for iam.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	Username     string
	RegisteredAt time.Time
	Roles        []string
	Metadata     map[string]any
}

// PasswordChangedEvent represents the payload for iam.user.password.changed messages.
type PasswordChangedEvent struct {
	EventID   string
	UserID    string
	ChangedAt time.Time
	ChangedBy string
	Forced    bool
	Metadata  map[string]any
}

// RolesReplacedEvent represents the payload for iam.user.roles.replaced messages.
type RolesReplacedEvent struct {
	EventID    string
	UserID     string
	RoleIDs    []int64
	ReplacedBy string
	ReplacedAt time.Time
	Metadata   map[string]any
}

// UserDeletedEvent represents the payload for iam.user.deleted messages.
type UserDeletedEvent struct {
	EventID   string
	UserID    string
	Username  string
	DeletedBy string
	DeletedAt time.Time
	Metadata  map[string]any
}
