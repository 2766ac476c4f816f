package domain

import "time"

// User mirrors the persisted representation in the users table.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}

// Sanitized returns a copy of the user with credential material removed.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// Account bundles a user with its resolved role names for authorization decisions.
type Account struct {
	User  User
	Roles []Role
}

// RoleNames returns the names of the account's roles.
func (a Account) RoleNames() []string {
	if len(a.Roles) == 0 {
		return nil
	}
	names := make([]string, 0, len(a.Roles))
	for _, role := range a.Roles {
		if role.Name != "" {
			names = append(names, role.Name)
		}
	}
	return names
}
