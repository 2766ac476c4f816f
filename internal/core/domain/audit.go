package domain

import "time"

// AuditEntry records a security-relevant action for later inspection.
type AuditEntry struct {
	ID        int64
	UserID    *string
	Action    string
	CreatedAt time.Time
}
