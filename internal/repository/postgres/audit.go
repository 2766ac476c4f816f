package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/attack-monitor/iam-service/internal/core/domain"
	"github.com/attack-monitor/iam-service/internal/core/port"
)

// AuditRepository persists audit trail entries in PostgreSQL.
type AuditRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAuditRepository constructs a PostgreSQL-backed audit repository.
func NewAuditRepository(exec pgExecutor) *AuditRepository {
	repo := &AuditRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Record appends an audit entry.
func (r *AuditRepository) Record(ctx context.Context, entry domain.AuditEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	stmt, args, err := r.builder.Insert("iam.audit_log").
		Columns("user_id", "action", "created_at").
		Values(entry.UserID, entry.Action, createdAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit entry sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

// ListByUser returns the most recent audit entries for a user.
func (r *AuditRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.AuditEntry, error) {
	query := r.builder.Select("id", "user_id", "action", "created_at").
		From("iam.audit_log").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC")

	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list audit entries sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0)
	for rows.Next() {
		var (
			entry  domain.AuditEntry
			userID sql.NullString
		)
		if err := rows.Scan(&entry.ID, &userID, &entry.Action, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if userID.Valid {
			val := userID.String
			entry.UserID = &val
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, nil
}

var _ port.AuditRepository = (*AuditRepository)(nil)
