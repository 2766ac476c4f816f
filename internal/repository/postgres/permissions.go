package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/attack-monitor/iam-service/internal/core/domain"
	"github.com/attack-monitor/iam-service/internal/core/port"
	"github.com/attack-monitor/iam-service/internal/repository"
)

// PermissionRepository implements permission persistence operations.
type PermissionRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPermissionRepository constructs a PostgreSQL-backed permission repository.
func NewPermissionRepository(exec pgExecutor) *PermissionRepository {
	repo := &PermissionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Create inserts a new permission and returns its generated identifier.
func (r *PermissionRepository) Create(ctx context.Context, permission domain.Permission) (int64, error) {
	stmt, args, err := r.builder.Insert("iam.permissions").
		Columns("name", "description").
		Values(permission.Name, permission.Description).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert permission sql: %w", err)
	}

	var id int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, repository.ErrConflict
		}
		return 0, fmt.Errorf("insert permission: %w", err)
	}

	return id, nil
}

func (r *PermissionRepository) getBy(ctx context.Context, pred squirrel.Eq, label string) (*domain.Permission, error) {
	stmt, args, err := r.builder.Select("id", "name", "description", "created_at").
		From("iam.permissions").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s sql: %w", label, err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		permission  domain.Permission
		description sql.NullString
	)

	if err := row.Scan(&permission.ID, &permission.Name, &description, &permission.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan %s: %w", label, err)
	}

	if description.Valid {
		val := description.String
		permission.Description = &val
	}

	return &permission, nil
}

// GetByID retrieves a permission by identifier.
func (r *PermissionRepository) GetByID(ctx context.Context, id int64) (*domain.Permission, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id}, "permission by id")
}

// GetByName retrieves a permission by its unique name.
func (r *PermissionRepository) GetByName(ctx context.Context, name string) (*domain.Permission, error) {
	return r.getBy(ctx, squirrel.Eq{"name": name}, "permission by name")
}

// List retrieves all permissions sorted by name.
func (r *PermissionRepository) List(ctx context.Context) ([]domain.Permission, error) {
	stmt, args, err := r.builder.Select("id", "name", "description", "created_at").
		From("iam.permissions").
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list permissions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}
	defer rows.Close()

	permissions := make([]domain.Permission, 0)
	for rows.Next() {
		var (
			permission  domain.Permission
			description sql.NullString
		)
		if err := rows.Scan(&permission.ID, &permission.Name, &description, &permission.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		if description.Valid {
			val := description.String
			permission.Description = &val
		}
		permissions = append(permissions, permission)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permissions: %w", err)
	}

	return permissions, nil
}

// Update applies the non-nil fields of the patch to an existing permission.
func (r *PermissionRepository) Update(ctx context.Context, id int64, patch port.PermissionPatch) error {
	if patch.Name == nil && patch.Description == nil {
		return nil
	}

	query := r.builder.Update("iam.permissions")
	if patch.Name != nil {
		query = query.Set("name", *patch.Name)
	}
	if patch.Description != nil {
		query = query.Set("description", *patch.Description)
	}

	stmt, args, err := query.Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build update permission sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("update permission: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a permission. Role attachments cascade through foreign keys.
func (r *PermissionRepository) Delete(ctx context.Context, id int64) error {
	stmt, args, err := r.builder.Delete("iam.permissions").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete permission sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.PermissionRepository = (*PermissionRepository)(nil)
