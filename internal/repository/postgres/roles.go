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

// RoleRepository implements role persistence operations.
type RoleRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRoleRepository constructs a PostgreSQL-backed role repository.
func NewRoleRepository(exec pgExecutor) *RoleRepository {
	repo := &RoleRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository configured to execute within the provided transaction.
func (r *RoleRepository) WithTx(tx pgx.Tx) *RoleRepository {
	if tx == nil {
		return r
	}
	return &RoleRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new role and returns its generated identifier.
func (r *RoleRepository) Create(ctx context.Context, role domain.Role) (int64, error) {
	stmt, args, err := r.builder.Insert("iam.roles").
		Columns("name", "description").
		Values(role.Name, role.Description).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert role sql: %w", err)
	}

	var id int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, repository.ErrConflict
		}
		return 0, fmt.Errorf("insert role: %w", err)
	}

	return id, nil
}

func (r *RoleRepository) getBy(ctx context.Context, pred squirrel.Eq, label string) (*domain.Role, error) {
	stmt, args, err := r.builder.Select("id", "name", "description", "created_at").
		From("iam.roles").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s sql: %w", label, err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		role        domain.Role
		description sql.NullString
	)

	if err := row.Scan(&role.ID, &role.Name, &description, &role.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan %s: %w", label, err)
	}

	if description.Valid {
		val := description.String
		role.Description = &val
	}

	return &role, nil
}

// GetByID retrieves a role by identifier.
func (r *RoleRepository) GetByID(ctx context.Context, id int64) (*domain.Role, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id}, "role by id")
}

// GetByName retrieves a role by its unique name.
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	return r.getBy(ctx, squirrel.Eq{"name": name}, "role by name")
}

// List retrieves all roles sorted by name.
func (r *RoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	stmt, args, err := r.builder.Select("id", "name", "description", "created_at").
		From("iam.roles").
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list roles sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	roles := make([]domain.Role, 0)
	for rows.Next() {
		var (
			role        domain.Role
			description sql.NullString
		)
		if err := rows.Scan(&role.ID, &role.Name, &description, &role.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		if description.Valid {
			val := description.String
			role.Description = &val
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}

	return roles, nil
}

// Update applies the non-nil fields of the patch to an existing role.
func (r *RoleRepository) Update(ctx context.Context, id int64, patch port.RolePatch) error {
	if patch.Name == nil && patch.Description == nil {
		return nil
	}

	query := r.builder.Update("iam.roles")
	if patch.Name != nil {
		query = query.Set("name", *patch.Name)
	}
	if patch.Description != nil {
		query = query.Set("description", *patch.Description)
	}

	stmt, args, err := query.Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build update role sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("update role: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a role. Assignments cascade through foreign keys.
func (r *RoleRepository) Delete(ctx context.Context, id int64) error {
	stmt, args, err := r.builder.Delete("iam.roles").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete role sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListPermissions returns the permissions attached to a role.
func (r *RoleRepository) ListPermissions(ctx context.Context, roleID int64) ([]domain.Permission, error) {
	stmt, args, err := r.builder.
		Select("p.id", "p.name", "p.description", "p.created_at").
		From("iam.permissions p").
		Join("iam.role_permissions rp ON rp.permission_id = p.id").
		Where(squirrel.Eq{"rp.role_id": roleID}).
		OrderBy("p.name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list role permissions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query role permissions: %w", err)
	}
	defer rows.Close()

	permissions := make([]domain.Permission, 0)
	for rows.Next() {
		var (
			permission  domain.Permission
			description sql.NullString
		)
		if err := rows.Scan(&permission.ID, &permission.Name, &description, &permission.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan role permission: %w", err)
		}
		if description.Valid {
			val := description.String
			permission.Description = &val
		}
		permissions = append(permissions, permission)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate role permissions: %w", err)
	}

	return permissions, nil
}

// ReplacePermissions swaps a role's permission set in a single transaction.
func (r *RoleRepository) ReplacePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if r.pool == nil {
		return r.replacePermissions(ctx, r.exec, roleID, permissionIDs)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace permissions tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.replacePermissions(ctx, tx, roleID, permissionIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace permissions tx: %w", err)
	}

	return nil
}

func (r *RoleRepository) replacePermissions(ctx context.Context, exec pgExecutor, roleID int64, permissionIDs []int64) error {
	deleteStmt, deleteArgs, err := r.builder.Delete("iam.role_permissions").
		Where(squirrel.Eq{"role_id": roleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear role permissions sql: %w", err)
	}

	if _, err := exec.Exec(ctx, deleteStmt, deleteArgs...); err != nil {
		return fmt.Errorf("clear role permissions: %w", err)
	}

	if len(permissionIDs) == 0 {
		return nil
	}

	insert := r.builder.Insert("iam.role_permissions").Columns("role_id", "permission_id")
	for _, permissionID := range permissionIDs {
		insert = insert.Values(roleID, permissionID)
	}

	insertStmt, insertArgs, err := insert.Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("build assign role permissions sql: %w", err)
	}

	if _, err := exec.Exec(ctx, insertStmt, insertArgs...); err != nil {
		return fmt.Errorf("assign role permissions: %w", err)
	}

	return nil
}

var _ port.RoleRepository = (*RoleRepository)(nil)
