package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/attack-monitor/iam-service/internal/core/domain"
	"github.com/attack-monitor/iam-service/internal/core/port"
	"github.com/attack-monitor/iam-service/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(exec pgExecutor) *UserRepository {
	repo := &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new user row. The unique index on username turns a
// duplicate insert into repository.ErrConflict, so concurrent registrations
// of the same username resolve to exactly one winner.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	stmt, args, err := r.builder.Insert("iam.users").
		Columns("id", "username", "password_hash", "is_active", "created_at").
		Values(user.ID, user.Username, user.PasswordHash, user.IsActive, user.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// CreateWithRoles inserts a new user row together with its initial role
// assignments in a single transaction, so a failed assignment never leaves
// behind a role-less account. Duplicate usernames map to repository.ErrConflict.
func (r *UserRepository) CreateWithRoles(ctx context.Context, user domain.User, roleIDs []int64) error {
	if r.pool == nil {
		return r.createWithRoles(ctx, r.exec, user, roleIDs)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create user tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.createWithRoles(ctx, tx, user, roleIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create user tx: %w", err)
	}

	return nil
}

func (r *UserRepository) createWithRoles(ctx context.Context, exec pgExecutor, user domain.User, roleIDs []int64) error {
	stmt, args, err := r.builder.Insert("iam.users").
		Columns("id", "username", "password_hash", "is_active", "created_at").
		Values(user.ID, user.Username, user.PasswordHash, user.IsActive, user.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := exec.Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	if len(roleIDs) == 0 {
		return nil
	}

	insert := r.builder.Insert("iam.user_roles").Columns("user_id", "role_id")
	for _, roleID := range roleIDs {
		insert = insert.Values(user.ID, roleID)
	}

	insertStmt, insertArgs, err := insert.Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("build assign user roles sql: %w", err)
	}

	if _, err := exec.Exec(ctx, insertStmt, insertArgs...); err != nil {
		return fmt.Errorf("assign user roles: %w", err)
	}

	return nil
}

func (r *UserRepository) getBy(ctx context.Context, pred squirrel.Eq, label string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select("id", "username", "password_hash", "is_active", "created_at").
		From("iam.users").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s sql: %w", label, err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.IsActive,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan %s: %w", label, err)
	}

	return &user, nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id}, "user by id")
}

// GetByUsername retrieves a user by its unique username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"username": username}, "user by username")
}

// List returns users ordered by creation time with pagination.
func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]domain.User, error) {
	query := r.builder.
		Select("id", "username", "password_hash", "is_active", "created_at").
		From("iam.users").
		OrderBy("created_at ASC", "id ASC")

	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	if offset > 0 {
		query = query.Offset(uint64(offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list users sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.PasswordHash,
			&user.IsActive,
			&user.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// Count returns the total number of users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	stmt, args, err := r.builder.Select("COUNT(*)").
		From("iam.users").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count users sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("scan users count: %w", err)
	}

	return int(count), nil
}

// Update applies the non-nil fields of the patch to an existing user.
func (r *UserRepository) Update(ctx context.Context, id string, patch port.UserPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	query := r.builder.Update("iam.users")
	if patch.Username != nil {
		query = query.Set("username", *patch.Username)
	}
	if patch.PasswordHash != nil {
		query = query.Set("password_hash", *patch.PasswordHash)
	}
	if patch.IsActive != nil {
		query = query.Set("is_active", *patch.IsActive)
	}

	stmt, args, err := query.Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build update user sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePassword replaces a user's password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	stmt, args, err := r.builder.Update("iam.users").
		Set("password_hash", passwordHash).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a user row. Role assignments cascade through the
// user_roles foreign key.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("iam.users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete user sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListRoles returns the roles assigned to the provided user.
func (r *UserRepository) ListRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	stmt, args, err := r.builder.
		Select("r.id", "r.name", "r.description", "r.created_at").
		From("iam.roles r").
		Join("iam.user_roles ur ON ur.role_id = r.id").
		Where(squirrel.Eq{"ur.user_id": userID}).
		OrderBy("r.name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list user roles sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query user roles: %w", err)
	}
	defer rows.Close()

	roles := make([]domain.Role, 0)
	for rows.Next() {
		var (
			role        domain.Role
			description sql.NullString
		)
		if err := rows.Scan(&role.ID, &role.Name, &description, &role.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user role: %w", err)
		}
		if description.Valid {
			val := description.String
			role.Description = &val
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user roles: %w", err)
	}

	return roles, nil
}

// ReplaceRoles swaps a user's role assignments for the provided set in a
// single transaction. An empty set clears all assignments.
func (r *UserRepository) ReplaceRoles(ctx context.Context, userID string, roleIDs []int64) error {
	if r.pool == nil {
		return r.replaceRoles(ctx, r.exec, userID, roleIDs)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace roles tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.replaceRoles(ctx, tx, userID, roleIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace roles tx: %w", err)
	}

	return nil
}

func (r *UserRepository) replaceRoles(ctx context.Context, exec pgExecutor, userID string, roleIDs []int64) error {
	deleteStmt, deleteArgs, err := r.builder.Delete("iam.user_roles").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear user roles sql: %w", err)
	}

	if _, err := exec.Exec(ctx, deleteStmt, deleteArgs...); err != nil {
		return fmt.Errorf("clear user roles: %w", err)
	}

	if len(roleIDs) == 0 {
		return nil
	}

	insert := r.builder.Insert("iam.user_roles").Columns("user_id", "role_id")
	for _, roleID := range roleIDs {
		insert = insert.Values(userID, roleID)
	}

	insertStmt, insertArgs, err := insert.Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("build assign user roles sql: %w", err)
	}

	if _, err := exec.Exec(ctx, insertStmt, insertArgs...); err != nil {
		return fmt.Errorf("assign user roles: %w", err)
	}

	return nil
}

var _ port.UserRepository = (*UserRepository)(nil)
