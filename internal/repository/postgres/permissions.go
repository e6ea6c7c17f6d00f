package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alischiller/authz-service/internal/core/domain"
	"github.com/alischiller/authz-service/internal/core/port"
	"github.com/alischiller/authz-service/internal/repository"
)

var permissionColumns = []string{"id", "name", "perm_group", "perm_type", "description", "is_active"}

// PermissionRepository implements port.PermissionRepository over PostgreSQL.
type PermissionRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPermissionRepository constructs a permission repository instance.
func NewPermissionRepository(pool *pgxpool.Pool) *PermissionRepository {
	return &PermissionRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// NewPermissionRepositoryWithExecutor constructs a repository over any
// executor, primarily for tests.
func NewPermissionRepositoryWithExecutor(exec pgExecutor) *PermissionRepository {
	return &PermissionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository configured to execute within the provided transaction.
func (r *PermissionRepository) WithTx(tx pgx.Tx) *PermissionRepository {
	if tx == nil {
		return r
	}
	return &PermissionRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new permission row.
func (r *PermissionRepository) Create(ctx context.Context, permission domain.Permission) error {
	stmt, args, err := r.builder.Insert("authz.permissions").
		Columns(permissionColumns...).
		Values(
			permission.ID,
			permission.Name,
			permission.Group,
			permission.Type,
			permission.Description,
			permission.IsActive,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert permission sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert permission: %w", translateError(err))
	}

	return nil
}

// GetByID retrieves a permission by its ID.
func (r *PermissionRepository) GetByID(ctx context.Context, id string) (*domain.Permission, error) {
	stmt, args, err := r.builder.Select(permissionColumns...).
		From("authz.permissions").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select permission by id sql: %w", err)
	}

	return scanPermission(r.exec.QueryRow(ctx, stmt, args...), "by id")
}

// GetByName retrieves a permission by its unique name. Names are
// matched case-insensitively, mirroring how membership checks compare
// them.
func (r *PermissionRepository) GetByName(ctx context.Context, name string) (*domain.Permission, error) {
	stmt, args, err := r.builder.Select(permissionColumns...).
		From("authz.permissions").
		Where(squirrel.Expr("LOWER(name) = LOWER(?)", name)).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select permission by name sql: %w", err)
	}

	return scanPermission(r.exec.QueryRow(ctx, stmt, args...), "by name")
}

// ExistsByName reports whether a permission with the given name exists,
// ignoring case, so "Article.Publish" and "article.publish" cannot
// coexist.
func (r *PermissionRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	stmt, args, err := r.builder.Select("1").
		From("authz.permissions").
		Where(squirrel.Expr("LOWER(name) = LOWER(?)", name)).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build permission exists sql: %w", err)
	}

	var one int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("scan permission exists: %w", err)
	}

	return true, nil
}

// List retrieves all permissions ordered by group then name.
func (r *PermissionRepository) List(ctx context.Context) ([]domain.Permission, error) {
	return r.list(ctx, nil)
}

// ListActive retrieves only active permissions.
func (r *PermissionRepository) ListActive(ctx context.Context) ([]domain.Permission, error) {
	return r.list(ctx, squirrel.Eq{"is_active": true})
}

// ListByGroup retrieves permissions belonging to the given group.
func (r *PermissionRepository) ListByGroup(ctx context.Context, group string) ([]domain.Permission, error) {
	return r.list(ctx, squirrel.Eq{"perm_group": group})
}

func (r *PermissionRepository) list(ctx context.Context, where squirrel.Sqlizer) ([]domain.Permission, error) {
	query := r.builder.Select(permissionColumns...).
		From("authz.permissions").
		OrderBy("perm_group ASC", "name ASC")
	if where != nil {
		query = query.Where(where)
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list permissions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}
	defer rows.Close()

	return collectPermissions(rows)
}

// ListByRole returns permissions attached to a role through live
// role_permissions rows.
func (r *PermissionRepository) ListByRole(ctx context.Context, roleID string) ([]domain.Permission, error) {
	stmt, args, err := r.builder.Select(prefixedPermissionColumns()...).
		From("authz.permissions p").
		Join("authz.role_permissions rp ON rp.permission_id = p.id").
		Where(squirrel.Eq{"rp.role_id": roleID, "rp.is_deleted": false}).
		OrderBy("p.name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build permissions by role sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query permissions by role: %w", err)
	}
	defer rows.Close()

	return collectPermissions(rows)
}

// ListByUser returns distinct permissions held by the user, either
// through live role grants or direct user permissions.
func (r *PermissionRepository) ListByUser(ctx context.Context, userID string) ([]domain.Permission, error) {
	stmt := `
		SELECT DISTINCT p.id, p.name, p.perm_group, p.perm_type, p.description, p.is_active
		FROM authz.permissions p
		JOIN authz.role_permissions rp ON rp.permission_id = p.id AND rp.is_deleted = false
		JOIN authz.user_roles ur ON ur.role_id = rp.role_id AND ur.is_deleted = false
		WHERE ur.user_id = $1
		UNION
		SELECT p.id, p.name, p.perm_group, p.perm_type, p.description, p.is_active
		FROM authz.permissions p
		JOIN authz.user_permissions up ON up.permission_id = p.id AND up.is_deleted = false
		WHERE up.user_id = $1
		ORDER BY name ASC`

	rows, err := r.exec.Query(ctx, stmt, userID)
	if err != nil {
		return nil, fmt.Errorf("query permissions by user: %w", err)
	}
	defer rows.Close()

	return collectPermissions(rows)
}

// Update modifies an existing permission.
func (r *PermissionRepository) Update(ctx context.Context, permission domain.Permission) error {
	stmt, args, err := r.builder.Update("authz.permissions").
		Set("name", permission.Name).
		Set("perm_group", permission.Group).
		Set("perm_type", permission.Type).
		Set("description", permission.Description).
		Set("is_active", permission.IsActive).
		Where(squirrel.Eq{"id": permission.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update permission sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update permission: %w", translateError(err))
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetActive toggles a permission's active flag.
func (r *PermissionRepository) SetActive(ctx context.Context, id string, active bool) error {
	stmt, args, err := r.builder.Update("authz.permissions").
		Set("is_active", active).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set permission active sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set permission active: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a permission by ID.
func (r *PermissionRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("authz.permissions").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete permission sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func prefixedPermissionColumns() []string {
	return []string{"p.id", "p.name", "p.perm_group", "p.perm_type", "p.description", "p.is_active"}
}

func scanPermission(row pgx.Row, label string) (*domain.Permission, error) {
	var (
		permission  domain.Permission
		description sql.NullString
	)

	if err := row.Scan(
		&permission.ID,
		&permission.Name,
		&permission.Group,
		&permission.Type,
		&description,
		&permission.IsActive,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan permission %s: %w", label, err)
	}

	if description.Valid {
		permission.Description = &description.String
	}

	return &permission, nil
}

func collectPermissions(rows pgx.Rows) ([]domain.Permission, error) {
	permissions := make([]domain.Permission, 0)
	for rows.Next() {
		var (
			permission  domain.Permission
			description sql.NullString
		)
		if err := rows.Scan(
			&permission.ID,
			&permission.Name,
			&permission.Group,
			&permission.Type,
			&description,
			&permission.IsActive,
		); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		if description.Valid {
			desc := description.String
			permission.Description = &desc
		}
		permissions = append(permissions, permission)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permissions: %w", err)
	}

	return permissions, nil
}

var _ port.PermissionRepository = (*PermissionRepository)(nil)
