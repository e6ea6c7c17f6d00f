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

var roleColumns = []string{"id", "name", "display_name", "description", "is_system", "is_active"}

// RoleRepository implements role persistence operations.
type RoleRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRoleRepository constructs a PostgreSQL-backed role repository.
func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// NewRoleRepositoryWithExecutor constructs a repository over any executor,
// primarily for tests.
func NewRoleRepositoryWithExecutor(exec pgExecutor) *RoleRepository {
	return &RoleRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
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

// Create inserts a new role.
func (r *RoleRepository) Create(ctx context.Context, role domain.Role) error {
	stmt, args, err := r.builder.Insert("authz.roles").
		Columns(roleColumns...).
		Values(role.ID, role.Name, role.DisplayName, role.Description, role.IsSystem, role.IsActive).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert role sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert role: %w", translateError(err))
	}

	return nil
}

// GetByID retrieves a role by its ID.
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	stmt, args, err := r.builder.Select(roleColumns...).
		From("authz.roles").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select role by id sql: %w", err)
	}

	return r.scanRole(r.exec.QueryRow(ctx, stmt, args...), "by id")
}

// GetByName retrieves a role by its unique name. The match ignores
// case; the name-derived cache key is normalized the same way.
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	stmt, args, err := r.builder.Select(roleColumns...).
		From("authz.roles").
		Where(squirrel.Expr("LOWER(name) = LOWER(?)", name)).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select role by name sql: %w", err)
	}

	return r.scanRole(r.exec.QueryRow(ctx, stmt, args...), "by name")
}

// List retrieves all roles sorted by name.
func (r *RoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	return r.list(ctx, squirrel.Sqlizer(nil))
}

// ListActive retrieves only active roles sorted by name.
func (r *RoleRepository) ListActive(ctx context.Context) ([]domain.Role, error) {
	return r.list(ctx, squirrel.Eq{"is_active": true})
}

func (r *RoleRepository) list(ctx context.Context, where squirrel.Sqlizer) ([]domain.Role, error) {
	query := r.builder.Select(roleColumns...).
		From("authz.roles").
		OrderBy("name ASC")
	if where != nil {
		query = query.Where(where)
	}

	stmt, args, err := query.ToSql()
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
		role, err := scanRoleRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}

	return roles, nil
}

// ListByUser returns roles assigned to the user through live user_roles rows.
func (r *RoleRepository) ListByUser(ctx context.Context, userID string) ([]domain.Role, error) {
	stmt, args, err := r.builder.Select(
		"r.id", "r.name", "r.display_name", "r.description", "r.is_system", "r.is_active",
	).
		From("authz.roles r").
		Join("authz.user_roles ur ON ur.role_id = r.id").
		Where(squirrel.Eq{"ur.user_id": userID, "ur.is_deleted": false}).
		OrderBy("r.name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build roles by user sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query roles by user: %w", err)
	}
	defer rows.Close()

	roles := make([]domain.Role, 0)
	for rows.Next() {
		role, err := scanRoleRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan role by user: %w", err)
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles by user: %w", err)
	}

	return roles, nil
}

// Update modifies an existing role.
func (r *RoleRepository) Update(ctx context.Context, role domain.Role) error {
	stmt, args, err := r.builder.Update("authz.roles").
		Set("name", role.Name).
		Set("display_name", role.DisplayName).
		Set("description", role.Description).
		Set("is_active", role.IsActive).
		Where(squirrel.Eq{"id": role.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update role sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update role: %w", translateError(err))
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetActive toggles a role's active flag.
func (r *RoleRepository) SetActive(ctx context.Context, id string, active bool) error {
	stmt, args, err := r.builder.Update("authz.roles").
		Set("is_active", active).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set role active sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set role active: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a role by ID (cascades to grant rows via FK).
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("authz.roles").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete role sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *RoleRepository) scanRole(row pgx.Row, label string) (*domain.Role, error) {
	var (
		role        domain.Role
		description sql.NullString
	)

	if err := row.Scan(&role.ID, &role.Name, &role.DisplayName, &description, &role.IsSystem, &role.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan role %s: %w", label, err)
	}

	if description.Valid {
		role.Description = &description.String
	}

	return &role, nil
}

func scanRoleRow(rows pgx.Rows) (domain.Role, error) {
	var (
		role        domain.Role
		description sql.NullString
	)

	if err := rows.Scan(&role.ID, &role.Name, &role.DisplayName, &description, &role.IsSystem, &role.IsActive); err != nil {
		return domain.Role{}, err
	}

	if description.Valid {
		role.Description = &description.String
	}

	return role, nil
}

var _ port.RoleRepository = (*RoleRepository)(nil)
