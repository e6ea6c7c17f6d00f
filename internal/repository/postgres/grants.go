package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	uuid "github.com/google/uuid"

	"github.com/alischiller/authz-service/internal/core/domain"
	"github.com/alischiller/authz-service/internal/core/port"
	"github.com/alischiller/authz-service/internal/repository"
)

type pgTxExecutor interface {
	pgExecutor
	Begin(ctx context.Context) (pgx.Tx, error)
}

// GrantRepository persists the role-permission-user relationship rows.
// Removals are soft deletes so the audit trail survives until the
// periodic purge.
type GrantRepository struct {
	pool    *pgxpool.Pool
	exec    pgTxExecutor
	builder squirrel.StatementBuilderType
}

// NewGrantRepository constructs a PostgreSQL-backed grant repository.
func NewGrantRepository(pool *pgxpool.Pool) *GrantRepository {
	return &GrantRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// NewGrantRepositoryWithExecutor constructs a repository over any
// transactional executor, primarily for tests.
func NewGrantRepositoryWithExecutor(exec pgTxExecutor) *GrantRepository {
	return &GrantRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateRolePermission inserts a live role-permission grant. A live
// duplicate surfaces as repository.ErrConflict via the partial unique
// index on (role_id, permission_id) WHERE NOT is_deleted.
func (r *GrantRepository) CreateRolePermission(ctx context.Context, grant domain.RolePermission) error {
	stmt, args, err := r.builder.Insert("authz.role_permissions").
		Columns("id", "role_id", "permission_id", "created_at", "is_deleted", "deleted_at").
		Values(grant.ID, grant.RoleID, grant.PermissionID, grant.CreatedAt, grant.IsDeleted, grant.DeletedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert role permission sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert role permission: %w", translateError(err))
	}

	return nil
}

// CreateRolePermissions inserts the grants inside one transaction. A
// failure on any row, including a unique-index conflict, rolls the
// whole batch back.
func (r *GrantRepository) CreateRolePermissions(ctx context.Context, grants []domain.RolePermission) error {
	if len(grants) == 0 {
		return nil
	}

	tx, err := r.exec.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create role permissions: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txRepo := r.withTx(tx)
	for _, grant := range grants {
		if err := txRepo.CreateRolePermission(ctx, grant); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create role permissions: %w", err)
	}

	return nil
}

// RolePermissionExists reports whether a live grant exists for the pair.
func (r *GrantRepository) RolePermissionExists(ctx context.Context, roleID, permissionID string) (bool, error) {
	return r.exists(ctx, "authz.role_permissions", squirrel.Eq{
		"role_id":       roleID,
		"permission_id": permissionID,
		"is_deleted":    false,
	})
}

// ListRolePermissionIDs returns the permission IDs currently granted to the role.
func (r *GrantRepository) ListRolePermissionIDs(ctx context.Context, roleID string) ([]string, error) {
	stmt, args, err := r.builder.Select("permission_id").
		From("authz.role_permissions").
		Where(squirrel.Eq{"role_id": roleID, "is_deleted": false}).
		OrderBy("permission_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list role permission ids sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query role permission ids: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan role permission id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate role permission ids: %w", err)
	}

	return ids, nil
}

// DeleteRolePermission soft-deletes the live grant for the pair.
func (r *GrantRepository) DeleteRolePermission(ctx context.Context, roleID, permissionID string, now time.Time) error {
	return r.softDelete(ctx, "authz.role_permissions", squirrel.Eq{
		"role_id":       roleID,
		"permission_id": permissionID,
		"is_deleted":    false,
	}, now)
}

// ReplaceRolePermissions swaps the full permission set of a role inside
// one transaction: grants missing from the desired set are soft-deleted
// and desired permissions without a live grant are inserted. A failure
// partway through rolls the whole diff back.
func (r *GrantRepository) ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string, now time.Time) error {
	tx, err := r.exec.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace role permissions: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	current, err := r.withTx(tx).ListRolePermissionIDs(ctx, roleID)
	if err != nil {
		return err
	}

	currentSet := make(map[string]struct{}, len(current))
	for _, id := range current {
		currentSet[id] = struct{}{}
	}

	desiredSet := make(map[string]struct{}, len(permissionIDs))
	toAdd := make([]string, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		if _, seen := desiredSet[id]; seen {
			continue
		}
		desiredSet[id] = struct{}{}
		if _, exists := currentSet[id]; !exists {
			toAdd = append(toAdd, id)
		}
	}

	toRemove := make([]string, 0)
	for _, id := range current {
		if _, wanted := desiredSet[id]; !wanted {
			toRemove = append(toRemove, id)
		}
	}

	txRepo := r.withTx(tx)

	if len(toRemove) > 0 {
		if err := txRepo.softDelete(ctx, "authz.role_permissions", squirrel.Eq{
			"role_id":       roleID,
			"permission_id": toRemove,
			"is_deleted":    false,
		}, now); err != nil {
			return err
		}
	}

	for _, permissionID := range toAdd {
		grant := domain.RolePermission{
			ID:           uuid.NewString(),
			RoleID:       roleID,
			PermissionID: permissionID,
			CreatedAt:    now.UTC(),
		}
		if err := txRepo.CreateRolePermission(ctx, grant); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace role permissions: %w", err)
	}

	return nil
}

// CreateUserRole inserts a live user-role assignment.
func (r *GrantRepository) CreateUserRole(ctx context.Context, grant domain.UserRole) error {
	stmt, args, err := r.builder.Insert("authz.user_roles").
		Columns("id", "user_id", "role_id", "created_at", "is_deleted", "deleted_at").
		Values(grant.ID, grant.UserID, grant.RoleID, grant.CreatedAt, grant.IsDeleted, grant.DeletedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user role sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert user role: %w", translateError(err))
	}

	return nil
}

// UserRoleExists reports whether a live assignment exists for the pair.
func (r *GrantRepository) UserRoleExists(ctx context.Context, userID, roleID string) (bool, error) {
	return r.exists(ctx, "authz.user_roles", squirrel.Eq{
		"user_id":    userID,
		"role_id":    roleID,
		"is_deleted": false,
	})
}

// DeleteUserRole soft-deletes the live assignment for the pair.
func (r *GrantRepository) DeleteUserRole(ctx context.Context, userID, roleID string, now time.Time) error {
	return r.softDelete(ctx, "authz.user_roles", squirrel.Eq{
		"user_id":    userID,
		"role_id":    roleID,
		"is_deleted": false,
	}, now)
}

// CreateUserPermission inserts a live direct user-permission grant.
func (r *GrantRepository) CreateUserPermission(ctx context.Context, grant domain.UserPermission) error {
	stmt, args, err := r.builder.Insert("authz.user_permissions").
		Columns("id", "user_id", "permission_id", "created_at", "is_deleted", "deleted_at").
		Values(grant.ID, grant.UserID, grant.PermissionID, grant.CreatedAt, grant.IsDeleted, grant.DeletedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user permission sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert user permission: %w", translateError(err))
	}

	return nil
}

// UserPermissionExists reports whether a live direct grant exists for the pair.
func (r *GrantRepository) UserPermissionExists(ctx context.Context, userID, permissionID string) (bool, error) {
	return r.exists(ctx, "authz.user_permissions", squirrel.Eq{
		"user_id":       userID,
		"permission_id": permissionID,
		"is_deleted":    false,
	})
}

// DeleteUserPermission soft-deletes the live direct grant for the pair.
func (r *GrantRepository) DeleteUserPermission(ctx context.Context, userID, permissionID string, now time.Time) error {
	return r.softDelete(ctx, "authz.user_permissions", squirrel.Eq{
		"user_id":       userID,
		"permission_id": permissionID,
		"is_deleted":    false,
	}, now)
}

// PurgeDeletedBefore physically removes relationship rows soft-deleted
// before the cutoff across all three join tables.
func (r *GrantRepository) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var purged int64

	for _, table := range []string{"authz.role_permissions", "authz.user_roles", "authz.user_permissions"} {
		stmt, args, err := r.builder.Delete(table).
			Where(squirrel.Eq{"is_deleted": true}).
			Where(squirrel.Lt{"deleted_at": cutoff.UTC()}).
			ToSql()
		if err != nil {
			return purged, fmt.Errorf("build purge sql for %s: %w", table, err)
		}

		res, err := r.exec.Exec(ctx, stmt, args...)
		if err != nil {
			return purged, fmt.Errorf("purge %s: %w", table, err)
		}
		purged += res.RowsAffected()
	}

	return purged, nil
}

// withTx returns a repository bound to the transaction. pgx.Tx satisfies
// pgTxExecutor directly; a nested Begin opens a savepoint.
func (r *GrantRepository) withTx(tx pgx.Tx) *GrantRepository {
	return &GrantRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

func (r *GrantRepository) exists(ctx context.Context, table string, where squirrel.Eq) (bool, error) {
	stmt, args, err := r.builder.Select("1").
		From(table).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists sql for %s: %w", table, err)
	}

	var one int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("scan exists for %s: %w", table, err)
	}

	return true, nil
}

func (r *GrantRepository) softDelete(ctx context.Context, table string, where squirrel.Eq, now time.Time) error {
	stmt, args, err := r.builder.Update(table).
		Set("is_deleted", true).
		Set("deleted_at", now.UTC()).
		Where(where).
		ToSql()
	if err != nil {
		return fmt.Errorf("build soft delete sql for %s: %w", table, err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("soft delete from %s: %w", table, err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.GrantRepository = (*GrantRepository)(nil)
