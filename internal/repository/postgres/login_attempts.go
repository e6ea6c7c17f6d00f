package postgres

import (
	"context"
	"database/sql"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alischiller/authz-service/internal/core/domain"
	"github.com/alischiller/authz-service/internal/core/port"
)

// LoginAttemptRepository persists login history rows for auditing.
type LoginAttemptRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewLoginAttemptRepository wires a PostgreSQL-backed login attempt repository.
func NewLoginAttemptRepository(pool *pgxpool.Pool) *LoginAttemptRepository {
	return &LoginAttemptRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// NewLoginAttemptRepositoryWithExecutor constructs a repository over any
// executor, primarily for tests.
func NewLoginAttemptRepositoryWithExecutor(exec pgExecutor) *LoginAttemptRepository {
	return &LoginAttemptRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Record inserts a login attempt row.
func (r *LoginAttemptRepository) Record(ctx context.Context, attempt domain.LoginAttempt) error {
	stmt, args, err := r.builder.Insert("authz.login_attempts").
		Columns("id", "user_id", "username_or_email", "succeeded", "failure_reason", "ip", "user_agent", "created_at").
		Values(
			attempt.ID,
			attempt.UserID,
			attempt.UsernameOrEmail,
			attempt.Succeeded,
			attempt.FailureReason,
			attempt.IP,
			attempt.UserAgent,
			attempt.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert login attempt sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert login attempt: %w", err)
	}

	return nil
}

// ListByUser returns the most recent attempts for the user, newest first.
func (r *LoginAttemptRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.LoginAttempt, error) {
	if limit <= 0 {
		limit = 50
	}

	stmt, args, err := r.builder.Select("id", "user_id", "username_or_email", "succeeded", "failure_reason", "ip", "user_agent", "created_at").
		From("authz.login_attempts").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list login attempts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query login attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]domain.LoginAttempt, 0)
	for rows.Next() {
		var (
			attempt domain.LoginAttempt
			userID  sql.NullString
			reason  sql.NullString
			ip      sql.NullString
			agent   sql.NullString
		)
		if err := rows.Scan(
			&attempt.ID,
			&userID,
			&attempt.UsernameOrEmail,
			&attempt.Succeeded,
			&reason,
			&ip,
			&agent,
			&attempt.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan login attempt: %w", err)
		}
		if userID.Valid {
			attempt.UserID = &userID.String
		}
		if reason.Valid {
			attempt.FailureReason = &reason.String
		}
		if ip.Valid {
			attempt.IP = &ip.String
		}
		if agent.Valid {
			attempt.UserAgent = &agent.String
		}
		attempts = append(attempts, attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate login attempts: %w", err)
	}

	return attempts, nil
}

var _ port.LoginAttemptRepository = (*LoginAttemptRepository)(nil)
