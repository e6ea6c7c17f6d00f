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

var userColumns = []string{
	"id",
	"username",
	"email",
	"phone",
	"password_hash",
	"password_changed_at",
	"status",
	"is_locked",
	"lockout_end",
	"failed_attempts",
	"two_factor_secret",
	"two_factor_enabled",
	"security_questions_needed",
	"password_expiry_days",
	"notify_on_login",
	"notify_on_password_change",
	"registered_at",
	"last_login",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// NewUserRepositoryWithExecutor constructs a repository over any executor,
// primarily for tests.
func NewUserRepositoryWithExecutor(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
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

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	stmt, args, err := r.builder.Insert("authz.users").
		Columns(userColumns...).
		Values(
			user.ID,
			user.Username,
			user.Email,
			user.Phone,
			user.PasswordHash,
			user.PasswordChangeAt,
			user.Status,
			user.IsLocked,
			user.LockoutEnd,
			user.FailedAttempts,
			user.TwoFactorSecret,
			user.Settings.TwoFactorEnabled,
			user.Settings.SecurityQuestionsNeeded,
			user.Settings.PasswordExpiryDays,
			user.Settings.NotifyOnLogin,
			user.Settings.NotifyOnPasswordChange,
			user.RegisteredAt,
			user.LastLogin,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert user: %w", translateError(err))
	}

	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id}, "by id")
}

// GetByUsername retrieves a user by normalized username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"username": username}, "by username")
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"email": email}, "by email")
}

func (r *UserRepository) getBy(ctx context.Context, where squirrel.Eq, label string) (*domain.User, error) {
	stmt, args, err := r.builder.Select(userColumns...).
		From("authz.users").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		user  domain.User
		phone sql.NullString
		tfs   sql.NullString
	)

	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&phone,
		&user.PasswordHash,
		&user.PasswordChangeAt,
		&user.Status,
		&user.IsLocked,
		&user.LockoutEnd,
		&user.FailedAttempts,
		&tfs,
		&user.Settings.TwoFactorEnabled,
		&user.Settings.SecurityQuestionsNeeded,
		&user.Settings.PasswordExpiryDays,
		&user.Settings.NotifyOnLogin,
		&user.Settings.NotifyOnPasswordChange,
		&user.RegisteredAt,
		&user.LastLogin,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user %s: %w", label, err)
	}

	if phone.Valid {
		user.Phone = &phone.String
	}
	if tfs.Valid {
		user.TwoFactorSecret = &tfs.String
	}

	return &user, nil
}

// Update writes profile, status, settings and last-login fields.
func (r *UserRepository) Update(ctx context.Context, user domain.User) error {
	stmt, args, err := r.builder.Update("authz.users").
		Set("email", user.Email).
		Set("phone", user.Phone).
		Set("status", user.Status).
		Set("two_factor_enabled", user.Settings.TwoFactorEnabled).
		Set("security_questions_needed", user.Settings.SecurityQuestionsNeeded).
		Set("password_expiry_days", user.Settings.PasswordExpiryDays).
		Set("notify_on_login", user.Settings.NotifyOnLogin).
		Set("notify_on_password_change", user.Settings.NotifyOnPasswordChange).
		Set("last_login", user.LastLogin).
		Where(squirrel.Eq{"id": user.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", translateError(err))
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateLockState persists the account lock state machine fields.
func (r *UserRepository) UpdateLockState(ctx context.Context, user domain.User) error {
	stmt, args, err := r.builder.Update("authz.users").
		Set("is_locked", user.IsLocked).
		Set("lockout_end", user.LockoutEnd).
		Set("failed_attempts", user.FailedAttempts).
		Where(squirrel.Eq{"id": user.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update lock state sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update lock state: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePassword persists a changed password hash and its change time.
func (r *UserRepository) UpdatePassword(ctx context.Context, user domain.User) error {
	stmt, args, err := r.builder.Update("authz.users").
		Set("password_hash", user.PasswordHash).
		Set("password_changed_at", user.PasswordChangeAt).
		Where(squirrel.Eq{"id": user.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetTwoFactorSecret stores or clears the TOTP secret.
func (r *UserRepository) SetTwoFactorSecret(ctx context.Context, userID string, secret *string) error {
	stmt, args, err := r.builder.Update("authz.users").
		Set("two_factor_secret", secret).
		Set("two_factor_enabled", secret != nil).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set two factor secret sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set two factor secret: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ReplaceSecurityQuestions deletes the user's question rows and inserts
// the provided set in order.
func (r *UserRepository) ReplaceSecurityQuestions(ctx context.Context, userID string, questions []domain.StoredSecurityQuestion) error {
	delStmt, delArgs, err := r.builder.Delete("authz.security_questions").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete security questions sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, delStmt, delArgs...); err != nil {
		return fmt.Errorf("delete security questions: %w", err)
	}

	if len(questions) == 0 {
		return nil
	}

	query := r.builder.Insert("authz.security_questions").
		Columns("id", "user_id", "position", "question", "hashed_answer", "created_at", "last_used_at", "failed_attempts")

	for _, q := range questions {
		query = query.Values(q.ID, q.UserID, q.Position, q.Question, q.HashedAnswer, q.CreatedAt, q.LastUsedAt, q.FailedAttempts)
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert security questions sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert security questions: %w", err)
	}

	return nil
}

// ListSecurityQuestions returns the user's question rows ordered by position.
func (r *UserRepository) ListSecurityQuestions(ctx context.Context, userID string) ([]domain.StoredSecurityQuestion, error) {
	stmt, args, err := r.builder.Select("id", "user_id", "position", "question", "hashed_answer", "created_at", "last_used_at", "failed_attempts").
		From("authz.security_questions").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list security questions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query security questions: %w", err)
	}
	defer rows.Close()

	questions := make([]domain.StoredSecurityQuestion, 0)
	for rows.Next() {
		var q domain.StoredSecurityQuestion
		if err := rows.Scan(&q.ID, &q.UserID, &q.Position, &q.Question, &q.HashedAnswer, &q.CreatedAt, &q.LastUsedAt, &q.FailedAttempts); err != nil {
			return nil, fmt.Errorf("scan security question: %w", err)
		}
		questions = append(questions, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate security questions: %w", err)
	}

	return questions, nil
}

// UpdateSecurityQuestion persists a single question's answer hash and counters.
func (r *UserRepository) UpdateSecurityQuestion(ctx context.Context, question domain.StoredSecurityQuestion) error {
	stmt, args, err := r.builder.Update("authz.security_questions").
		Set("question", question.Question).
		Set("hashed_answer", question.HashedAnswer).
		Set("last_used_at", question.LastUsedAt).
		Set("failed_attempts", question.FailedAttempts).
		Where(squirrel.Eq{"id": question.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update security question sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update security question: %w", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.UserRepository = (*UserRepository)(nil)
