package usecase

import (
	"context"
	"errors"
	"fmt"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alischiller/authz-service/internal/core/domain"
	"github.com/alischiller/authz-service/internal/core/port"
	"github.com/alischiller/authz-service/internal/infra/logger"
	"github.com/alischiller/authz-service/internal/repository"
)

var (
	// ErrUserExists indicates the username or email is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrTwoFactorNotPending indicates ConfirmTwoFactor was called
	// without a prior EnableTwoFactor.
	ErrTwoFactorNotPending = errors.New("two-factor enrollment not started")
)

// RegisterInput carries the fields required to create an account.
type RegisterInput struct {
	Username string
	Email    string
	Phone    string
	Password string
}

// QuestionAnswer pairs a security question with its plaintext answer.
type QuestionAnswer struct {
	Question string
	Answer   string
}

// UserService manages account lifecycle: registration, password
// changes, security questions, two-factor enrollment and security
// settings.
type UserService struct {
	users     port.UserRepository
	hasher    port.PasswordHasher
	strength  port.PasswordStrengthChecker
	twoFactor port.TwoFactorProvider
	events    port.EventPublisher
	clock     port.Clock
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(
	users port.UserRepository,
	hasher port.PasswordHasher,
	strength port.PasswordStrengthChecker,
	twoFactor port.TwoFactorProvider,
	events port.EventPublisher,
	clock port.Clock,
	log *zap.Logger,
) *UserService {
	if clock == nil {
		clock = port.SystemClock()
	}
	return &UserService{
		users:     users,
		hasher:    hasher,
		strength:  strength,
		twoFactor: twoFactor,
		events:    events,
		clock:     clock,
		logger:    log,
	}
}

// Register validates the supplied credentials and creates the account.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	username, err := domain.NewUsername(input.Username)
	if err != nil {
		return nil, err
	}
	email, err := domain.NewEmail(input.Email)
	if err != nil {
		return nil, err
	}

	var phone *string
	if input.Phone != "" {
		p, err := domain.NewPhoneNumber(input.Phone)
		if err != nil {
			return nil, err
		}
		v := p.String()
		phone = &v
	}

	if err := s.checkStrength(input.Password); err != nil {
		return nil, err
	}
	password, err := domain.NewPassword(input.Password, s.hasher)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	changedAt := now
	user := domain.User{
		ID:               uuid.NewString(),
		Username:         username.String(),
		Email:            email.String(),
		Phone:            phone,
		PasswordHash:     password.Hash(),
		PasswordChangeAt: &changedAt,
		Status:           domain.UserStatusActive,
		Settings:         domain.DefaultSecuritySettings(),
		RegisteredAt:     now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("username", logger.MaskString(user.Username)),
		zap.String("email", logger.MaskEmail(user.Email)),
	)
	s.publish(ctx, domain.EventUserRegistered, user.ID, nil)

	return &user, nil
}

// GetUser loads a single account by id.
func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if err := requireUUID("user id", userID); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ChangePassword verifies the current password and replaces it with a
// new one, refreshing the change timestamp used for expiry tracking.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if err := requireUUID("user id", userID); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	password, err := user.Password()
	if err != nil {
		return fmt.Errorf("rehydrate password: %w", err)
	}

	ok, err := password.Verify(current, s.hasher)
	if err != nil {
		return fmt.Errorf("verify current password: %w", err)
	}
	if !ok {
		return domain.ErrInvalidCredentials
	}

	if next == current {
		return domain.NewPolicyError("password", "new password must differ from the current one")
	}
	if err := s.checkStrength(next); err != nil {
		return err
	}

	updated, err := password.Change(next, s.hasher, s.clock.Now())
	if err != nil {
		return err
	}

	user.PasswordHash = updated.Hash()
	user.PasswordChangeAt = updated.LastChangedAt()
	if err := s.users.UpdatePassword(ctx, *user); err != nil {
		return fmt.Errorf("persist password: %w", err)
	}

	if user.Settings.NotifyOnPasswordChange {
		s.publish(ctx, domain.EventPasswordChanged, user.ID, nil)
	}

	return nil
}

// EnrollSecurityQuestions replaces the user's security questions with a
// fresh set. Arity is enforced by the set constructor.
func (s *UserService) EnrollSecurityQuestions(ctx context.Context, userID string, pairs []QuestionAnswer) error {
	if err := requireUUID("user id", userID); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	now := s.clock.Now()
	questions := make([]domain.SecurityQuestion, 0, len(pairs))
	for _, pair := range pairs {
		q, err := domain.NewSecurityQuestion(pair.Question, pair.Answer, s.hasher, now)
		if err != nil {
			return err
		}
		questions = append(questions, q)
	}

	set, err := domain.NewSecurityQuestionSet(questions)
	if err != nil {
		return err
	}

	stored := make([]domain.StoredSecurityQuestion, 0, set.Len())
	for i, q := range set.Questions() {
		stored = append(stored, domain.StoredSecurityQuestion{
			ID:           uuid.NewString(),
			UserID:       user.ID,
			Position:     i,
			Question:     q.Question(),
			HashedAnswer: q.HashedAnswer(),
			CreatedAt:    q.CreatedAt(),
		})
	}

	if err := s.users.ReplaceSecurityQuestions(ctx, user.ID, stored); err != nil {
		return fmt.Errorf("persist security questions: %w", err)
	}

	if !user.Settings.SecurityQuestionsNeeded {
		user.Settings = user.Settings.WithSecurityQuestions(true)
		if err := s.users.Update(ctx, *user); err != nil {
			return fmt.Errorf("update settings: %w", err)
		}
	}

	return nil
}

// VerifySecurityAnswers checks the supplied answers against the user's
// enrolled set. All answers must be present and correct; per-question
// failure counters are persisted either way.
func (s *UserService) VerifySecurityAnswers(ctx context.Context, userID string, answers []string) (bool, error) {
	if err := requireUUID("user id", userID); err != nil {
		return false, err
	}

	stored, err := s.users.ListSecurityQuestions(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("list security questions: %w", err)
	}
	if len(stored) == 0 {
		return false, domain.NewPolicyError("security_questions", "no security questions enrolled")
	}

	questions := make([]domain.SecurityQuestion, 0, len(stored))
	for _, row := range stored {
		q, err := domain.RehydrateSecurityQuestion(row.Question, row.HashedAnswer, row.CreatedAt, row.LastUsedAt, row.FailedAttempts)
		if err != nil {
			return false, fmt.Errorf("rehydrate question: %w", err)
		}
		questions = append(questions, q)
	}

	set, err := domain.NewSecurityQuestionSet(questions)
	if err != nil {
		return false, err
	}

	ok, err := set.VerifyAnswers(answers, s.hasher, s.clock.Now())
	if err != nil {
		return false, fmt.Errorf("verify answers: %w", err)
	}

	for i, q := range set.Questions() {
		row := stored[i]
		row.LastUsedAt = q.LastUsedAt()
		row.FailedAttempts = q.FailedAttempts()
		if err := s.users.UpdateSecurityQuestion(ctx, row); err != nil {
			s.logger.Warn("persist question counters failed",
				zap.String("question_id", row.ID), zap.Error(err))
		}
	}

	return ok, nil
}

// ChangeSecurityQuestion replaces the question at the given position
// with a new question and answer, resetting its usage counters.
func (s *UserService) ChangeSecurityQuestion(ctx context.Context, userID string, position int, question, answer string) error {
	if err := requireUUID("user id", userID); err != nil {
		return err
	}

	stored, err := s.users.ListSecurityQuestions(ctx, userID)
	if err != nil {
		return fmt.Errorf("list security questions: %w", err)
	}
	if position < 0 || position >= len(stored) {
		return domain.NewValidationError("position", "question position out of range")
	}

	now := s.clock.Now()
	replacement, err := domain.NewSecurityQuestion(question, answer, s.hasher, now)
	if err != nil {
		return err
	}

	row := stored[position]
	row.Question = replacement.Question()
	row.HashedAnswer = replacement.HashedAnswer()
	row.CreatedAt = replacement.CreatedAt()
	row.LastUsedAt = nil
	row.FailedAttempts = 0

	if err := s.users.UpdateSecurityQuestion(ctx, row); err != nil {
		return fmt.Errorf("persist question: %w", err)
	}

	return nil
}

// EnableTwoFactor starts TOTP enrollment. The returned secret and
// otpauth URL must be confirmed with a valid code before the factor is
// enforced at login.
func (s *UserService) EnableTwoFactor(ctx context.Context, userID string) (secret, otpauthURL string, err error) {
	if err := requireUUID("user id", userID); err != nil {
		return "", "", err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", "", fmt.Errorf("get user: %w", err)
	}

	secret, otpauthURL, err = s.twoFactor.GenerateSecret(user.Username)
	if err != nil {
		return "", "", fmt.Errorf("generate totp secret: %w", err)
	}

	if err := s.users.SetTwoFactorSecret(ctx, user.ID, &secret); err != nil {
		return "", "", fmt.Errorf("persist totp secret: %w", err)
	}

	return secret, otpauthURL, nil
}

// ConfirmTwoFactor verifies a code against the pending secret and turns
// two-factor enforcement on.
func (s *UserService) ConfirmTwoFactor(ctx context.Context, userID, code string) error {
	if err := requireUUID("user id", userID); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user.TwoFactorSecret == nil {
		return ErrTwoFactorNotPending
	}

	if !s.twoFactor.VerifyCode(code, *user.TwoFactorSecret) {
		return domain.ErrInvalidCredentials
	}

	user.Settings = user.Settings.WithTwoFactor(true)
	if err := s.users.Update(ctx, *user); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}

	return nil
}

// DisableTwoFactor removes the stored secret and turns enforcement off.
func (s *UserService) DisableTwoFactor(ctx context.Context, userID string) error {
	if err := requireUUID("user id", userID); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if err := s.users.SetTwoFactorSecret(ctx, user.ID, nil); err != nil {
		return fmt.Errorf("clear totp secret: %w", err)
	}

	user.TwoFactorSecret = nil
	user.Settings = user.Settings.WithTwoFactor(false)
	if err := s.users.Update(ctx, *user); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}

	return nil
}

// UpdateSecuritySettings overwrites the account's security toggles.
func (s *UserService) UpdateSecuritySettings(ctx context.Context, userID string, settings domain.SecuritySettings) error {
	if err := requireUUID("user id", userID); err != nil {
		return err
	}
	if settings.PasswordExpiryDays < 0 {
		return domain.NewValidationError("password_expiry_days", "password expiry days cannot be negative")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if settings.TwoFactorEnabled && user.TwoFactorSecret == nil {
		return ErrTwoFactorNotPending
	}

	user.Settings = settings
	if err := s.users.Update(ctx, *user); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}

	return nil
}

func (s *UserService) checkStrength(password string) error {
	if err := domain.CheckPasswordPolicy(password); err != nil {
		return err
	}
	if s.strength == nil {
		return nil
	}
	if err := s.strength.Validate(password); err != nil {
		return domain.NewPolicyError("password", err.Error())
	}
	return nil
}

func (s *UserService) publish(ctx context.Context, eventType, userID string, detail map[string]string) {
	if s.events == nil {
		return
	}
	event := domain.NotificationEvent{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		UserID:     userID,
		OccurredAt: s.clock.Now(),
		Detail:     detail,
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish notification failed", zap.String("event", eventType), zap.Error(err))
	}
}
