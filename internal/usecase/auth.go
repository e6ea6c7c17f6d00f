package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alischiller/authz-service/internal/core/domain"
	"github.com/alischiller/authz-service/internal/core/port"
	"github.com/alischiller/authz-service/internal/infra/logger"
	"github.com/alischiller/authz-service/internal/infra/metrics"
	"github.com/alischiller/authz-service/internal/repository"
)

var (
	// ErrTooManyRequests indicates the sliding-window throttle rejected the attempt.
	ErrTooManyRequests = errors.New("too many login attempts")
	// ErrTwoFactorRequired indicates the account requires a TOTP code.
	ErrTwoFactorRequired = errors.New("two-factor code required")
)

// LoginInput carries the credentials and request metadata for a login attempt.
type LoginInput struct {
	UsernameOrEmail string
	Password        string
	TwoFactorCode   string
	IP              *string
	UserAgent       *string
}

// LoginResult reports the outcome of a successful login.
type LoginResult struct {
	User            domain.User
	PasswordExpired bool
}

// AuthService drives the login flow: throttling, the account lock state
// machine, credential and two-factor verification, audit history, and
// notification dispatch.
type AuthService struct {
	users     port.UserRepository
	attempts  port.LoginAttemptRepository
	rateLimit port.RateLimitStore
	hasher    port.PasswordHasher
	twoFactor port.TwoFactorProvider
	events    port.EventPublisher
	clock     port.Clock
	logger    *zap.Logger

	throttleWindow time.Duration
	throttleMax    int
}

// NewAuthService constructs an AuthService.
func NewAuthService(
	users port.UserRepository,
	attempts port.LoginAttemptRepository,
	rateLimit port.RateLimitStore,
	hasher port.PasswordHasher,
	twoFactor port.TwoFactorProvider,
	events port.EventPublisher,
	clock port.Clock,
	log *zap.Logger,
) *AuthService {
	if clock == nil {
		clock = port.SystemClock()
	}
	return &AuthService{
		users:          users,
		attempts:       attempts,
		rateLimit:      rateLimit,
		hasher:         hasher,
		twoFactor:      twoFactor,
		events:         events,
		clock:          clock,
		logger:         log,
		throttleWindow: time.Minute,
		throttleMax:    10,
	}
}

// WithThrottle overrides the sliding-window throttle parameters.
func (s *AuthService) WithThrottle(window time.Duration, maxAttempts int) *AuthService {
	if window > 0 {
		s.throttleWindow = window
	}
	if maxAttempts > 0 {
		s.throttleMax = maxAttempts
	}
	return s
}

// Login verifies the supplied credentials against the account security
// state. Failed verifications advance the lock state machine; reaching
// the threshold locks the account for the lockout window. Unlock is
// lazy: a login observed after the window elapses resets the state
// before verification proceeds.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	identifier := strings.TrimSpace(strings.ToLower(input.UsernameOrEmail))
	if identifier == "" {
		return nil, domain.NewValidationError("username", "username or email is required")
	}
	if input.Password == "" {
		return nil, domain.NewValidationError("password", "password is required")
	}

	now := s.clock.Now()

	if err := s.checkThrottle(ctx, identifier, now); err != nil {
		return nil, err
	}

	user, err := s.findUser(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordAttempt(ctx, nil, identifier, false, "unknown account", input)
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	lock := user.LockStatus()
	if lock.IsLocked() {
		if !lock.ShouldUnlock(now) {
			s.recordAttempt(ctx, &user.ID, identifier, false, "account locked", input)
			metrics.LoginAttempts.WithLabelValues("locked").Inc()
			return nil, domain.ErrAccountLocked
		}
		lock.Reset()
		user.ApplyLockStatus(lock)
		if err := s.users.UpdateLockState(ctx, *user); err != nil {
			return nil, fmt.Errorf("persist lazy unlock: %w", err)
		}
	}

	password, err := user.Password()
	if err != nil {
		return nil, fmt.Errorf("rehydrate password: %w", err)
	}

	ok, err := password.Verify(input.Password, s.hasher)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, s.failAttempt(ctx, user, lock, identifier, "wrong password", input, now)
	}

	if user.Settings.TwoFactorEnabled && user.TwoFactorSecret != nil {
		code := strings.TrimSpace(input.TwoFactorCode)
		if code == "" {
			return nil, ErrTwoFactorRequired
		}
		if !s.twoFactor.VerifyCode(code, *user.TwoFactorSecret) {
			return nil, s.failAttempt(ctx, user, lock, identifier, "wrong two-factor code", input, now)
		}
	}

	lock.Reset()
	user.ApplyLockStatus(lock)
	lastLogin := now.UTC()
	user.LastLogin = &lastLogin

	if err := s.users.UpdateLockState(ctx, *user); err != nil {
		return nil, fmt.Errorf("reset lock state: %w", err)
	}
	if err := s.users.Update(ctx, *user); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}

	s.recordAttempt(ctx, &user.ID, identifier, true, "", input)
	metrics.LoginAttempts.WithLabelValues("success").Inc()

	if user.Settings.NotifyOnLogin {
		s.publish(ctx, domain.EventUserLoggedIn, user.ID, map[string]string{
			"username": logger.MaskString(user.Username),
		})
	}

	expired := user.Settings.PasswordExpiryEnabled() &&
		password.IsExpired(user.Settings.PasswordExpiryDays, now)

	return &LoginResult{User: *user, PasswordExpired: expired}, nil
}

// Unlock resets the account lock state, for example as an admin action.
func (s *AuthService) Unlock(ctx context.Context, userID string) error {
	if err := requireUUID("user id", userID); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	lock := user.LockStatus()
	lock.Reset()
	user.ApplyLockStatus(lock)

	if err := s.users.UpdateLockState(ctx, *user); err != nil {
		return fmt.Errorf("persist unlock: %w", err)
	}

	return nil
}

// Lock force-locks the account independent of the attempt counter.
func (s *AuthService) Lock(ctx context.Context, userID string) error {
	if err := requireUUID("user id", userID); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	lock := user.LockStatus()
	lock.Lock(s.clock.Now())
	user.ApplyLockStatus(lock)

	if err := s.users.UpdateLockState(ctx, *user); err != nil {
		return fmt.Errorf("persist lock: %w", err)
	}

	s.publish(ctx, domain.EventAccountLocked, user.ID, map[string]string{"reason": "forced"})
	return nil
}

// LoginHistory returns the most recent login attempts for the user.
func (s *AuthService) LoginHistory(ctx context.Context, userID string, limit int) ([]domain.LoginAttempt, error) {
	if err := requireUUID("user id", userID); err != nil {
		return nil, err
	}
	return s.attempts.ListByUser(ctx, userID, limit)
}

func (s *AuthService) failAttempt(ctx context.Context, user *domain.User, lock domain.AccountLockStatus, identifier, reason string, input LoginInput, now time.Time) error {
	wasLocked := lock.IsLocked()
	lock.IncrementFailedAttempts(now)
	user.ApplyLockStatus(lock)

	if err := s.users.UpdateLockState(ctx, *user); err != nil {
		return fmt.Errorf("persist failed attempt: %w", err)
	}

	s.recordAttempt(ctx, &user.ID, identifier, false, reason, input)
	metrics.LoginAttempts.WithLabelValues("failure").Inc()

	if lock.IsLocked() && !wasLocked {
		metrics.AccountLockouts.Inc()
		s.logger.Warn("account locked after repeated failures",
			zap.String("user_id", user.ID),
			zap.Int("failed_attempts", lock.FailedAttempts()),
		)
		s.publish(ctx, domain.EventAccountLocked, user.ID, map[string]string{"reason": "threshold"})
		return domain.ErrAccountLocked
	}

	return domain.ErrInvalidCredentials
}

func (s *AuthService) checkThrottle(ctx context.Context, identifier string, now time.Time) error {
	if s.rateLimit == nil {
		return nil
	}

	if err := s.rateLimit.TrimWindow(ctx, identifier, s.throttleWindow, now); err != nil {
		s.logger.Warn("trim throttle window failed", zap.Error(err))
	}

	count, err := s.rateLimit.CountAttempts(ctx, identifier, s.throttleWindow, now)
	if err != nil {
		return fmt.Errorf("count throttle attempts: %w", err)
	}
	if count >= s.throttleMax {
		return ErrTooManyRequests
	}

	if err := s.rateLimit.RecordAttempt(ctx, identifier, now); err != nil {
		s.logger.Warn("record throttle attempt failed", zap.Error(err))
	}

	return nil
}

func (s *AuthService) findUser(ctx context.Context, identifier string) (*domain.User, error) {
	if strings.Contains(identifier, "@") {
		return s.users.GetByEmail(ctx, identifier)
	}
	return s.users.GetByUsername(ctx, identifier)
}

func (s *AuthService) recordAttempt(ctx context.Context, userID *string, identifier string, succeeded bool, reason string, input LoginInput) {
	attempt := domain.LoginAttempt{
		ID:              uuid.NewString(),
		UserID:          userID,
		UsernameOrEmail: identifier,
		Succeeded:       succeeded,
		IP:              input.IP,
		UserAgent:       input.UserAgent,
		CreatedAt:       s.clock.Now(),
	}
	if reason != "" {
		attempt.FailureReason = &reason
	}

	if err := s.attempts.Record(ctx, attempt); err != nil {
		s.logger.Warn("record login attempt failed", zap.Error(err))
	}
}

func (s *AuthService) publish(ctx context.Context, eventType, userID string, detail map[string]string) {
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
