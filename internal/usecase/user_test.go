package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/alischiller/authz-service/internal/core/domain"
)

// denyListChecker fails passwords from a fixed list, standing in for
// the zxcvbn-backed validator.
type denyListChecker struct {
	denied map[string]bool
}

func (c denyListChecker) Validate(password string) error {
	if c.denied[password] {
		return errors.New("password is too guessable")
	}
	return nil
}

type userFixture struct {
	users  *memUserRepo
	events *capturePublisher
	clock  *fakeClock
	svc    *UserService
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()

	f := &userFixture{
		users:  newMemUserRepo(),
		events: &capturePublisher{},
		clock:  newFakeClock(time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)),
	}
	f.svc = NewUserService(
		f.users,
		plainHasher{},
		denyListChecker{denied: map[string]bool{"Guessable1!": true}},
		&fakeTwoFactor{secret: totpSecret, validCode: "123456"},
		f.events, f.clock,
		zaptest.NewLogger(t),
	)
	return f
}

func (f *userFixture) register(t *testing.T) *domain.User {
	t.Helper()

	user, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "Carol.Danvers",
		Email:    "Carol@Example.com",
		Phone:    "+49 170 1234567",
		Password: "Sup3rSecret!",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return user
}

func TestRegisterNormalizesAndPersists(t *testing.T) {
	f := newUserFixture(t)
	user := f.register(t)

	if user.Username != "carol.danvers" {
		t.Errorf("username not normalized: %q", user.Username)
	}
	if user.Email != "carol@example.com" {
		t.Errorf("email not normalized: %q", user.Email)
	}
	if user.Phone == nil || *user.Phone != "+491701234567" {
		t.Errorf("phone not normalized: %v", user.Phone)
	}
	if user.PasswordHash != "h:Sup3rSecret!" {
		t.Errorf("password not hashed: %q", user.PasswordHash)
	}
	if user.PasswordChangeAt == nil || !user.PasswordChangeAt.Equal(f.clock.Now()) {
		t.Errorf("change timestamp not stamped: %v", user.PasswordChangeAt)
	}
	if user.Status != domain.UserStatusActive {
		t.Errorf("unexpected status %q", user.Status)
	}
	if user.Settings != domain.DefaultSecuritySettings() {
		t.Errorf("unexpected settings %+v", user.Settings)
	}

	if registered := f.events.byType(domain.EventUserRegistered); len(registered) != 1 {
		t.Errorf("expected one registration event, got %d", len(registered))
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	f := newUserFixture(t)
	f.register(t)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		Username: "carol.danvers",
		Email:    "other@example.com",
		Password: "Sup3rSecret!",
	})
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestRegisterValidatesCredentials(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		input   RegisterInput
		wantErr func(error) bool
	}{
		{"bad email", RegisterInput{Username: "carol", Email: "not-an-email", Password: "Sup3rSecret!"}, domain.IsValidationError},
		{"bad username", RegisterInput{Username: "c!", Email: "c@example.com", Password: "Sup3rSecret!"}, domain.IsValidationError},
		{"bad phone", RegisterInput{Username: "carol", Email: "c@example.com", Phone: "12", Password: "Sup3rSecret!"}, domain.IsValidationError},
		{"structurally weak password", RegisterInput{Username: "carol", Email: "c@example.com", Password: "alllowercase1!"}, domain.IsPolicyError},
		{"guessable password", RegisterInput{Username: "carol", Email: "c@example.com", Password: "Guessable1!"}, domain.IsPolicyError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.Register(ctx, tc.input); err == nil || !tc.wantErr(err) {
				t.Fatalf("got %v", err)
			}
		})
	}
}

func TestChangePassword(t *testing.T) {
	f := newUserFixture(t)
	user := f.register(t)
	ctx := context.Background()

	if err := f.svc.ChangePassword(ctx, user.ID, "wrong", "N3wSecret!x"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong current: expected ErrInvalidCredentials, got %v", err)
	}
	if err := f.svc.ChangePassword(ctx, user.ID, "Sup3rSecret!", "Sup3rSecret!"); !domain.IsPolicyError(err) {
		t.Fatalf("same password: expected PolicyError, got %v", err)
	}
	if err := f.svc.ChangePassword(ctx, user.ID, "Sup3rSecret!", "Guessable1!"); !domain.IsPolicyError(err) {
		t.Fatalf("guessable password: expected PolicyError, got %v", err)
	}

	f.clock.Advance(time.Hour)
	if err := f.svc.ChangePassword(ctx, user.ID, "Sup3rSecret!", "N3wSecret!x"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	stored, _ := f.users.GetByID(ctx, user.ID)
	if stored.PasswordHash != "h:N3wSecret!x" {
		t.Errorf("hash not replaced: %q", stored.PasswordHash)
	}
	if stored.PasswordChangeAt == nil || !stored.PasswordChangeAt.Equal(f.clock.Now()) {
		t.Errorf("change timestamp not refreshed: %v", stored.PasswordChangeAt)
	}

	// Default settings notify on password change.
	if changed := f.events.byType(domain.EventPasswordChanged); len(changed) != 1 {
		t.Errorf("expected one password change event, got %d", len(changed))
	}
}

func TestEnrollSecurityQuestionsEnforcesArity(t *testing.T) {
	f := newUserFixture(t)
	user := f.register(t)
	ctx := context.Background()

	err := f.svc.EnrollSecurityQuestions(ctx, user.ID, []QuestionAnswer{
		{"First pet?", "rex"},
		{"First city?", "berlin"},
	})
	if !domain.IsPolicyError(err) {
		t.Fatalf("expected PolicyError for 2 questions, got %v", err)
	}

	err = f.svc.EnrollSecurityQuestions(ctx, user.ID, []QuestionAnswer{
		{"First pet?", "rex"},
		{"First city?", "berlin"},
		{"Mother's maiden name?", "smith"},
	})
	if err != nil {
		t.Fatalf("EnrollSecurityQuestions: %v", err)
	}

	stored, _ := f.users.ListSecurityQuestions(ctx, user.ID)
	if len(stored) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(stored))
	}
	for i, row := range stored {
		if row.Position != i {
			t.Errorf("row %d has position %d", i, row.Position)
		}
	}

	account, _ := f.users.GetByID(ctx, user.ID)
	if !account.Settings.SecurityQuestionsNeeded {
		t.Error("enrollment did not flip the security questions toggle")
	}
}

func TestVerifySecurityAnswers(t *testing.T) {
	f := newUserFixture(t)
	user := f.register(t)
	ctx := context.Background()

	if _, err := f.svc.VerifySecurityAnswers(ctx, user.ID, []string{"rex"}); !domain.IsPolicyError(err) {
		t.Fatalf("expected PolicyError before enrollment, got %v", err)
	}

	if err := f.svc.EnrollSecurityQuestions(ctx, user.ID, []QuestionAnswer{
		{"First pet?", "rex"},
		{"First city?", "berlin"},
		{"Mother's maiden name?", "smith"},
	}); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	// One wrong answer fails the whole set.
	ok, err := f.svc.VerifySecurityAnswers(ctx, user.ID, []string{"rex", "munich", "smith"})
	if err != nil {
		t.Fatalf("VerifySecurityAnswers: %v", err)
	}
	if ok {
		t.Fatal("partially wrong answers accepted")
	}

	stored, _ := f.users.ListSecurityQuestions(ctx, user.ID)
	if stored[1].FailedAttempts != 1 {
		t.Errorf("wrong answer counter not persisted: %+v", stored[1])
	}
	if stored[0].FailedAttempts != 0 {
		t.Errorf("correct answer advanced a counter: %+v", stored[0])
	}

	// Case and padding are normalized away.
	ok, err = f.svc.VerifySecurityAnswers(ctx, user.ID, []string{" REX ", "Berlin", "smith"})
	if err != nil {
		t.Fatalf("VerifySecurityAnswers: %v", err)
	}
	if !ok {
		t.Fatal("correct answers rejected")
	}

	stored, _ = f.users.ListSecurityQuestions(ctx, user.ID)
	for i, row := range stored {
		if row.FailedAttempts != 0 {
			t.Errorf("counter %d not reset on success: %+v", i, row)
		}
		if row.LastUsedAt == nil {
			t.Errorf("row %d missing last-used stamp", i)
		}
	}
}

func TestChangeSecurityQuestion(t *testing.T) {
	f := newUserFixture(t)
	user := f.register(t)
	ctx := context.Background()

	if err := f.svc.EnrollSecurityQuestions(ctx, user.ID, []QuestionAnswer{
		{"First pet?", "rex"},
		{"First city?", "berlin"},
		{"Mother's maiden name?", "smith"},
	}); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	if err := f.svc.ChangeSecurityQuestion(ctx, user.ID, 5, "New?", "answer"); !domain.IsValidationError(err) {
		t.Fatalf("out of range: expected ValidationError, got %v", err)
	}

	if err := f.svc.ChangeSecurityQuestion(ctx, user.ID, 1, "Favorite book?", "dune"); err != nil {
		t.Fatalf("ChangeSecurityQuestion: %v", err)
	}

	stored, _ := f.users.ListSecurityQuestions(ctx, user.ID)
	if len(stored) != 3 {
		t.Fatalf("set size changed: %d", len(stored))
	}
	if stored[1].Question != "Favorite book?" || stored[1].FailedAttempts != 0 || stored[1].LastUsedAt != nil {
		t.Fatalf("replacement not applied cleanly: %+v", stored[1])
	}

	ok, err := f.svc.VerifySecurityAnswers(ctx, user.ID, []string{"rex", "dune", "smith"})
	if err != nil || !ok {
		t.Fatalf("verify after change: ok=%v err=%v", ok, err)
	}
}

func TestTwoFactorEnrollment(t *testing.T) {
	f := newUserFixture(t)
	user := f.register(t)
	ctx := context.Background()

	if err := f.svc.ConfirmTwoFactor(ctx, user.ID, "123456"); !errors.Is(err, ErrTwoFactorNotPending) {
		t.Fatalf("confirm before enable: expected ErrTwoFactorNotPending, got %v", err)
	}

	secret, url, err := f.svc.EnableTwoFactor(ctx, user.ID)
	if err != nil {
		t.Fatalf("EnableTwoFactor: %v", err)
	}
	if secret != totpSecret || url == "" {
		t.Fatalf("unexpected enrollment material %q %q", secret, url)
	}

	// Enrollment alone must not enforce the factor.
	stored, _ := f.users.GetByID(ctx, user.ID)
	if stored.Settings.TwoFactorEnabled {
		t.Fatal("two-factor enforced before confirmation")
	}
	if stored.TwoFactorSecret == nil || *stored.TwoFactorSecret != totpSecret {
		t.Fatalf("secret not stored: %v", stored.TwoFactorSecret)
	}

	if err := f.svc.ConfirmTwoFactor(ctx, user.ID, "000000"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong code: expected ErrInvalidCredentials, got %v", err)
	}
	if err := f.svc.ConfirmTwoFactor(ctx, user.ID, "123456"); err != nil {
		t.Fatalf("ConfirmTwoFactor: %v", err)
	}

	stored, _ = f.users.GetByID(ctx, user.ID)
	if !stored.Settings.TwoFactorEnabled {
		t.Fatal("confirmation did not enable the factor")
	}

	if err := f.svc.DisableTwoFactor(ctx, user.ID); err != nil {
		t.Fatalf("DisableTwoFactor: %v", err)
	}
	stored, _ = f.users.GetByID(ctx, user.ID)
	if stored.TwoFactorSecret != nil || stored.Settings.TwoFactorEnabled {
		t.Fatalf("disable left residue: %+v", stored)
	}
}

func TestUpdateSecuritySettings(t *testing.T) {
	f := newUserFixture(t)
	user := f.register(t)
	ctx := context.Background()

	bad := domain.DefaultSecuritySettings().WithPasswordExpiryDays(-1)
	if err := f.svc.UpdateSecuritySettings(ctx, user.ID, bad); !domain.IsValidationError(err) {
		t.Fatalf("negative expiry: expected ValidationError, got %v", err)
	}

	withTwoFactor := domain.DefaultSecuritySettings().WithTwoFactor(true)
	if err := f.svc.UpdateSecuritySettings(ctx, user.ID, withTwoFactor); !errors.Is(err, ErrTwoFactorNotPending) {
		t.Fatalf("2fa without secret: expected ErrTwoFactorNotPending, got %v", err)
	}

	next := domain.DefaultSecuritySettings().
		WithPasswordExpiryDays(0).
		WithLoginNotifications(true).
		WithPasswordChangeNotifications(false)
	if err := f.svc.UpdateSecuritySettings(ctx, user.ID, next); err != nil {
		t.Fatalf("UpdateSecuritySettings: %v", err)
	}

	stored, _ := f.users.GetByID(ctx, user.ID)
	if stored.Settings != next {
		t.Fatalf("settings not persisted: %+v", stored.Settings)
	}
	if stored.Settings.PasswordExpiryEnabled() {
		t.Fatal("zero expiry days must disable expiry")
	}
}

func TestGetUserReturnsNilWhenMissing(t *testing.T) {
	f := newUserFixture(t)

	user, err := f.svc.GetUser(context.Background(), missingEntityID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil for missing user, got %+v", user)
	}

	if _, err := f.svc.GetUser(context.Background(), "nope"); !domain.IsFormatError(err) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}
