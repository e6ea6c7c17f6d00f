package port

import "github.com/alischiller/authz-service/internal/core/domain"

// PasswordHasher hashes and verifies secrets using a slow, salted,
// adaptive algorithm. It doubles as the domain-level Hasher consumed by
// the credential value objects.
type PasswordHasher = domain.Hasher

// PasswordStrengthChecker rejects weak passwords beyond the structural
// policy enforced by the domain layer.
type PasswordStrengthChecker interface {
	Validate(password string) error
}

// TwoFactorProvider provisions and verifies time-based one-time
// password enrollments.
type TwoFactorProvider interface {
	GenerateSecret(accountName string) (secret string, otpauthURL string, err error)
	VerifyCode(code, secret string) bool
}
