package domain

import (
	"strings"
	"time"
	"unicode"
)

const (
	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8
	// PasswordSpecialChars enumerates the accepted special characters.
	PasswordSpecialChars = `!@#$%^&*(),.?":{}|<>`
)

// Hasher produces and verifies slow, salted password hashes.
// Implementations live in the security infrastructure layer.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encoded string) (bool, error)
}

// Password is a value object wrapping a password hash and the time the
// password was last changed. Plaintext is never retained.
type Password struct {
	hash          string
	lastChangedAt *time.Time
}

// NewPassword validates the plaintext against the password policy and
// hashes it. Fails with a PolicyError before any hashing occurs when the
// plaintext is empty or too weak.
func NewPassword(plaintext string, hasher Hasher) (Password, error) {
	if err := CheckPasswordPolicy(plaintext); err != nil {
		return Password{}, err
	}

	hash, err := hasher.Hash(plaintext)
	if err != nil {
		return Password{}, err
	}

	return Password{hash: hash}, nil
}

// PasswordFromHash reconstructs a Password from its stored hash. The
// original plaintext policy is not re-checked; this is strictly for
// rehydration from the store.
func PasswordFromHash(hash string, lastChangedAt *time.Time) (Password, error) {
	if strings.TrimSpace(hash) == "" {
		return Password{}, NewValidationError("hash", "password hash is required")
	}
	return Password{hash: hash, lastChangedAt: lastChangedAt}, nil
}

// Hash returns the stored password hash.
func (p Password) Hash() string {
	return p.hash
}

// LastChangedAt returns when the password was last changed, or nil if it
// has never been changed since creation.
func (p Password) LastChangedAt() *time.Time {
	return p.lastChangedAt
}

// Verify checks the candidate plaintext against the stored hash.
func (p Password) Verify(plaintext string, hasher Hasher) (bool, error) {
	return hasher.Verify(plaintext, p.hash)
}

// Change validates the new plaintext against the same policy as
// NewPassword and returns a Password carrying the new hash and change
// time. The receiver is left untouched.
func (p Password) Change(newPlaintext string, hasher Hasher, now time.Time) (Password, error) {
	if err := CheckPasswordPolicy(newPlaintext); err != nil {
		return Password{}, err
	}

	hash, err := hasher.Hash(newPlaintext)
	if err != nil {
		return Password{}, err
	}

	changedAt := now.UTC()
	return Password{hash: hash, lastChangedAt: &changedAt}, nil
}

// IsExpired reports whether the password is older than maxAgeDays,
// measured from the last change. A password that was never changed has
// no expiry baseline and is never expired.
func (p Password) IsExpired(maxAgeDays int, now time.Time) bool {
	if p.lastChangedAt == nil {
		return false
	}
	age := now.UTC().Sub(*p.lastChangedAt)
	return int(age.Hours()/24) > maxAgeDays
}

// CheckPasswordPolicy applies the composite password rule: minimum
// length plus at least one uppercase letter, one lowercase letter, one
// digit, and one special character.
func CheckPasswordPolicy(plaintext string) error {
	if strings.TrimSpace(plaintext) == "" {
		return NewPolicyError("empty", "password is required")
	}

	if len([]rune(plaintext)) < MinPasswordLength {
		return NewPolicyError("min_length", "password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range plaintext {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(PasswordSpecialChars, r):
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return NewPolicyError("uppercase", "password must include an uppercase letter")
	case !hasLower:
		return NewPolicyError("lowercase", "password must include a lowercase letter")
	case !hasDigit:
		return NewPolicyError("digit", "password must include a digit")
	case !hasSpecial:
		return NewPolicyError("special", "password must include a special character")
	}

	return nil
}
