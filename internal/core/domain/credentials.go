package domain

import (
	"net/mail"
	"regexp"
	"strings"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 64
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	tokenPattern    = regexp.MustCompile(`^[A-Za-z0-9_-]{16,}$`)
)

// Username is a validated account name.
type Username struct {
	value string
}

// NewUsername validates and normalizes a username.
func NewUsername(raw string) (Username, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Username{}, NewValidationError("username", "username is required")
	}
	if len(value) < minUsernameLength || len(value) > maxUsernameLength {
		return Username{}, NewValidationError("username", "username must be between 3 and 64 characters")
	}
	if !usernamePattern.MatchString(value) {
		return Username{}, NewValidationError("username", "username may only contain letters, digits, dot, underscore and dash")
	}
	return Username{value: strings.ToLower(value)}, nil
}

// String returns the normalized username.
func (u Username) String() string { return u.value }

// Email is a validated email address.
type Email struct {
	value string
}

// NewEmail validates and normalizes an email address.
func NewEmail(raw string) (Email, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Email{}, NewValidationError("email", "email is required")
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return Email{}, NewValidationError("email", "email address is malformed")
	}
	return Email{value: strings.ToLower(value)}, nil
}

// String returns the normalized email address.
func (e Email) String() string { return e.value }

// PhoneNumber is a validated phone number in loose E.164 form.
type PhoneNumber struct {
	value string
}

// NewPhoneNumber validates a phone number.
func NewPhoneNumber(raw string) (PhoneNumber, error) {
	value := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if value == "" {
		return PhoneNumber{}, NewValidationError("phone", "phone number is required")
	}
	if !phonePattern.MatchString(value) {
		return PhoneNumber{}, NewValidationError("phone", "phone number is malformed")
	}
	return PhoneNumber{value: value}, nil
}

// String returns the normalized phone number.
func (p PhoneNumber) String() string { return p.value }

// SecurityToken wraps an opaque single-use token value, such as a
// password reset or verification token.
type SecurityToken struct {
	value string
}

// NewSecurityToken validates a token value.
func NewSecurityToken(raw string) (SecurityToken, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return SecurityToken{}, NewValidationError("token", "token is required")
	}
	if !tokenPattern.MatchString(value) {
		return SecurityToken{}, NewValidationError("token", "token is malformed")
	}
	return SecurityToken{value: value}, nil
}

// String returns the token value.
func (t SecurityToken) String() string { return t.value }
