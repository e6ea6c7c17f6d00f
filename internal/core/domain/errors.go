package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAccountLocked indicates the account is locked and the lockout window has not elapsed.
	ErrAccountLocked = errors.New("account is locked")
	// ErrPasswordExpired indicates the password exceeded its maximum age and must be changed.
	ErrPasswordExpired = errors.New("password has expired")
	// ErrInvalidCredentials indicates the supplied credentials did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports an empty or out-of-range required field.
// It is raised synchronously, before any I/O is attempted.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// FormatError reports a malformed identifier, such as a non-UUID string
// where a UUID is expected. Raised before the store or cache is touched.
type FormatError struct {
	Field string
	Value string
}

// Error implements error.
func (e *FormatError) Error() string {
	return fmt.Sprintf("format: %s: %q is not a valid identifier", e.Field, e.Value)
}

// NewFormatError builds a FormatError for the given field and offending value.
func NewFormatError(field, value string) *FormatError {
	return &FormatError{Field: field, Value: value}
}

// PolicyError reports a violated construction or mutation policy, such as
// a too-weak password or a security question set of the wrong size.
type PolicyError struct {
	Code    string
	Message string
}

// Error implements error.
func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy: %s: %s", e.Code, e.Message)
}

// NewPolicyError builds a PolicyError with the given code.
func NewPolicyError(code, message string) *PolicyError {
	return &PolicyError{Code: code, Message: message}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPolicyError reports whether err is (or wraps) a PolicyError.
func IsPolicyError(err error) bool {
	var pe *PolicyError
	return errors.As(err, &pe)
}

// IsFormatError reports whether err is (or wraps) a FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
