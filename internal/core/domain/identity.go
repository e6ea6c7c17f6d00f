package domain

import "time"

// UserStatus enumerates possible account states.
type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// User mirrors the persisted representation in the users table. Lock
// state, password and security questions are rehydrated into their
// value objects by the repositories.
type User struct {
	ID               string
	Username         string
	Email            string
	Phone            *string
	PasswordHash     string
	PasswordChangeAt *time.Time
	Status           UserStatus
	IsLocked         bool
	LockoutEnd       *time.Time
	FailedAttempts   int
	TwoFactorSecret  *string
	Settings         SecuritySettings
	RegisteredAt     time.Time
	LastLogin        *time.Time
}

// Password rehydrates the password value object from stored fields.
func (u User) Password() (Password, error) {
	return PasswordFromHash(u.PasswordHash, u.PasswordChangeAt)
}

// LockStatus rehydrates the account lock state machine.
func (u User) LockStatus() AccountLockStatus {
	return RehydrateAccountLockStatus(u.IsLocked, u.LockoutEnd, u.FailedAttempts)
}

// ApplyLockStatus writes the lock state machine back onto the user row.
func (u *User) ApplyLockStatus(status AccountLockStatus) {
	u.IsLocked = status.IsLocked()
	u.LockoutEnd = status.LockoutEnd()
	u.FailedAttempts = status.FailedAttempts()
}

// LoginAttempt records authentication attempts for throttling and audit.
type LoginAttempt struct {
	ID              string
	UserID          *string
	UsernameOrEmail string
	Succeeded       bool
	FailureReason   *string
	IP              *string
	UserAgent       *string
	CreatedAt       time.Time
}

// StoredSecurityQuestion is the persisted shape of a security question
// row belonging to a user.
type StoredSecurityQuestion struct {
	ID             string
	UserID         string
	Position       int
	Question       string
	HashedAnswer   string
	CreatedAt      time.Time
	LastUsedAt     *time.Time
	FailedAttempts int
}
