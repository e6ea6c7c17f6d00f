package domain

import "time"

const (
	// MaxFailedAttempts is the failed-attempt threshold that triggers an
	// automatic lock.
	MaxFailedAttempts = 5
	// LockoutDuration is the window after which a locked account becomes
	// eligible for unlock.
	LockoutDuration = 30 * time.Minute
)

// AccountLockStatus tracks failed credential checks and the lock window
// for a single account. The zero value is unlocked with no failures.
//
// The status never unlocks itself: callers observe ShouldUnlock and
// invoke Reset to perform the lazy unlock.
type AccountLockStatus struct {
	isLocked       bool
	lockoutEnd     *time.Time
	failedAttempts int
}

// NewAccountLockStatus returns an unlocked status with zero attempts.
func NewAccountLockStatus() AccountLockStatus {
	return AccountLockStatus{}
}

// RehydrateAccountLockStatus reconstructs a status from stored fields.
func RehydrateAccountLockStatus(isLocked bool, lockoutEnd *time.Time, failedAttempts int) AccountLockStatus {
	return AccountLockStatus{
		isLocked:       isLocked,
		lockoutEnd:     lockoutEnd,
		failedAttempts: failedAttempts,
	}
}

// IsLocked reports whether the account is currently locked.
func (s AccountLockStatus) IsLocked() bool { return s.isLocked }

// LockoutEnd returns when the active lock window ends, or nil when the
// account is not locked.
func (s AccountLockStatus) LockoutEnd() *time.Time { return s.lockoutEnd }

// FailedAttempts returns the consecutive failed attempt count.
func (s AccountLockStatus) FailedAttempts() int { return s.failedAttempts }

// IncrementFailedAttempts records one more failed credential check.
// Reaching the threshold locks the account for LockoutDuration from now.
func (s *AccountLockStatus) IncrementFailedAttempts(now time.Time) {
	s.failedAttempts++
	if s.failedAttempts >= MaxFailedAttempts {
		s.lock(now)
	}
}

// Lock force-locks the account without touching the attempt counter,
// for example as an administrative action.
func (s *AccountLockStatus) Lock(now time.Time) {
	s.lock(now)
}

func (s *AccountLockStatus) lock(now time.Time) {
	end := now.UTC().Add(LockoutDuration)
	s.isLocked = true
	s.lockoutEnd = &end
}

// Reset returns the status to unlocked with zero attempts.
func (s *AccountLockStatus) Reset() {
	s.isLocked = false
	s.lockoutEnd = nil
	s.failedAttempts = 0
}

// ShouldUnlock reports whether the account is locked and the lockout
// window has elapsed. It never mutates state.
func (s AccountLockStatus) ShouldUnlock(now time.Time) bool {
	if !s.isLocked || s.lockoutEnd == nil {
		return false
	}
	return !now.UTC().Before(*s.lockoutEnd)
}
