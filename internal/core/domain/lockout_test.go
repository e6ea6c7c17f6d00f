package domain

import (
	"testing"
	"time"
)

func TestLockStatusZeroValueIsUnlocked(t *testing.T) {
	status := NewAccountLockStatus()

	if status.IsLocked() {
		t.Error("fresh status must be unlocked")
	}
	if status.FailedAttempts() != 0 {
		t.Errorf("fresh status has %d attempts", status.FailedAttempts())
	}
	if status.LockoutEnd() != nil {
		t.Error("fresh status must have no lockout end")
	}
}

func TestLockStatusLocksAtThreshold(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	status := NewAccountLockStatus()

	for i := 0; i < MaxFailedAttempts-1; i++ {
		status.IncrementFailedAttempts(now)
		if status.IsLocked() {
			t.Fatalf("locked after %d attempts, threshold is %d", i+1, MaxFailedAttempts)
		}
	}

	status.IncrementFailedAttempts(now)
	if !status.IsLocked() {
		t.Fatal("expected lock at threshold")
	}
	if status.FailedAttempts() != MaxFailedAttempts {
		t.Errorf("unexpected attempt count %d", status.FailedAttempts())
	}

	end := status.LockoutEnd()
	if end == nil {
		t.Fatal("locked status must carry a lockout end")
	}
	if want := now.Add(LockoutDuration); !end.Equal(want) {
		t.Errorf("lockout end %v, want %v", end, want)
	}
}

func TestLockStatusShouldUnlockOnlyAfterWindow(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	status := NewAccountLockStatus()
	status.Lock(now)

	if status.ShouldUnlock(now) {
		t.Error("freshly locked status must not unlock")
	}
	if status.ShouldUnlock(now.Add(LockoutDuration - time.Second)) {
		t.Error("status must not unlock inside the window")
	}
	if !status.ShouldUnlock(now.Add(LockoutDuration)) {
		t.Error("status must unlock exactly at the window boundary")
	}
	if !status.ShouldUnlock(now.Add(LockoutDuration + time.Hour)) {
		t.Error("status must unlock after the window")
	}

	if status.IsLocked() != true {
		t.Error("ShouldUnlock must not mutate lock state")
	}
}

func TestLockStatusShouldUnlockFalseWhenUnlocked(t *testing.T) {
	status := NewAccountLockStatus()
	if status.ShouldUnlock(time.Now()) {
		t.Error("unlocked status never reports ShouldUnlock")
	}
}

func TestLockStatusReset(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	status := NewAccountLockStatus()
	for i := 0; i < MaxFailedAttempts; i++ {
		status.IncrementFailedAttempts(now)
	}

	status.Reset()

	if status.IsLocked() {
		t.Error("reset status must be unlocked")
	}
	if status.FailedAttempts() != 0 {
		t.Errorf("reset status has %d attempts", status.FailedAttempts())
	}
	if status.LockoutEnd() != nil {
		t.Error("reset status must have no lockout end")
	}
}

func TestLockStatusForceLockKeepsCounter(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	status := NewAccountLockStatus()
	status.IncrementFailedAttempts(now)

	status.Lock(now)

	if !status.IsLocked() {
		t.Fatal("expected lock")
	}
	if status.FailedAttempts() != 1 {
		t.Errorf("force lock must not touch the counter, got %d", status.FailedAttempts())
	}
}

func TestRehydrateAccountLockStatus(t *testing.T) {
	end := time.Date(2026, 4, 1, 11, 0, 0, 0, time.UTC)
	status := RehydrateAccountLockStatus(true, &end, 5)

	if !status.IsLocked() || status.FailedAttempts() != 5 {
		t.Error("rehydrated status lost fields")
	}
	if !status.ShouldUnlock(end.Add(time.Minute)) {
		t.Error("rehydrated status must honor the stored lockout end")
	}
}
