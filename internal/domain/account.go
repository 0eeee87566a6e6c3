package domain

import "time"

// Role is the privilege level of an administrative account.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super-admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Account represents an administrative credential record.
type Account struct {
	ID             string
	Username       string
	Email          string
	Name           string
	PasswordHash   string
	Role           Role
	IsActive       bool
	FailedAttempts int
	LockedUntil    *time.Time
	LastLoginAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LockPolicy configures when repeated failures lock an account and for how long.
type LockPolicy struct {
	MaxAttempts int
	Duration    time.Duration
}

// DefaultLockPolicy locks for two hours after five consecutive failures.
func DefaultLockPolicy() LockPolicy {
	return LockPolicy{MaxAttempts: 5, Duration: 2 * time.Hour}
}

// LockState is the lockout status of an account evaluated at a point in time.
type LockState struct {
	Locked bool
	Until  time.Time
}

// EvaluateLock derives the lock state from the stored expiry. Expired locks
// read as unlocked; nothing clears them in the background.
func EvaluateLock(lockedUntil *time.Time, now time.Time) LockState {
	if lockedUntil == nil || !lockedUntil.After(now) {
		return LockState{}
	}
	return LockState{Locked: true, Until: *lockedUntil}
}

// Lock returns the account's lock state at now.
func (a *Account) Lock(now time.Time) LockState {
	return EvaluateLock(a.LockedUntil, now)
}

// RecordFailure applies a failed verification to the account. It reports
// whether this failure locked the account.
func (a *Account) RecordFailure(now time.Time, policy LockPolicy) bool {
	if a.Lock(now).Locked {
		return false
	}
	if a.LockedUntil != nil {
		// stale lock from an earlier window
		a.LockedUntil = nil
		a.FailedAttempts = 0
	}

	a.FailedAttempts++
	if a.FailedAttempts < policy.MaxAttempts {
		return false
	}
	until := now.Add(policy.Duration)
	a.LockedUntil = &until
	return true
}

// RecordSuccess resets the lockout counters after a verified login.
func (a *Account) RecordSuccess(now time.Time) {
	a.FailedAttempts = 0
	a.LockedUntil = nil
	loginAt := now
	a.LastLoginAt = &loginAt
}

// Public returns the projection of the account that is safe to hand to clients.
func (a *Account) Public() AccountProfile {
	return AccountProfile{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		Name:        a.Name,
		Role:        a.Role,
		LastLoginAt: a.LastLoginAt,
	}
}

// AccountProfile is an account without credentials or lockout counters.
type AccountProfile struct {
	ID          string
	Username    string
	Email       string
	Name        string
	Role        Role
	LastLoginAt *time.Time
}
