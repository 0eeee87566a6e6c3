package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bureau-engine/internal/auth"
	"bureau-engine/internal/domain"
)

type guardFixture struct {
	guard    AccountGuard
	accounts *fakeAccounts
	hasher   *countingHasher
	clock    *clock
	logs     *test.Hook
	id       string
}

const fixturePassword = "s3cret-pass"

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()

	logger, hook := test.NewNullLogger()
	f := &guardFixture{
		accounts: newFakeAccounts(),
		hasher:   newCountingHasher(),
		clock:    newClock(),
		logs:     hook,
	}
	f.guard = NewAccountGuard(
		f.accounts,
		f.hasher,
		auth.NewJWTIssuer("test-secret", "bureau").WithClock(f.clock.Now),
		GuardConfig{Logger: logger, Now: f.clock.Now},
	)

	profile, err := f.guard.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: fixturePassword,
		Name:     "Alice",
	})
	require.NoError(t, err)
	f.id = profile.ID
	return f
}

func (f *guardFixture) fail(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := f.guard.Authenticate(context.Background(), "alice", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
}

func TestRegister(t *testing.T) {
	f := newGuardFixture(t)

	a := f.accounts.get(f.id)
	assert.Equal(t, "alice@example.com", a.Email)
	assert.Equal(t, domain.RoleAdmin, a.Role)
	assert.True(t, a.IsActive)
	assert.Zero(t, a.FailedAttempts)
	assert.NotEqual(t, fixturePassword, a.PasswordHash)

	_, err := f.guard.Register(context.Background(), RegisterInput{
		Username: "alice", Email: "other@example.com", Password: "password1", Name: "A",
	})
	assert.ErrorIs(t, err, ErrAccountExists)

	_, err = f.guard.Register(context.Background(), RegisterInput{
		Username: "alice2", Email: "ALICE@example.COM", Password: "password1", Name: "A",
	})
	assert.ErrorIs(t, err, ErrAccountExists)
}

func TestAuthenticate_Success(t *testing.T) {
	f := newGuardFixture(t)
	f.fail(t, 2)

	profile, err := f.guard.Authenticate(context.Background(), "alice", fixturePassword)
	require.NoError(t, err)
	assert.Equal(t, f.id, profile.ID)
	assert.Equal(t, "alice", profile.Username)
	require.NotNil(t, profile.LastLoginAt)
	assert.Equal(t, f.clock.Now(), *profile.LastLoginAt)

	a := f.accounts.get(f.id)
	assert.Zero(t, a.FailedAttempts)
	assert.Nil(t, a.LockedUntil)
}

func TestAuthenticate_ByEmailIgnoresCase(t *testing.T) {
	f := newGuardFixture(t)

	profile, err := f.guard.Authenticate(context.Background(), "ALICE@example.com", fixturePassword)
	require.NoError(t, err)
	assert.Equal(t, f.id, profile.ID)
}

func TestAuthenticate_UnknownIdentifier(t *testing.T) {
	f := newGuardFixture(t)
	before := f.accounts.updateCount()

	_, err := f.guard.Authenticate(context.Background(), "mallory", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, before, f.accounts.updateCount())
	// a decoy verification still runs
	assert.Equal(t, int64(1), f.hasher.verifies.Load())
}

func TestAuthenticate_WrongPasswordCounts(t *testing.T) {
	f := newGuardFixture(t)
	f.fail(t, 3)

	a := f.accounts.get(f.id)
	assert.Equal(t, 3, a.FailedAttempts)
	assert.Nil(t, a.LockedUntil)
}

func TestAuthenticate_LocksAfterFiveFailures(t *testing.T) {
	f := newGuardFixture(t)
	f.fail(t, 5)

	a := f.accounts.get(f.id)
	assert.Equal(t, 5, a.FailedAttempts)
	require.NotNil(t, a.LockedUntil)
	assert.Equal(t, f.clock.Now().Add(2*time.Hour), *a.LockedUntil)

	var warned bool
	for _, e := range f.logs.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestAuthenticate_LockedSkipsHashAndCounters(t *testing.T) {
	f := newGuardFixture(t)
	f.fail(t, 5)
	locked := f.accounts.get(f.id)
	verifies := f.hasher.verifies.Load()
	updates := f.accounts.updateCount()

	_, err := f.guard.Authenticate(context.Background(), "alice", fixturePassword)
	assert.ErrorIs(t, err, ErrAccountLocked)
	_, err = f.guard.Authenticate(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrAccountLocked)

	assert.Equal(t, verifies, f.hasher.verifies.Load())
	assert.Equal(t, updates, f.accounts.updateCount())
	assert.Equal(t, locked, f.accounts.get(f.id))
}

func TestAuthenticate_LockExpires(t *testing.T) {
	f := newGuardFixture(t)
	f.fail(t, 5)

	f.clock.Advance(2*time.Hour - time.Second)
	_, err := f.guard.Authenticate(context.Background(), "alice", fixturePassword)
	require.ErrorIs(t, err, ErrAccountLocked)

	f.clock.Advance(2 * time.Second)
	profile, err := f.guard.Authenticate(context.Background(), "alice", fixturePassword)
	require.NoError(t, err)
	assert.Equal(t, f.id, profile.ID)

	a := f.accounts.get(f.id)
	assert.Zero(t, a.FailedAttempts)
	assert.Nil(t, a.LockedUntil)
}

func TestAuthenticate_FailureAfterExpiredLockRestartsCount(t *testing.T) {
	f := newGuardFixture(t)
	f.fail(t, 5)
	f.clock.Advance(2*time.Hour + time.Minute)

	f.fail(t, 1)

	a := f.accounts.get(f.id)
	assert.Equal(t, 1, a.FailedAttempts)
	assert.Nil(t, a.LockedUntil)
}

func TestAuthenticate_Deactivated(t *testing.T) {
	f := newGuardFixture(t)
	a := f.accounts.get(f.id)
	a.IsActive = false
	f.accounts.put(a)
	updates := f.accounts.updateCount()

	_, err := f.guard.Authenticate(context.Background(), "alice", fixturePassword)
	assert.ErrorIs(t, err, ErrAccountDeactivated)
	_, err = f.guard.Authenticate(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrAccountDeactivated)
	assert.Equal(t, updates, f.accounts.updateCount())
	assert.Zero(t, f.accounts.get(f.id).FailedAttempts)
}

func TestAuthenticate_RechecksRowAfterPasswordMatch(t *testing.T) {
	tests := []struct {
		name   string
		change func(*domain.Account, time.Time)
		want   error
	}{
		{
			name:   "deactivated meanwhile",
			change: func(a *domain.Account, _ time.Time) { a.IsActive = false },
			want:   ErrAccountDeactivated,
		},
		{
			name: "locked meanwhile",
			change: func(a *domain.Account, now time.Time) {
				until := now.Add(time.Hour)
				a.FailedAttempts, a.LockedUntil = 5, &until
			},
			want: ErrAccountLocked,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGuardFixture(t)
			f.hasher.onVerify = func() {
				a := f.accounts.get(f.id)
				tt.change(&a, f.clock.Now())
				f.accounts.put(a)
			}

			profile, err := f.guard.Authenticate(context.Background(), "alice", fixturePassword)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, profile)
			assert.Nil(t, f.accounts.get(f.id).LastLoginAt)
		})
	}
}

func TestAuthenticate_ConcurrentFailuresAreNotLost(t *testing.T) {
	f := newGuardFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.guard.Authenticate(context.Background(), "alice", "wrong")
		}()
	}
	wg.Wait()
	assert.Equal(t, 4, f.accounts.get(f.id).FailedAttempts)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.guard.Authenticate(context.Background(), "alice", "wrong")
		}()
	}
	wg.Wait()

	a := f.accounts.get(f.id)
	assert.Equal(t, 5, a.FailedAttempts)
	assert.NotNil(t, a.LockedUntil)
}

func TestTokens(t *testing.T) {
	f := newGuardFixture(t)

	token, expiresAt, err := f.guard.IssueToken(f.id)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().Add(DefaultTokenTTL), expiresAt)

	id, err := f.guard.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, f.id, id)

	_, err = f.guard.VerifyToken(token + "x")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	f.clock.Advance(DefaultTokenTTL + time.Second)
	_, err = f.guard.VerifyToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestChangePassword(t *testing.T) {
	f := newGuardFixture(t)
	ctx := context.Background()

	err := f.guard.ChangePassword(ctx, f.id, "wrong", "new-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.guard.Authenticate(ctx, "alice", fixturePassword)
	require.NoError(t, err)

	require.NoError(t, f.guard.ChangePassword(ctx, f.id, fixturePassword, "new-password"))

	_, err = f.guard.Authenticate(ctx, "alice", fixturePassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.guard.Authenticate(ctx, "alice", "new-password")
	assert.NoError(t, err)
}

func TestChangePassword_LeavesLockStateAlone(t *testing.T) {
	f := newGuardFixture(t)
	f.fail(t, 5)
	before := f.accounts.get(f.id)

	require.NoError(t, f.guard.ChangePassword(context.Background(), f.id, fixturePassword, "new-password"))

	after := f.accounts.get(f.id)
	assert.Equal(t, before.FailedAttempts, after.FailedAttempts)
	assert.Equal(t, before.LockedUntil, after.LockedUntil)
	assert.NotEqual(t, before.PasswordHash, after.PasswordHash)

	_, err := f.guard.Authenticate(context.Background(), "alice", "new-password")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestChangePassword_UnknownAccount(t *testing.T) {
	f := newGuardFixture(t)
	err := f.guard.ChangePassword(context.Background(), "missing", "a", "b")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestActiveAccount(t *testing.T) {
	f := newGuardFixture(t)
	ctx := context.Background()

	profile, err := f.guard.ActiveAccount(ctx, f.id)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)

	_, err = f.guard.ActiveAccount(ctx, "missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	a := f.accounts.get(f.id)
	a.IsActive = false
	f.accounts.put(a)
	_, err = f.guard.ActiveAccount(ctx, f.id)
	assert.ErrorIs(t, err, ErrAccountDeactivated)
}
