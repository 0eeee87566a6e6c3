package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bureau-engine/internal/domain"
	"bureau-engine/internal/repository"
)

func newAccount(id, username, email string) *domain.Account {
	return &domain.Account{
		ID:           id,
		Username:     username,
		Email:        email,
		Name:         "Test " + username,
		PasswordHash: "$2a$10$hash",
		Role:         domain.RoleAdmin,
		IsActive:     true,
	}
}

func TestAccountRepository_CreateAndFind(t *testing.T) {
	db := openTestDB(t)
	initAll(t, db)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newAccount("a1", "alice", "Alice@Example.com")))

	byName, err := repo.FindByIdentifier(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "a1", byName.ID)
	assert.Equal(t, "alice@example.com", byName.Email)
	assert.True(t, byName.IsActive)
	assert.Nil(t, byName.LockedUntil)

	byEmail, err := repo.FindByIdentifier(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a1", byEmail.ID)

	_, err = repo.FindByIdentifier(ctx, "Alice")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAccountRepository_Duplicates(t *testing.T) {
	db := openTestDB(t)
	initAll(t, db)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newAccount("a1", "alice", "alice@example.com")))

	err := repo.Create(ctx, newAccount("a2", "alice", "other@example.com"))
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)
	err = repo.Create(ctx, newAccount("a3", "bob", "ALICE@example.com"))
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)

	exists, err := repo.ExistsByUsernameOrEmail(ctx, "nobody", "Alice@Example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsByUsernameOrEmail(ctx, "nobody", "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAccountRepository_UpdatePersistsLockState(t *testing.T) {
	db := openTestDB(t)
	initAll(t, db)
	repo := NewAccountRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newAccount("a1", "alice", "alice@example.com")))

	until := time.Date(2025, 5, 1, 14, 0, 0, 0, time.UTC)
	updated, err := repo.Update(ctx, "a1", func(a *domain.Account) error {
		a.FailedAttempts = 5
		a.LockedUntil = &until
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.FailedAttempts)

	got, err := repo.FindByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.FailedAttempts)
	require.NotNil(t, got.LockedUntil)
	assert.True(t, until.Equal(*got.LockedUntil))

	_, err = repo.Update(ctx, "a1", func(a *domain.Account) error {
		a.RecordSuccess(until)
		return nil
	})
	require.NoError(t, err)
	got, err = repo.FindByID(ctx, "a1")
	require.NoError(t, err)
	assert.Zero(t, got.FailedAttempts)
	assert.Nil(t, got.LockedUntil)
	require.NotNil(t, got.LastLoginAt)
}

func TestAccountRepository_UpdateAbortsOnMutationError(t *testing.T) {
	db := openTestDB(t)
	initAll(t, db)
	repo := NewAccountRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newAccount("a1", "alice", "alice@example.com")))

	_, err := repo.Update(ctx, "a1", func(a *domain.Account) error {
		a.FailedAttempts = 3
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	got, err := repo.FindByID(ctx, "a1")
	require.NoError(t, err)
	assert.Zero(t, got.FailedAttempts)

	_, err = repo.Update(ctx, "missing", func(*domain.Account) error { return nil })
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAccountRepository_ConcurrentUpdatesAreSerialized(t *testing.T) {
	db := openTestDB(t)
	initAll(t, db)
	repo := NewAccountRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newAccount("a1", "alice", "alice@example.com")))

	const workers = 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Update(ctx, "a1", func(a *domain.Account) error {
				a.FailedAttempts++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.FindByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, workers, got.FailedAttempts)
}
