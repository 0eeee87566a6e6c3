package repository

import (
	"context"

	"bureau-engine/internal/domain"
)

// AccountMutation edits a freshly loaded account inside the store's
// serialization point. Returning an error aborts the write.
type AccountMutation func(account *domain.Account) error

// AccountRepository defines persistence operations for Account records.
type AccountRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, account *domain.Account) error
	// FindByIdentifier matches the username exactly or the email case-insensitively.
	FindByIdentifier(ctx context.Context, identifier string) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	// Update atomically re-reads the account, applies mutate and saves the
	// full record. Concurrent updates of the same account never overwrite
	// each other's changes.
	Update(ctx context.Context, id string, mutate AccountMutation) (*domain.Account, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
}
