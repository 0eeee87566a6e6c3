package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bureau-engine/internal/domain"
	"bureau-engine/internal/repository"
)

const createAccountsTable = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'admin',
	is_active INTEGER NOT NULL DEFAULT 1,
	failed_attempts INTEGER NOT NULL DEFAULT 0,
	locked_until DATETIME NULL,
	last_login_at DATETIME NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const selectAccount = `
SELECT id, username, email, name, password_hash, role, is_active, failed_attempts, locked_until, last_login_at, created_at, updated_at
FROM accounts`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) repository.AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createAccountsTable); err != nil {
		return fmt.Errorf("create accounts table: %w", err)
	}
	return nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	account.Email = strings.ToLower(account.Email)

	_, err := r.db.ExecContext(ctx, `
INSERT INTO accounts (id, username, email, name, password_hash, role, is_active, failed_attempts, locked_until, last_login_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Username,
		account.Email,
		account.Name,
		account.PasswordHash,
		string(account.Role),
		account.IsActive,
		account.FailedAttempts,
		nullTime(account.LockedUntil),
		nullTime(account.LastLoginAt),
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("account %q: %w", account.Username, repository.ErrAlreadyExists)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, selectAccount+`
WHERE username = ? OR email = ?
ORDER BY CASE WHEN username = ? THEN 0 ELSE 1 END
LIMIT 1`,
		identifier,
		strings.ToLower(identifier),
		identifier,
	)
	return scanAccount(row)
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, selectAccount+`
WHERE id = ?`,
		id,
	)
	return scanAccount(row)
}

func (r *AccountRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(1) FROM accounts WHERE username = ? OR email = ?`,
		username,
		strings.ToLower(email),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count accounts: %w", err)
	}
	return n > 0, nil
}

func (r *AccountRepository) Update(ctx context.Context, id string, mutate repository.AccountMutation) (*domain.Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	account, err := scanAccount(tx.QueryRowContext(ctx, selectAccount+`
WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}

	if err := mutate(account); err != nil {
		return nil, err
	}
	account.ID = id
	account.Email = strings.ToLower(account.Email)
	account.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
UPDATE accounts
SET username=?, email=?, name=?, password_hash=?, role=?, is_active=?, failed_attempts=?, locked_until=?, last_login_at=?, updated_at=?
WHERE id=?`,
		account.Username,
		account.Email,
		account.Name,
		account.PasswordHash,
		string(account.Role),
		account.IsActive,
		account.FailedAttempts,
		nullTime(account.LockedUntil),
		nullTime(account.LastLoginAt),
		account.UpdatedAt,
		id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("account %q: %w", account.Username, repository.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("update account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit account update: %w", err)
	}
	return account, nil
}

func scanAccount(row interface {
	Scan(dest ...any) error
}) (*domain.Account, error) {
	var (
		account     domain.Account
		role        string
		lockedUntil sql.NullTime
		lastLoginAt sql.NullTime
	)
	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.Name,
		&account.PasswordHash,
		&role,
		&account.IsActive,
		&account.FailedAttempts,
		&lockedUntil,
		&lastLoginAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	account.Role = domain.Role(role)
	account.LockedUntil = timePtr(lockedUntil)
	account.LastLoginAt = timePtr(lastLoginAt)
	account.CreatedAt = account.CreatedAt.UTC()
	account.UpdatedAt = account.UpdatedAt.UTC()
	return &account, nil
}
