package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bureau-engine/internal/auth"
	"bureau-engine/internal/domain"
	"bureau-engine/internal/repository"
)

// DefaultTokenTTL is how long a session token stays valid.
const DefaultTokenTTL = 7 * 24 * time.Hour

// RegisterInput carries the fields of a new administrative account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Name     string
	Role     domain.Role
}

// AccountGuard verifies credentials, maintains the lockout state of accounts
// and issues session tokens.
type AccountGuard interface {
	Register(ctx context.Context, input RegisterInput) (*domain.AccountProfile, error)
	Authenticate(ctx context.Context, identifier, password string) (*domain.AccountProfile, error)
	IssueToken(accountID string) (string, time.Time, error)
	VerifyToken(token string) (string, error)
	ChangePassword(ctx context.Context, accountID, current, next string) error
	// ActiveAccount loads an account for an authenticated request.
	ActiveAccount(ctx context.Context, accountID string) (*domain.AccountProfile, error)
}

type GuardConfig struct {
	TokenTTL time.Duration
	Lock     domain.LockPolicy
	Logger   logrus.FieldLogger
	Now      func() time.Time
}

type accountGuard struct {
	accounts repository.AccountRepository
	hasher   auth.PasswordHasher
	tokens   auth.TokenIssuer
	cfg      GuardConfig

	decoyOnce sync.Once
	decoyHash string
}

func NewAccountGuard(accounts repository.AccountRepository, hasher auth.PasswordHasher, tokens auth.TokenIssuer, cfg GuardConfig) AccountGuard {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	def := domain.DefaultLockPolicy()
	if cfg.Lock.MaxAttempts <= 0 {
		cfg.Lock.MaxAttempts = def.MaxAttempts
	}
	if cfg.Lock.Duration <= 0 {
		cfg.Lock.Duration = def.Duration
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &accountGuard{
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		cfg:      cfg,
	}
}

func (g *accountGuard) Register(ctx context.Context, input RegisterInput) (*domain.AccountProfile, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)
	if input.Role == "" {
		input.Role = domain.RoleAdmin
	}
	if !input.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q", input.Role)
	}

	exists, err := g.accounts.ExistsByUsernameOrEmail(ctx, input.Username, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAccountExists
	}

	hash, err := g.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		ID:           uuid.NewString(),
		Username:     input.Username,
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: hash,
		Role:         input.Role,
		IsActive:     true,
	}
	if err := g.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrAccountExists
		}
		return nil, err
	}

	g.cfg.Logger.WithFields(logrus.Fields{
		"account_id": account.ID,
		"username":   account.Username,
		"role":       account.Role,
	}).Info("account registered")

	profile := account.Public()
	return &profile, nil
}

func (g *accountGuard) Authenticate(ctx context.Context, identifier, password string) (*domain.AccountProfile, error) {
	identifier = strings.TrimSpace(identifier)

	account, err := g.accounts.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			g.burnDecoy(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	if !account.IsActive {
		return nil, ErrAccountDeactivated
	}
	if account.Lock(g.cfg.Now()).Locked {
		return nil, ErrAccountLocked
	}

	ok, err := g.hasher.Verify(account.PasswordHash, password)
	if err != nil {
		return nil, err
	}

	if !ok {
		var locked bool
		_, err := g.accounts.Update(ctx, account.ID, func(a *domain.Account) error {
			locked = a.RecordFailure(g.cfg.Now(), g.cfg.Lock)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("record failed login: %w", err)
		}
		if locked {
			g.cfg.Logger.WithField("account_id", account.ID).Warn("account locked after repeated failed logins")
		}
		return nil, ErrInvalidCredentials
	}

	updated, err := g.accounts.Update(ctx, account.ID, func(a *domain.Account) error {
		// the row may have changed while the hash was being checked
		if !a.IsActive {
			return ErrAccountDeactivated
		}
		if a.Lock(g.cfg.Now()).Locked {
			return ErrAccountLocked
		}
		a.RecordSuccess(g.cfg.Now())
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAccountDeactivated) || errors.Is(err, ErrAccountLocked) {
			return nil, err
		}
		return nil, fmt.Errorf("record login: %w", err)
	}

	profile := updated.Public()
	return &profile, nil
}

func (g *accountGuard) IssueToken(accountID string) (string, time.Time, error) {
	return g.tokens.Sign(accountID, g.cfg.TokenTTL)
}

func (g *accountGuard) VerifyToken(token string) (string, error) {
	claims, err := g.tokens.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.AccountID, nil
}

func (g *accountGuard) ChangePassword(ctx context.Context, accountID, current, next string) error {
	account, err := g.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("load account: %w", err)
	}

	ok, err := g.hasher.Verify(account.PasswordHash, current)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := g.hasher.Hash(next)
	if err != nil {
		return err
	}

	verifiedHash := account.PasswordHash
	_, err = g.accounts.Update(ctx, accountID, func(a *domain.Account) error {
		if a.PasswordHash != verifiedHash {
			// changed by someone else since we verified it
			return ErrInvalidCredentials
		}
		a.PasswordHash = hash
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return err
		}
		return fmt.Errorf("save password: %w", err)
	}

	g.cfg.Logger.WithField("account_id", accountID).Info("password changed")
	return nil
}

func (g *accountGuard) ActiveAccount(ctx context.Context, accountID string) (*domain.AccountProfile, error) {
	account, err := g.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	if !account.IsActive {
		return nil, ErrAccountDeactivated
	}
	profile := account.Public()
	return &profile, nil
}

// burnDecoy spends one hash verification so unknown identifiers take as long
// as wrong passwords.
func (g *accountGuard) burnDecoy(password string) {
	g.decoyOnce.Do(func() {
		g.decoyHash, _ = g.hasher.Hash(uuid.NewString())
	})
	if g.decoyHash != "" {
		_, _ = g.hasher.Verify(g.decoyHash, password)
	}
}
