package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/dide/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict is returned when a write violates the unique index on the
	// normalized TOTP secret hash.
	ErrConflict = errors.New("store: unique constraint violated")
)

// Store is implemented by the sqlite and postgres drivers. Repositories
// hang off it so the same code runs inside and outside a transaction.
type Store interface {
	Accounts() Accounts

	// ApplyMigrations brings the schema up to date. It is run once at boot.
	ApplyMigrations() error

	// Tx begins a transaction. The caller must Commit or Rollback it;
	// Rollback after Commit is a no-op. Tx and WithTx on a Tx fail.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing only if fn returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Ping(ctx context.Context) error
	Close() error
}

// Tx is a Store bound to one open transaction.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// CreateAccount inserts a new account and returns its id. The secret and
	// hash are written as given; callers enforce role policy.
	CreateAccount(ctx context.Context, a domain.Account) (int64, error)

	// GetAccountByID returns an account by id.
	GetAccountByID(ctx context.Context, id int64) (domain.Account, error)

	// GetAccountByUsername is used during login; matching is case-insensitive.
	GetAccountByUsername(ctx context.Context, username string) (domain.Account, error)

	// SetTwoFactorSecret stores a plaintext secret together with its
	// normalized hash and enables 2FA in one statement. Returns ErrConflict
	// when another supervisor already holds the same hash.
	SetTwoFactorSecret(ctx context.Context, id int64, secret, normHash string) error

	// ReplaceTwoFactorSecret swaps expected for replacement only if the
	// column still holds expected. Reports whether a row changed.
	ReplaceTwoFactorSecret(ctx context.Context, id int64, expected, replacement string) (bool, error)

	// ClearTwoFactorSecret empties the secret and hash and disables 2FA.
	ClearTwoFactorSecret(ctx context.Context, id int64) error

	// UpdateRole changes the role. Any role other than supervisor clears the
	// secret and hash in the same statement.
	UpdateRole(ctx context.Context, id int64, role domain.Role) error

	// ListPlaintextSecretAccounts returns ids of supervisors whose stored
	// secret is non-empty and not yet sealed.
	ListPlaintextSecretAccounts(ctx context.Context) ([]int64, error)

	// DeleteAccount removes an account.
	DeleteAccount(ctx context.Context, id int64) error

	// IsEmpty returns true if there are no accounts.
	IsEmpty(ctx context.Context) (bool, error)
}

// RunInTx begins a transaction with begin, runs fn in it and commits when fn
// succeeds. Drivers implement WithTx with it.
func RunInTx(ctx context.Context, begin func(context.Context) (Tx, error), fn func(Tx) error) error {
	tx, err := begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
