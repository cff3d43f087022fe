package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/payvia/payvia/internal/clock"
	"github.com/payvia/payvia/internal/domain"
	"github.com/payvia/payvia/internal/metrics"
	"github.com/payvia/payvia/internal/store"
)

var (
	// ErrNotFound indicates no account is registered for the identity.
	ErrNotFound = errors.New("account not found")

	// ErrDuplicate indicates the identity already has an account.
	ErrDuplicate = errors.New("account already exists")

	// ErrInvalidIdentity rejects an empty identity or one with surrounding whitespace.
	ErrInvalidIdentity = errors.New("identity is required")

	// ErrNegativeBalance guards the non-negative balance invariant.
	ErrNegativeBalance = errors.New("balance cannot be negative")
)

// Registry owns the identity to account mapping.
type Registry struct {
	store store.Store
	clock clock.Clock
}

// NewRegistry builds an account registry.
func NewRegistry(s store.Store, c clock.Clock) *Registry {
	return &Registry{store: s, clock: c}
}

// Register creates an unverified, zero-balance account for identity.
// Identities are stored exactly as given, so surrounding whitespace is rejected
// rather than trimmed.
func (r *Registry) Register(ctx context.Context, identity, contact string) (domain.Account, error) {
	if identity == "" || identity != strings.TrimSpace(identity) {
		return domain.Account{}, ErrInvalidIdentity
	}

	var created domain.Account
	err := r.store.Update(ctx, func(tx store.Tx) error {
		created = domain.Account{
			Identity:  identity,
			Contact:   contact,
			CreatedAt: r.clock.Now(),
		}
		err := tx.CreateAccount(ctx, created)
		if errors.Is(err, store.ErrExists) {
			return ErrDuplicate
		}
		return err
	})
	metrics.Record("account.register", err)
	if err != nil {
		return domain.Account{}, err
	}
	return created, nil
}

// Get returns the account registered for identity.
func (r *Registry) Get(ctx context.Context, identity string) (domain.Account, error) {
	var acct domain.Account
	err := r.store.View(ctx, func(tx store.Tx) error {
		var err error
		acct, err = Lookup(ctx, tx, identity)
		return err
	})
	return acct, err
}

// Verify marks the account as verified. Verifying twice is not an error.
func (r *Registry) Verify(ctx context.Context, identity string) error {
	err := r.store.Update(ctx, func(tx store.Tx) error {
		acct, err := Lookup(ctx, tx, identity)
		if err != nil {
			return err
		}
		if acct.Verified {
			return nil
		}
		acct.Verified = true
		return tx.PutAccount(ctx, acct)
	})
	metrics.Record("account.verify", err)
	return err
}

// Balance returns the current balance for identity.
func (r *Registry) Balance(ctx context.Context, identity string) (int64, error) {
	acct, err := r.Get(ctx, identity)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// Lookup loads an account inside an existing unit of work, translating a
// missing key into ErrNotFound.
func Lookup(ctx context.Context, tx store.Tx, identity string) (domain.Account, error) {
	acct, err := tx.Account(ctx, identity)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Account{}, ErrNotFound
		}
		return domain.Account{}, fmt.Errorf("load account %s: %w", identity, err)
	}
	return acct, nil
}

// SetBalance writes a new balance for acct. It is the only path through which
// balances change.
func SetBalance(ctx context.Context, tx store.Tx, acct domain.Account, balance int64) (domain.Account, error) {
	if balance < 0 {
		return domain.Account{}, ErrNegativeBalance
	}
	acct.Balance = balance
	if err := tx.PutAccount(ctx, acct); err != nil {
		return domain.Account{}, err
	}
	return acct, nil
}
