package store

import (
	"context"
	"errors"

	"github.com/payvia/payvia/internal/domain"
)

var (
	// ErrNotFound is returned when a key has no stored value.
	ErrNotFound = errors.New("not found")

	// ErrReadOnly is returned by write methods called inside View.
	ErrReadOnly = errors.New("read-only transaction")

	// ErrExists is returned when a create targets a key that already holds a value.
	ErrExists = errors.New("already exists")

	// ErrConflict is returned when a unit of work keeps losing to concurrent writers.
	ErrConflict = errors.New("transaction conflict")
)

// Store is the durable key-value collaborator. Every operation reads and writes
// through a Tx obtained from Update or View.
type Store interface {
	// Update runs fn as a single unit. Writes made through the Tx become
	// visible only if fn returns nil and the commit succeeds.
	Update(ctx context.Context, fn func(Tx) error) error
	// View runs fn as a read-only unit.
	View(ctx context.Context, fn func(Tx) error) error
}

// Tx exposes the named collections of the store. Reads observe writes made
// earlier in the same unit.
type Tx interface {
	Account(ctx context.Context, identity string) (domain.Account, error)
	// CreateAccount inserts a new account and fails with ErrExists when the
	// identity is taken, including by a concurrent unit.
	CreateAccount(ctx context.Context, account domain.Account) error
	// PutAccount overwrites an existing account; ErrNotFound if there is none.
	PutAccount(ctx context.Context, account domain.Account) error

	Payment(ctx context.Context, id string) (domain.Payment, error)
	PutPayment(ctx context.Context, payment domain.Payment) error
	PaymentsByOwner(ctx context.Context, owner string) ([]domain.Payment, error)

	Withdrawal(ctx context.Context, id string) (domain.Withdrawal, error)
	PutWithdrawal(ctx context.Context, withdrawal domain.Withdrawal) error
	WithdrawalsByOwner(ctx context.Context, owner string) ([]domain.Withdrawal, error)

	Admin(ctx context.Context) (string, error)
	// SetAdmin fills the administrator slot once; ErrExists if it is already set.
	SetAdmin(ctx context.Context, identity string) error
}
