package admin

import (
	"context"
	"errors"
	"strings"

	"github.com/payvia/payvia/internal/store"
)

var (
	// ErrUnauthorized is returned when a non-administrator calls an admin-gated operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyInitialized is returned when a different administrator is already recorded.
	ErrAlreadyInitialized = errors.New("administrator already initialized")

	// ErrInvalidIdentity rejects an empty administrator identity or one with
	// surrounding whitespace.
	ErrInvalidIdentity = errors.New("administrator identity is required")
)

// Init records identity as the administrator. The slot is written once;
// repeating Init with the same identity is a no-op, including when another
// instance won the race to fill it.
func Init(ctx context.Context, s store.Store, identity string) error {
	if identity == "" || identity != strings.TrimSpace(identity) {
		return ErrInvalidIdentity
	}
	err := s.Update(ctx, func(tx store.Tx) error {
		current, err := tx.Admin(ctx)
		switch {
		case err == nil && current == identity:
			return nil
		case err == nil:
			return ErrAlreadyInitialized
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		return tx.SetAdmin(ctx, identity)
	})
	if !errors.Is(err, store.ErrExists) {
		return err
	}
	current, err := Identity(ctx, s)
	if err != nil {
		return err
	}
	if current != identity {
		return ErrAlreadyInitialized
	}
	return nil
}

// Authorize checks caller against the recorded administrator inside an
// existing unit of work.
func Authorize(ctx context.Context, tx store.Tx, caller string) error {
	current, err := tx.Admin(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if caller == "" || caller != current {
		return ErrUnauthorized
	}
	return nil
}

// Check is Authorize in its own read-only unit.
func Check(ctx context.Context, s store.Store, caller string) error {
	return s.View(ctx, func(tx store.Tx) error {
		return Authorize(ctx, tx, caller)
	})
}

// Identity returns the recorded administrator.
func Identity(ctx context.Context, s store.Store) (string, error) {
	var identity string
	err := s.View(ctx, func(tx store.Tx) error {
		var err error
		identity, err = tx.Admin(ctx)
		return err
	})
	return identity, err
}
