package withdrawals

import (
	"context"
	"errors"
	"fmt"

	"github.com/payvia/payvia/internal/admin"
	"github.com/payvia/payvia/internal/clock"
	"github.com/payvia/payvia/internal/domain"
	"github.com/payvia/payvia/internal/ids"
	"github.com/payvia/payvia/internal/ledger"
	"github.com/payvia/payvia/internal/metrics"
	"github.com/payvia/payvia/internal/notification"
	"github.com/payvia/payvia/internal/store"
)

// ErrNotFound indicates no withdrawal request exists for the id.
var ErrNotFound = errors.New("withdrawal not found")

// Service records cash-out requests. The local currency amount is supplied by
// the caller and stored as given.
type Service struct {
	store    store.Store
	clock    clock.Clock
	ids      *ids.Generator
	notifier notification.Notifier
}

// NewService constructs a withdrawal service. notifier may be nil.
func NewService(s store.Store, c clock.Clock, gen *ids.Generator, notifier notification.Notifier) *Service {
	return &Service{store: s, clock: c, ids: gen, notifier: notifier}
}

// CreateInput captures the data needed to request a withdrawal.
type CreateInput struct {
	Identity      string
	Method        string
	AccountNumber string
	USDCAmount    int64
	UGXAmount     int64
}

// Create debits USDCAmount from the owner and records a pending withdrawal.
func (s *Service) Create(ctx context.Context, input CreateInput) (domain.Withdrawal, error) {
	var created domain.Withdrawal
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := ledger.Debit(ctx, tx, input.Identity, input.USDCAmount); err != nil {
			return err
		}
		now := s.clock.Now()
		id, err := s.ids.New(ids.WithdrawalPrefix, now)
		if err != nil {
			return err
		}
		created = domain.Withdrawal{
			ID:            id,
			Owner:         input.Identity,
			Method:        input.Method,
			AccountNumber: input.AccountNumber,
			USDCAmount:    input.USDCAmount,
			UGXAmount:     input.UGXAmount,
			Status:        domain.StatusPending,
			CreatedAt:     now,
		}
		return tx.PutWithdrawal(ctx, created)
	})
	metrics.Record("withdrawal.create", err)
	if err != nil {
		return domain.Withdrawal{}, err
	}

	notification.Send(ctx, s.notifier, notification.Message{
		Kind:        notification.KindWithdrawalCreated,
		Destination: created.Owner,
		Reference:   created.ID,
		Body:        fmt.Sprintf("withdrawal of %d (%d UGX) via %s is pending", created.USDCAmount, created.UGXAmount, created.Method),
	})
	return created, nil
}

// ListFor returns the withdrawals owned by identity in creation order.
func (s *Service) ListFor(ctx context.Context, identity string) ([]domain.Withdrawal, error) {
	var out []domain.Withdrawal
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.WithdrawalsByOwner(ctx, identity)
		return err
	})
	return out, err
}

// Get fetches one withdrawal request.
func (s *Service) Get(ctx context.Context, id string) (domain.Withdrawal, error) {
	var w domain.Withdrawal
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		w, err = tx.Withdrawal(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	})
	return w, err
}

// UpdateStatus overwrites the status of a withdrawal. Administrator only.
func (s *Service) UpdateStatus(ctx context.Context, caller, id string, status domain.Status) error {
	var updated domain.Withdrawal
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if err := admin.Authorize(ctx, tx, caller); err != nil {
			return err
		}
		w, err := tx.Withdrawal(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		w.Status = status
		updated = w
		return tx.PutWithdrawal(ctx, w)
	})
	metrics.Record("withdrawal.update_status", err)
	if err != nil {
		return err
	}

	notification.Send(ctx, s.notifier, notification.Message{
		Kind:        notification.KindWithdrawalStatus,
		Destination: updated.Owner,
		Reference:   updated.ID,
		Body:        fmt.Sprintf("withdrawal %s is now %s", updated.ID, updated.Status),
	})
	return nil
}
