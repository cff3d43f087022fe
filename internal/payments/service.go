package payments

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

// ErrNotFound indicates no payment request exists for the id.
var ErrNotFound = errors.New("payment not found")

// Service records bill payment requests and their status changes.
type Service struct {
	store    store.Store
	clock    clock.Clock
	ids      *ids.Generator
	notifier notification.Notifier
}

// NewService constructs a payment service. notifier may be nil.
func NewService(s store.Store, c clock.Clock, gen *ids.Generator, notifier notification.Notifier) *Service {
	return &Service{store: s, clock: c, ids: gen, notifier: notifier}
}

// CreateInput captures the data needed to request a bill payment.
type CreateInput struct {
	Identity      string
	Category      string
	AccountNumber string
	Amount        int64
}

// Create debits the owner and records a pending payment in one unit of work.
// When the debit fails no record is written; when the record cannot be
// written the debit is discarded with it.
func (s *Service) Create(ctx context.Context, input CreateInput) (domain.Payment, error) {
	var created domain.Payment
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := ledger.Debit(ctx, tx, input.Identity, input.Amount); err != nil {
			return err
		}
		now := s.clock.Now()
		id, err := s.ids.New(ids.PaymentPrefix, now)
		if err != nil {
			return err
		}
		created = domain.Payment{
			ID:            id,
			Owner:         input.Identity,
			Category:      input.Category,
			AccountNumber: input.AccountNumber,
			Amount:        input.Amount,
			Status:        domain.StatusPending,
			CreatedAt:     now,
		}
		return tx.PutPayment(ctx, created)
	})
	metrics.Record("payment.create", err)
	if err != nil {
		return domain.Payment{}, err
	}

	notification.Send(ctx, s.notifier, notification.Message{
		Kind:        notification.KindPaymentCreated,
		Destination: created.Owner,
		Reference:   created.ID,
		Body:        fmt.Sprintf("%s payment of %d to %s is pending", created.Category, created.Amount, created.AccountNumber),
	})
	return created, nil
}

// ListFor returns every payment owned by identity, oldest first.
func (s *Service) ListFor(ctx context.Context, identity string) ([]domain.Payment, error) {
	var out []domain.Payment
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.PaymentsByOwner(ctx, identity)
		return err
	})
	return out, err
}

// Get fetches one payment request.
func (s *Service) Get(ctx context.Context, id string) (domain.Payment, error) {
	var p domain.Payment
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		p, err = tx.Payment(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	})
	return p, err
}

// UpdateStatus overwrites the status of a payment. Only the administrator may
// call it; the new status is not checked against the current one.
func (s *Service) UpdateStatus(ctx context.Context, caller, id string, status domain.Status) error {
	var updated domain.Payment
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if err := admin.Authorize(ctx, tx, caller); err != nil {
			return err
		}
		p, err := tx.Payment(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		p.Status = status
		updated = p
		return tx.PutPayment(ctx, p)
	})
	metrics.Record("payment.update_status", err)
	if err != nil {
		return err
	}

	notification.Send(ctx, s.notifier, notification.Message{
		Kind:        notification.KindPaymentStatus,
		Destination: updated.Owner,
		Reference:   updated.ID,
		Body:        fmt.Sprintf("payment %s is now %s", updated.ID, updated.Status),
	})
	return nil
}
