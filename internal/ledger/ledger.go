package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/payvia/payvia/internal/account"
	"github.com/payvia/payvia/internal/clock"
	"github.com/payvia/payvia/internal/domain"
	"github.com/payvia/payvia/internal/metrics"
	"github.com/payvia/payvia/internal/notification"
	"github.com/payvia/payvia/internal/store"
)

var (
	// ErrInsufficientBalance occurs when the source account lacks available balance
	// to cover a requested debit or transfer.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount rejects zero and negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrBalanceOverflow rejects credits that would exceed the representable balance.
	ErrBalanceOverflow = errors.New("balance overflow")

	// ErrSenderNotFound and ErrRecipientNotFound both match account.ErrNotFound.
	ErrSenderNotFound    = fmt.Errorf("sender %w", account.ErrNotFound)
	ErrRecipientNotFound = fmt.Errorf("recipient %w", account.ErrNotFound)
)

// TransferResult captures the outcome of a peer transfer.
type TransferResult struct {
	From        string
	To          string
	Amount      int64
	FromBalance int64
	ToBalance   int64
	CompletedAt time.Time
}

// Service runs deposits and transfers against the account registry.
type Service struct {
	store    store.Store
	clock    clock.Clock
	notifier notification.Notifier
}

// NewService constructs a ledger service. notifier may be nil.
func NewService(s store.Store, c clock.Clock, notifier notification.Notifier) *Service {
	return &Service{store: s, clock: c, notifier: notifier}
}

// Deposit credits amount to identity and returns the new balance.
func (s *Service) Deposit(ctx context.Context, identity string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance int64
	err := s.store.Update(ctx, func(tx store.Tx) error {
		acct, err := account.Lookup(ctx, tx, identity)
		if err != nil {
			return err
		}
		acct, err = credit(ctx, tx, acct, amount)
		if err != nil {
			return err
		}
		balance = acct.Balance
		return nil
	})
	metrics.Record("ledger.deposit", err)
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Transfer moves amount from one account to another. Both balances change or
// neither does. A transfer to oneself is checked like any other and leaves the
// balance as it was.
func (s *Service) Transfer(ctx context.Context, from, to string, amount int64) (TransferResult, error) {
	if amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}

	res := TransferResult{From: from, To: to, Amount: amount}
	err := s.store.Update(ctx, func(tx store.Tx) error {
		sender, err := account.Lookup(ctx, tx, from)
		if err != nil {
			if errors.Is(err, account.ErrNotFound) {
				return ErrSenderNotFound
			}
			return err
		}
		recipient, err := account.Lookup(ctx, tx, to)
		if err != nil {
			if errors.Is(err, account.ErrNotFound) {
				return ErrRecipientNotFound
			}
			return err
		}
		if sender.Balance < amount {
			return ErrInsufficientBalance
		}
		if from == to {
			res.FromBalance, res.ToBalance = sender.Balance, sender.Balance
			return nil
		}

		sender, err = account.SetBalance(ctx, tx, sender, sender.Balance-amount)
		if err != nil {
			return err
		}
		recipient, err = credit(ctx, tx, recipient, amount)
		if err != nil {
			return err
		}
		res.FromBalance, res.ToBalance = sender.Balance, recipient.Balance
		return nil
	})
	metrics.Record("ledger.transfer", err)
	if err != nil {
		return TransferResult{}, err
	}
	res.CompletedAt = s.clock.Now()

	if from != to {
		notification.Send(ctx, s.notifier, notification.Message{
			Kind:        notification.KindTransferReceived,
			Destination: to,
			Body:        fmt.Sprintf("You received %d from %s", amount, from),
		})
	}
	return res, nil
}

// Debit withdraws amount from identity inside an existing unit of work. Request
// lifecycles call it before staging their record so both commit together.
func Debit(ctx context.Context, tx store.Tx, identity string, amount int64) (domain.Account, error) {
	if amount <= 0 {
		return domain.Account{}, ErrInvalidAmount
	}
	acct, err := account.Lookup(ctx, tx, identity)
	if err != nil {
		return domain.Account{}, err
	}
	if acct.Balance < amount {
		return domain.Account{}, ErrInsufficientBalance
	}
	return account.SetBalance(ctx, tx, acct, acct.Balance-amount)
}

func credit(ctx context.Context, tx store.Tx, acct domain.Account, amount int64) (domain.Account, error) {
	if acct.Balance > math.MaxInt64-amount {
		return domain.Account{}, ErrBalanceOverflow
	}
	return account.SetBalance(ctx, tx, acct, acct.Balance+amount)
}
