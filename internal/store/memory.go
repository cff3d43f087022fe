package store

import (
	"context"
	"sort"
	"sync"

	"github.com/payvia/payvia/internal/domain"
)

// Memory is a concurrency-safe in-memory store. Update stages writes in an
// overlay and folds them into the maps only after fn succeeds.
type Memory struct {
	mu          sync.RWMutex
	accounts    map[string]domain.Account
	payments    map[string]domain.Payment
	withdrawals map[string]domain.Withdrawal
	admin       string
}

// NewMemory creates an empty in-memory store useful for development and tests.
func NewMemory() *Memory {
	return &Memory{
		accounts:    make(map[string]domain.Account),
		payments:    make(map[string]domain.Payment),
		withdrawals: make(map[string]domain.Withdrawal),
	}
}

// Update runs fn under the write lock and commits staged writes on success.
func (m *Memory) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := newMemoryTx(m, true)
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// View runs fn under the read lock.
func (m *Memory) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(newMemoryTx(m, false))
}

type memoryTx struct {
	base        *Memory
	writable    bool
	accounts    map[string]domain.Account
	payments    map[string]domain.Payment
	withdrawals map[string]domain.Withdrawal
	admin       *string
}

func newMemoryTx(base *Memory, writable bool) *memoryTx {
	return &memoryTx{
		base:        base,
		writable:    writable,
		accounts:    make(map[string]domain.Account),
		payments:    make(map[string]domain.Payment),
		withdrawals: make(map[string]domain.Withdrawal),
	}
}

func (t *memoryTx) commit() {
	for k, v := range t.accounts {
		t.base.accounts[k] = v
	}
	for k, v := range t.payments {
		t.base.payments[k] = v
	}
	for k, v := range t.withdrawals {
		t.base.withdrawals[k] = v
	}
	if t.admin != nil {
		t.base.admin = *t.admin
	}
}

func (t *memoryTx) Account(_ context.Context, identity string) (domain.Account, error) {
	if a, ok := t.accounts[identity]; ok {
		return a, nil
	}
	if a, ok := t.base.accounts[identity]; ok {
		return a, nil
	}
	return domain.Account{}, ErrNotFound
}

func (t *memoryTx) CreateAccount(ctx context.Context, account domain.Account) error {
	if !t.writable {
		return ErrReadOnly
	}
	if _, err := t.Account(ctx, account.Identity); err == nil {
		return ErrExists
	}
	t.accounts[account.Identity] = account
	return nil
}

func (t *memoryTx) PutAccount(ctx context.Context, account domain.Account) error {
	if !t.writable {
		return ErrReadOnly
	}
	if _, err := t.Account(ctx, account.Identity); err != nil {
		return err
	}
	t.accounts[account.Identity] = account
	return nil
}

func (t *memoryTx) Payment(_ context.Context, id string) (domain.Payment, error) {
	if p, ok := t.payments[id]; ok {
		return p, nil
	}
	if p, ok := t.base.payments[id]; ok {
		return p, nil
	}
	return domain.Payment{}, ErrNotFound
}

func (t *memoryTx) PutPayment(_ context.Context, payment domain.Payment) error {
	if !t.writable {
		return ErrReadOnly
	}
	t.payments[payment.ID] = payment
	return nil
}

func (t *memoryTx) PaymentsByOwner(_ context.Context, owner string) ([]domain.Payment, error) {
	merged := make(map[string]domain.Payment)
	for k, v := range t.base.payments {
		merged[k] = v
	}
	for k, v := range t.payments {
		merged[k] = v
	}
	out := make([]domain.Payment, 0)
	for _, p := range merged {
		if p.Owner == owner {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memoryTx) Withdrawal(_ context.Context, id string) (domain.Withdrawal, error) {
	if w, ok := t.withdrawals[id]; ok {
		return w, nil
	}
	if w, ok := t.base.withdrawals[id]; ok {
		return w, nil
	}
	return domain.Withdrawal{}, ErrNotFound
}

func (t *memoryTx) PutWithdrawal(_ context.Context, withdrawal domain.Withdrawal) error {
	if !t.writable {
		return ErrReadOnly
	}
	t.withdrawals[withdrawal.ID] = withdrawal
	return nil
}

func (t *memoryTx) WithdrawalsByOwner(_ context.Context, owner string) ([]domain.Withdrawal, error) {
	merged := make(map[string]domain.Withdrawal)
	for k, v := range t.base.withdrawals {
		merged[k] = v
	}
	for k, v := range t.withdrawals {
		merged[k] = v
	}
	out := make([]domain.Withdrawal, 0)
	for _, w := range merged {
		if w.Owner == owner {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memoryTx) Admin(_ context.Context) (string, error) {
	if t.admin != nil {
		return *t.admin, nil
	}
	if t.base.admin == "" {
		return "", ErrNotFound
	}
	return t.base.admin, nil
}

func (t *memoryTx) SetAdmin(ctx context.Context, identity string) error {
	if !t.writable {
		return ErrReadOnly
	}
	if _, err := t.Admin(ctx); err == nil {
		return ErrExists
	}
	t.admin = &identity
	return nil
}
