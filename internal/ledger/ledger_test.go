package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/payvia/payvia/internal/account"
	"github.com/payvia/payvia/internal/clock"
	"github.com/payvia/payvia/internal/notification"
	"github.com/payvia/payvia/internal/store"
)

type testNotifier struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

type fixture struct {
	store    *store.Memory
	accounts *account.Registry
	ledger   *Service
	notifier *testNotifier
}

func newFixture(t *testing.T, identities ...string) fixture {
	t.Helper()
	s := store.NewMemory()
	c := clock.System()
	f := fixture{
		store:    s,
		accounts: account.NewRegistry(s, c),
		notifier: &testNotifier{},
	}
	f.ledger = NewService(s, c, f.notifier)
	for _, id := range identities {
		if _, err := f.accounts.Register(context.Background(), id, "555-0100"); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	return f
}

func (f fixture) balance(t *testing.T, identity string) int64 {
	t.Helper()
	b, err := f.accounts.Balance(context.Background(), identity)
	if err != nil {
		t.Fatalf("balance %s: %v", identity, err)
	}
	return b
}

func TestDepositCreditsBalance(t *testing.T) {
	f := newFixture(t, "u")
	ctx := context.Background()

	if _, err := f.ledger.Deposit(ctx, "u", 1_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	got, err := f.ledger.Deposit(ctx, "u", 250)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got != 1_250 || f.balance(t, "u") != 1_250 {
		t.Fatalf("expected 1250, got %d", got)
	}
}

// Deposit is stricter than a bare credit: zero and negative amounts are
// refused with ErrInvalidAmount instead of being applied.
func TestDepositRejectsNonPositiveUnknownAndOverflow(t *testing.T) {
	f := newFixture(t, "u")
	ctx := context.Background()

	if _, err := f.ledger.Deposit(ctx, "ghost", 10); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	for _, amount := range []int64{0, -5} {
		if _, err := f.ledger.Deposit(ctx, "u", amount); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: expected invalid amount, got %v", amount, err)
		}
	}
	if f.balance(t, "u") != 0 {
		t.Fatal("rejected deposit changed the balance")
	}
	if _, err := f.ledger.Deposit(ctx, "u", math.MaxInt64); err != nil {
		t.Fatalf("deposit max: %v", err)
	}
	if _, err := f.ledger.Deposit(ctx, "u", 1); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if f.balance(t, "u") != math.MaxInt64 {
		t.Fatal("overflowing deposit changed the balance")
	}
}

func TestTransferDrainsSender(t *testing.T) {
	f := newFixture(t, "u", "v")
	ctx := context.Background()
	_, _ = f.ledger.Deposit(ctx, "u", 500)

	res, err := f.ledger.Transfer(ctx, "u", "v", 500)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if res.FromBalance != 0 || res.ToBalance != 500 {
		t.Fatalf("unexpected result %+v", res)
	}
	if f.balance(t, "u") != 0 || f.balance(t, "v") != 500 {
		t.Fatal("stored balances do not match transfer result")
	}

	if _, err := f.ledger.Transfer(ctx, "u", "v", 1); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestTransferInsufficientLeavesBalances(t *testing.T) {
	f := newFixture(t, "a", "b")
	ctx := context.Background()
	_, _ = f.ledger.Deposit(ctx, "a", 100)
	_, _ = f.ledger.Deposit(ctx, "b", 40)

	if _, err := f.ledger.Transfer(ctx, "a", "b", 101); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if f.balance(t, "a") != 100 || f.balance(t, "b") != 40 {
		t.Fatal("failed transfer changed balances")
	}
	if len(f.notifier.sent) != 0 {
		t.Fatal("failed transfer sent a notification")
	}
}

func TestSelfTransferIsNetZero(t *testing.T) {
	f := newFixture(t, "a")
	ctx := context.Background()
	_, _ = f.ledger.Deposit(ctx, "a", 300)

	res, err := f.ledger.Transfer(ctx, "a", "a", 200)
	if err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	if res.FromBalance != 300 || f.balance(t, "a") != 300 {
		t.Fatalf("expected balance 300, got %+v", res)
	}
	if _, err := f.ledger.Transfer(ctx, "a", "a", 301); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance for oversized self transfer, got %v", err)
	}
}

func TestTransferUnknownParties(t *testing.T) {
	f := newFixture(t, "a")
	ctx := context.Background()
	_, _ = f.ledger.Deposit(ctx, "a", 10)

	_, err := f.ledger.Transfer(ctx, "ghost", "a", 1)
	if !errors.Is(err, ErrSenderNotFound) || !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected sender not found, got %v", err)
	}
	_, err = f.ledger.Transfer(ctx, "a", "ghost", 1)
	if !errors.Is(err, ErrRecipientNotFound) || errors.Is(err, ErrSenderNotFound) {
		t.Fatalf("expected recipient not found, got %v", err)
	}
	if f.balance(t, "a") != 10 {
		t.Fatal("failed transfer changed sender balance")
	}
}

func TestTransferNotifiesRecipient(t *testing.T) {
	f := newFixture(t, "a", "b")
	ctx := context.Background()
	_, _ = f.ledger.Deposit(ctx, "a", 10)

	if _, err := f.ledger.Transfer(ctx, "a", "b", 4); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if len(f.notifier.sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(f.notifier.sent))
	}
	msg := f.notifier.sent[0]
	if msg.Kind != notification.KindTransferReceived || msg.Destination != "b" {
		t.Fatalf("unexpected notification %+v", msg)
	}
}

func TestDebitRollsBackWithFailingUnit(t *testing.T) {
	f := newFixture(t, "a")
	ctx := context.Background()
	_, _ = f.ledger.Deposit(ctx, "a", 50)

	boom := errors.New("record write failed")
	err := f.store.Update(ctx, func(tx store.Tx) error {
		acct, err := Debit(ctx, tx, "a", 30)
		if err != nil {
			return err
		}
		if acct.Balance != 20 {
			t.Fatalf("expected staged balance 20, got %d", acct.Balance)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if f.balance(t, "a") != 50 {
		t.Fatalf("debit leaked out of failed unit, balance %d", f.balance(t, "a"))
	}
}

func TestBalancesNeverNegativeAndConserved(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	f := newFixture(t, ids...)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	var deposited, debited int64
	for i := 0; i < 2_000; i++ {
		who := ids[rng.Intn(len(ids))]
		amount := rng.Int63n(200) + 1
		switch rng.Intn(3) {
		case 0:
			if _, err := f.ledger.Deposit(ctx, who, amount); err == nil {
				deposited += amount
			}
		case 1:
			_, _ = f.ledger.Transfer(ctx, who, ids[rng.Intn(len(ids))], amount)
		case 2:
			err := f.store.Update(ctx, func(tx store.Tx) error {
				_, err := Debit(ctx, tx, who, amount)
				return err
			})
			if err == nil {
				debited += amount
			} else if !errors.Is(err, ErrInsufficientBalance) {
				t.Fatalf("unexpected debit error: %v", err)
			}
		}
		for _, id := range ids {
			if f.balance(t, id) < 0 {
				t.Fatalf("balance of %s went negative at step %d", id, i)
			}
		}
	}

	var total int64
	for _, id := range ids {
		total += f.balance(t, id)
	}
	if total != deposited-debited {
		t.Fatalf("ledger not conserved: total=%d deposited=%d debited=%d", total, deposited, debited)
	}
}

func TestConcurrentTransfers(t *testing.T) {
	f := newFixture(t, "a", "b")
	ctx := context.Background()
	_, _ = f.ledger.Deposit(ctx, "a", 100_000)

	const workers = 10
	const amount = int64(500)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := f.ledger.Transfer(ctx, "a", "b", amount); err != nil {
				t.Errorf("transfer %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if got := f.balance(t, "a") + f.balance(t, "b"); got != 100_000 {
		t.Fatalf("ledger not balanced after concurrency, total=%d", got)
	}
	if got := f.balance(t, "b"); got != workers*amount {
		t.Fatalf("expected %d at b, got %d", workers*amount, got)
	}
}

func ExampleService_Transfer() {
	s := store.NewMemory()
	c := clock.System()
	accounts := account.NewRegistry(s, c)
	led := NewService(s, c, nil)
	ctx := context.Background()

	_, _ = accounts.Register(ctx, "alice", "555-0100")
	_, _ = accounts.Register(ctx, "bob", "555-0101")
	_, _ = led.Deposit(ctx, "alice", 500)

	res, err := led.Transfer(ctx, "alice", "bob", 200)
	fmt.Println(res.FromBalance, res.ToBalance, err)
	// Output: 300 200 <nil>
}
