package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/payvia/payvia/internal/domain"
)

const (
	redisPrefix          = "payvia:"
	redisAdminKey        = redisPrefix + "admin"
	defaultRedisAttempts = 5
)

// Redis stores every record as a JSON value under its own key and keeps a
// sorted-set index of request ids per owner. Update uses WATCH/MULTI/EXEC so a
// unit that raced with another writer is retried from scratch.
type Redis struct {
	client      *redis.Client
	maxAttempts int
}

// NewRedis builds a Redis-backed store.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, maxAttempts: defaultRedisAttempts}
}

// Update runs fn inside an optimistic transaction. Every key fn reads is
// watched; staged writes are flushed in one MULTI/EXEC block.
func (s *Redis) Update(ctx context.Context, fn func(Tx) error) error {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			tx := newRedisTx(rtx, func(ctx context.Context, keys ...string) error {
				return rtx.Watch(ctx, keys...).Err()
			})
			if err := fn(tx); err != nil {
				return err
			}
			if tx.empty() {
				return nil
			}
			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, key := range tx.order {
					pipe.Set(ctx, key, tx.writes[key], 0)
				}
				for key, members := range tx.indexes {
					for _, member := range members {
						pipe.ZAdd(ctx, key, redis.Z{Score: 0, Member: member})
					}
				}
				return nil
			})
			return err
		})
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

// View runs fn with direct reads; writes are rejected.
func (s *Redis) View(ctx context.Context, fn func(Tx) error) error {
	return fn(newRedisTx(s.client, nil))
}

type redisReader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	ZRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

type redisTx struct {
	r       redisReader
	watch   func(ctx context.Context, keys ...string) error
	writes  map[string][]byte
	order   []string
	indexes map[string][]string
}

func newRedisTx(r redisReader, watch func(ctx context.Context, keys ...string) error) *redisTx {
	return &redisTx{
		r:       r,
		watch:   watch,
		writes:  make(map[string][]byte),
		indexes: make(map[string][]string),
	}
}

func (t *redisTx) empty() bool {
	return len(t.order) == 0 && len(t.indexes) == 0
}

func (t *redisTx) get(ctx context.Context, key string, dst any) error {
	raw, ok := t.writes[key]
	if !ok {
		if t.watch != nil {
			if err := t.watch(ctx, key); err != nil {
				return err
			}
		}
		var err error
		raw, err = t.r.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (t *redisTx) put(key string, value any) error {
	if t.watch == nil {
		return ErrReadOnly
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if _, seen := t.writes[key]; !seen {
		t.order = append(t.order, key)
	}
	t.writes[key] = raw
	return nil
}

func (t *redisTx) index(key, member string) {
	t.indexes[key] = append(t.indexes[key], member)
}

// members returns the ids indexed under key, including ones staged in this unit.
func (t *redisTx) members(ctx context.Context, key string) ([]string, error) {
	if t.watch != nil {
		if err := t.watch(ctx, key); err != nil {
			return nil, err
		}
	}
	stored, err := t.r.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(stored))
	for _, m := range stored {
		set[m] = struct{}{}
	}
	for _, m := range t.indexes[key] {
		set[m] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func accountKey(identity string) string    { return redisPrefix + "account:" + identity }
func paymentKey(id string) string          { return redisPrefix + "payment:" + id }
func withdrawalKey(id string) string       { return redisPrefix + "withdrawal:" + id }
func paymentIndexKey(owner string) string  { return redisPrefix + "payments:owner:" + owner }
func withdrawIndexKey(owner string) string { return redisPrefix + "withdrawals:owner:" + owner }

func (t *redisTx) Account(ctx context.Context, identity string) (domain.Account, error) {
	var a domain.Account
	if err := t.get(ctx, accountKey(identity), &a); err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

func (t *redisTx) CreateAccount(ctx context.Context, account domain.Account) error {
	if t.watch == nil {
		return ErrReadOnly
	}
	if _, err := t.Account(ctx, account.Identity); err == nil {
		return ErrExists
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return t.put(accountKey(account.Identity), account)
}

func (t *redisTx) PutAccount(ctx context.Context, account domain.Account) error {
	if t.watch == nil {
		return ErrReadOnly
	}
	if _, err := t.Account(ctx, account.Identity); err != nil {
		return err
	}
	return t.put(accountKey(account.Identity), account)
}

func (t *redisTx) Payment(ctx context.Context, id string) (domain.Payment, error) {
	var p domain.Payment
	if err := t.get(ctx, paymentKey(id), &p); err != nil {
		return domain.Payment{}, err
	}
	return p, nil
}

func (t *redisTx) PutPayment(_ context.Context, payment domain.Payment) error {
	if err := t.put(paymentKey(payment.ID), payment); err != nil {
		return err
	}
	t.index(paymentIndexKey(payment.Owner), payment.ID)
	return nil
}

func (t *redisTx) PaymentsByOwner(ctx context.Context, owner string) ([]domain.Payment, error) {
	ids, err := t.members(ctx, paymentIndexKey(owner))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Payment, 0, len(ids))
	for _, id := range ids {
		p, err := t.Payment(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("payment %s: %w", id, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (t *redisTx) Withdrawal(ctx context.Context, id string) (domain.Withdrawal, error) {
	var w domain.Withdrawal
	if err := t.get(ctx, withdrawalKey(id), &w); err != nil {
		return domain.Withdrawal{}, err
	}
	return w, nil
}

func (t *redisTx) PutWithdrawal(_ context.Context, withdrawal domain.Withdrawal) error {
	if err := t.put(withdrawalKey(withdrawal.ID), withdrawal); err != nil {
		return err
	}
	t.index(withdrawIndexKey(withdrawal.Owner), withdrawal.ID)
	return nil
}

func (t *redisTx) WithdrawalsByOwner(ctx context.Context, owner string) ([]domain.Withdrawal, error) {
	ids, err := t.members(ctx, withdrawIndexKey(owner))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Withdrawal, 0, len(ids))
	for _, id := range ids {
		w, err := t.Withdrawal(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("withdrawal %s: %w", id, err)
		}
		out = append(out, w)
	}
	return out, nil
}

func (t *redisTx) Admin(ctx context.Context) (string, error) {
	var identity string
	if err := t.get(ctx, redisAdminKey, &identity); err != nil {
		return "", err
	}
	return identity, nil
}

func (t *redisTx) SetAdmin(ctx context.Context, identity string) error {
	if t.watch == nil {
		return ErrReadOnly
	}
	if _, err := t.Admin(ctx); err == nil {
		return ErrExists
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return t.put(redisAdminKey, identity)
}
