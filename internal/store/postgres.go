package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/payvia/payvia/internal/domain"
)

//go:embed schema.sql
var schema string

const adminSetting = "admin"

// Postgres persists the collections in PostgreSQL tables. Update runs inside a
// database transaction and locks every account row it reads.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed store.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the tables when they do not exist yet.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Update runs fn in a read-write transaction and commits on success.
func (s *Postgres) Update(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(&pgTx{q: tx, writable: true}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// View runs fn in a read-only transaction.
func (s *Postgres) View(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	return fn(&pgTx{q: tx})
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgTx struct {
	q        querier
	writable bool
}

func (t *pgTx) lockClause() string {
	if t.writable {
		return " FOR UPDATE"
	}
	return ""
}

const uniqueViolation = "23505"

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrExists
	}
	return err
}

func (t *pgTx) Account(ctx context.Context, identity string) (domain.Account, error) {
	query := `SELECT identity, contact, verified, balance, created_at
        FROM ledger_accounts WHERE identity = $1` + t.lockClause()
	var a domain.Account
	if err := t.q.QueryRow(ctx, query, identity).Scan(&a.Identity, &a.Contact, &a.Verified, &a.Balance, &a.CreatedAt); err != nil {
		return domain.Account{}, translate(err)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

// CreateAccount relies on the primary key: a concurrent insert of the same
// identity blocks until the first commits and then fails with a unique violation.
func (t *pgTx) CreateAccount(ctx context.Context, a domain.Account) error {
	if !t.writable {
		return ErrReadOnly
	}
	_, err := t.q.Exec(ctx, `INSERT INTO ledger_accounts (identity, contact, verified, balance, created_at)
        VALUES ($1, $2, $3, $4, $5)`,
		a.Identity, a.Contact, a.Verified, a.Balance, a.CreatedAt.UTC())
	return translate(err)
}

func (t *pgTx) PutAccount(ctx context.Context, a domain.Account) error {
	if !t.writable {
		return ErrReadOnly
	}
	tag, err := t.q.Exec(ctx, `UPDATE ledger_accounts
        SET contact = $2, verified = $3, balance = $4
        WHERE identity = $1`,
		a.Identity, a.Contact, a.Verified, a.Balance)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const paymentColumns = `id, owner, category, account_number, amount, status, created_at`

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var (
		p      domain.Payment
		status string
	)
	if err := row.Scan(&p.ID, &p.Owner, &p.Category, &p.AccountNumber, &p.Amount, &status, &p.CreatedAt); err != nil {
		return domain.Payment{}, err
	}
	p.Status = domain.Status(status)
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func (t *pgTx) Payment(ctx context.Context, id string) (domain.Payment, error) {
	row := t.q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payment_requests WHERE id = $1`+t.lockClause(), id)
	p, err := scanPayment(row)
	if err != nil {
		return domain.Payment{}, translate(err)
	}
	return p, nil
}

func (t *pgTx) PutPayment(ctx context.Context, p domain.Payment) error {
	if !t.writable {
		return ErrReadOnly
	}
	_, err := t.q.Exec(ctx, `INSERT INTO payment_requests (`+paymentColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status`,
		p.ID, p.Owner, p.Category, p.AccountNumber, p.Amount, string(p.Status), p.CreatedAt.UTC())
	return err
}

func (t *pgTx) PaymentsByOwner(ctx context.Context, owner string) ([]domain.Payment, error) {
	rows, err := t.q.Query(ctx, `SELECT `+paymentColumns+` FROM payment_requests WHERE owner = $1 ORDER BY id`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const withdrawalColumns = `id, owner, method, account_number, usdc_amount, ugx_amount, status, created_at`

func scanWithdrawal(row pgx.Row) (domain.Withdrawal, error) {
	var (
		w      domain.Withdrawal
		status string
	)
	if err := row.Scan(&w.ID, &w.Owner, &w.Method, &w.AccountNumber, &w.USDCAmount, &w.UGXAmount, &status, &w.CreatedAt); err != nil {
		return domain.Withdrawal{}, err
	}
	w.Status = domain.Status(status)
	w.CreatedAt = w.CreatedAt.UTC()
	return w, nil
}

func (t *pgTx) Withdrawal(ctx context.Context, id string) (domain.Withdrawal, error) {
	row := t.q.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`+t.lockClause(), id)
	w, err := scanWithdrawal(row)
	if err != nil {
		return domain.Withdrawal{}, translate(err)
	}
	return w, nil
}

func (t *pgTx) PutWithdrawal(ctx context.Context, w domain.Withdrawal) error {
	if !t.writable {
		return ErrReadOnly
	}
	_, err := t.q.Exec(ctx, `INSERT INTO withdrawal_requests (`+withdrawalColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status`,
		w.ID, w.Owner, w.Method, w.AccountNumber, w.USDCAmount, w.UGXAmount, string(w.Status), w.CreatedAt.UTC())
	return err
}

func (t *pgTx) WithdrawalsByOwner(ctx context.Context, owner string) ([]domain.Withdrawal, error) {
	rows, err := t.q.Query(ctx, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE owner = $1 ORDER BY id`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Withdrawal, 0)
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (t *pgTx) Admin(ctx context.Context) (string, error) {
	var identity string
	err := t.q.QueryRow(ctx, `SELECT value FROM ledger_settings WHERE name = $1`+t.lockClause(), adminSetting).Scan(&identity)
	if err != nil {
		return "", translate(err)
	}
	return identity, nil
}

func (t *pgTx) SetAdmin(ctx context.Context, identity string) error {
	if !t.writable {
		return ErrReadOnly
	}
	_, err := t.q.Exec(ctx, `INSERT INTO ledger_settings (name, value) VALUES ($1, $2)`, adminSetting, identity)
	return translate(err)
}
