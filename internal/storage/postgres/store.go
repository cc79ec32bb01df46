package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/store"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Store keeps the ledger in PostgreSQL. Account rows are locked with
// SELECT ... FOR UPDATE in ascending id order so concurrent units of work
// touching the same accounts serialise without deadlocking.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// Open migrates the schema and connects a pool to url.
func Open(ctx context.Context, url string) (*Store, error) {
	version, err := RunMigrations(url)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	slog.InfoContext(ctx, "PostgreSQL ledger opened",
		log.FieldComponent, log.ComponentStorage,
		"schema_version", version)
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// View runs fn in a read-only REPEATABLE READ transaction.
func (s *Store) View(ctx context.Context, fn func(store.ReadTx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Rollback(ctx)
	return fn(&pgTx{tx: tx})
}

// Update runs fn in a read-committed transaction and commits on success.
func (s *Store) Update(ctx context.Context, fn func(store.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)
	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func notFound(err error, what, key string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %q: %w", what, key, core.ErrNotFound)
	}
	return fmt.Errorf("get %s %q: %w", what, key, err)
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

const accountColumns = `id, name, balance_cents, opening_balance_cents, created_at`

func scanAccount(row pgx.Row) (core.Account, error) {
	var (
		a                core.Account
		balance, opening int64
	)
	if err := row.Scan(&a.ID, &a.Name, &balance, &opening, &a.CreatedAt); err != nil {
		return core.Account{}, err
	}
	a.Balance, a.OpeningBalance = core.Cents(balance), core.Cents(opening)
	return a, nil
}

func (t *pgTx) GetAccount(ctx context.Context, id string) (core.Account, error) {
	a, err := scanAccount(t.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return core.Account{}, notFound(err, "account", id)
	}
	return a, nil
}

func (t *pgTx) GetAccountByName(ctx context.Context, name string) (core.Account, error) {
	a, err := scanAccount(t.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE name = $1`, name))
	if err != nil {
		return core.Account{}, notFound(err, "account", name)
	}
	return a, nil
}

func (t *pgTx) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()
	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const transactionSelect = `SELECT t.id, t.type, t.amount_cents, t.category, t.division, t.description,
    t.account_id, a.name, t.occurred_at, t.created_at, t.updated_at
FROM transactions t JOIN accounts a ON a.id = t.account_id`

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t        core.Transaction
		typ, div string
		amount   int64
	)
	err := row.Scan(&t.ID, &typ, &amount, &t.Category, &div, &t.Description,
		&t.AccountID, &t.AccountName, &t.OccurredAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Type, t.Division, t.Amount = core.TransactionType(typ), core.Division(div), core.Cents(amount)
	return t, nil
}

func (t *pgTx) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	txn, err := scanTransaction(t.tx.QueryRow(ctx, transactionSelect+` WHERE t.id = $1`, id))
	if err != nil {
		return core.Transaction{}, notFound(err, "transaction", id)
	}
	return txn, nil
}

func (t *pgTx) ListTransactions(ctx context.Context, q store.TransactionQuery) ([]core.Transaction, error) {
	rows, err := t.tx.Query(ctx, transactionSelect+`
WHERE ($1::timestamptz IS NULL OR t.created_at >= $1)
  AND ($2::timestamptz IS NULL OR t.created_at <= $2)
  AND ($3 = '' OR t.type = $3)
  AND ($4 = '' OR t.account_id = $4)
ORDER BY t.seq`, nullableTime(q.Since), nullableTime(q.Until), string(q.Type), q.AccountID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	var out []core.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, txn)
	}
	return out, rows.Err()
}

func (t *pgTx) ListTransferEntries(ctx context.Context, q store.TransferQuery) ([]core.TransferEntry, error) {
	rows, err := t.tx.Query(ctx, `SELECT e.id, e.transfer_id, e.account_id, a.name, e.direction, e.amount_cents, e.created_at
FROM transfer_entries e JOIN accounts a ON a.id = e.account_id
WHERE ($1 = '' OR e.account_id = $1)
  AND ($2 = '' OR e.transfer_id = $2)
ORDER BY e.seq`, q.AccountID, q.TransferID)
	if err != nil {
		return nil, fmt.Errorf("list transfer entries: %w", err)
	}
	defer rows.Close()
	var out []core.TransferEntry
	for rows.Next() {
		var (
			e      core.TransferEntry
			dir    string
			amount int64
		)
		if err := rows.Scan(&e.ID, &e.TransferID, &e.AccountID, &e.AccountName, &dir, &amount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transfer entry: %w", err)
		}
		e.Direction, e.Amount = core.TransferDirection(dir), core.Cents(amount)
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanBudget(row pgx.Row) (core.Budget, error) {
	var (
		b      core.Budget
		period string
		amount int64
	)
	if err := row.Scan(&b.ID, &b.Category, &amount, &period, &b.CreatedAt); err != nil {
		return core.Budget{}, err
	}
	b.Amount, b.Period = core.Cents(amount), core.Period(period)
	return b, nil
}

func (t *pgTx) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	b, err := scanBudget(t.tx.QueryRow(ctx, `SELECT id, category, amount_cents, period, created_at FROM budgets WHERE id = $1`, id))
	if err != nil {
		return core.Budget{}, notFound(err, "budget", id)
	}
	return b, nil
}

func (t *pgTx) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, category, amount_cents, period, created_at FROM budgets ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()
	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (t *pgTx) LockAccounts(ctx context.Context, ids ...string) error {
	uniq := make([]string, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	sort.Strings(uniq)

	rows, err := t.tx.Query(ctx, `SELECT id FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`, uniq)
	if err != nil {
		return fmt.Errorf("lock accounts: %w", err)
	}
	locked, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("lock accounts: %w", err)
	}
	if len(locked) != len(uniq) {
		for _, id := range uniq {
			found := false
			for _, l := range locked {
				if l == id {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("account %q: %w", id, core.ErrNotFound)
			}
		}
	}
	return nil
}

func (t *pgTx) InsertAccount(ctx context.Context, a core.Account) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO accounts (id, name, balance_cents, opening_balance_cents, created_at)
VALUES ($1, $2, $3, $4, $5)`, a.ID, a.Name, a.Balance.Cents, a.OpeningBalance.Cents, a.CreatedAt)
	if pgCode(err) == uniqueViolation {
		return fmt.Errorf("account %q: %w", a.Name, core.ErrDuplicateName)
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (t *pgTx) AdjustBalance(ctx context.Context, id string, delta core.Money) (core.Money, error) {
	var balance int64
	err := t.tx.QueryRow(ctx, `UPDATE accounts SET balance_cents = balance_cents + $1 WHERE id = $2 RETURNING balance_cents`,
		delta.Cents, id).Scan(&balance)
	if err != nil {
		return core.Money{}, notFound(err, "account", id)
	}
	return core.Cents(balance), nil
}

func (t *pgTx) InsertTransaction(ctx context.Context, txn core.Transaction) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO transactions
    (id, type, amount_cents, category, division, description, account_id, occurred_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		txn.ID, string(txn.Type), txn.Amount.Cents, txn.Category, string(txn.Division), txn.Description,
		txn.AccountID, txn.OccurredAt, txn.CreatedAt, txn.UpdatedAt)
	if pgCode(err) == foreignKeyViolation {
		return fmt.Errorf("account %q: %w", txn.AccountID, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateTransaction(ctx context.Context, txn core.Transaction) error {
	tag, err := t.tx.Exec(ctx, `UPDATE transactions
SET type = $1, amount_cents = $2, category = $3, division = $4, description = $5, account_id = $6, occurred_at = $7, updated_at = $8
WHERE id = $9`,
		string(txn.Type), txn.Amount.Cents, txn.Category, string(txn.Division), txn.Description,
		txn.AccountID, txn.OccurredAt, txn.UpdatedAt, txn.ID)
	if pgCode(err) == foreignKeyViolation {
		return fmt.Errorf("account %q: %w", txn.AccountID, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %q: %w", txn.ID, core.ErrNotFound)
	}
	return nil
}

func (t *pgTx) InsertTransferEntries(ctx context.Context, entries ...core.TransferEntry) error {
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`INSERT INTO transfer_entries (id, transfer_id, account_id, direction, amount_cents, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`, e.ID, e.TransferID, e.AccountID, string(e.Direction), e.Amount.Cents, e.CreatedAt)
	}
	err := t.tx.SendBatch(ctx, batch).Close()
	if pgCode(err) == foreignKeyViolation {
		return fmt.Errorf("transfer entry account: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("create transfer entries: %w", err)
	}
	return nil
}

func (t *pgTx) InsertBudget(ctx context.Context, b core.Budget) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO budgets (id, category, amount_cents, period, created_at) VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.Category, b.Amount.Cents, string(b.Period), b.CreatedAt)
	if err != nil {
		return fmt.Errorf("create budget: %w", err)
	}
	return nil
}

func (t *pgTx) DeleteBudget(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM budgets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("budget %q: %w", id, core.ErrNotFound)
	}
	return nil
}
