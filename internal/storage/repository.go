package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/store"
)

// SQLiteRepository persists the ledger in a single SQLite file. Writes go
// through a one-connection handle that opens IMMEDIATE transactions, so
// concurrent Updates queue on the database lock instead of failing with
// SQLITE_BUSY mid-transaction. Reads use a separate pool.
type SQLiteRepository struct {
	writer *sql.DB
	reader *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

const (
	writerParams = "?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	readerParams = "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("migrate %s: %w", dbPath, err)
	}

	writer, err := sql.Open("sqlite", dbPath+writerParams)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	writer.SetMaxOpenConns(1)
	if err := writer.Ping(); err != nil {
		writer.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	reader, err := sql.Open("sqlite", dbPath+readerParams)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open sqlite reader: %w", err)
	}

	slog.Info("SQLite ledger opened",
		log.FieldComponent, log.ComponentStorage,
		"path", dbPath,
		"schema_version", version)
	return &SQLiteRepository{writer: writer, reader: reader}, nil
}

func (r *SQLiteRepository) Close() error {
	return errors.Join(r.reader.Close(), r.writer.Close())
}

// View runs fn inside a read transaction, which gives it a stable snapshot.
func (r *SQLiteRepository) View(ctx context.Context, fn func(store.ReadTx) error) error {
	tx, err := r.reader.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Rollback()
	return fn(&sqliteTx{q: New(tx)})
}

// Update runs fn in a write transaction and commits when fn returns nil.
func (r *SQLiteRepository) Update(ctx context.Context, fn func(store.Tx) error) error {
	tx, err := r.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := fn(&sqliteTx{q: New(tx)}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type sqliteTx struct {
	q *Queries
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func notFound(err error, what, key string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %q: %w", what, key, core.ErrNotFound)
	}
	return fmt.Errorf("get %s %q: %w", what, key, err)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func isForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

func accountFromRow(a AccountRow) core.Account {
	return core.Account{
		ID:             a.ID,
		Name:           a.Name,
		Balance:        core.Cents(a.BalanceCents),
		OpeningBalance: core.Cents(a.OpeningBalanceCents),
		CreatedAt:      fromNanos(a.CreatedAt),
	}
}

func transactionFromRow(t TransactionRow) core.Transaction {
	return core.Transaction{
		ID:          t.ID,
		Type:        core.TransactionType(t.Type),
		Amount:      core.Cents(t.AmountCents),
		Category:    t.Category,
		Division:    core.Division(t.Division),
		Description: t.Description,
		AccountID:   t.AccountID,
		AccountName: t.AccountName,
		OccurredAt:  fromNanos(t.OccurredAt),
		CreatedAt:   fromNanos(t.CreatedAt),
		UpdatedAt:   fromNanos(t.UpdatedAt),
	}
}

func transactionToRow(t core.Transaction) TransactionRow {
	return TransactionRow{
		ID:          t.ID,
		Type:        string(t.Type),
		AmountCents: t.Amount.Cents,
		Category:    t.Category,
		Division:    string(t.Division),
		Description: t.Description,
		AccountID:   t.AccountID,
		OccurredAt:  toNanos(t.OccurredAt),
		CreatedAt:   toNanos(t.CreatedAt),
		UpdatedAt:   toNanos(t.UpdatedAt),
	}
}

func budgetFromRow(b BudgetRow) core.Budget {
	return core.Budget{
		ID:        b.ID,
		Category:  b.Category,
		Amount:    core.Cents(b.AmountCents),
		Period:    core.Period(b.Period),
		CreatedAt: fromNanos(b.CreatedAt),
	}
}

func (t *sqliteTx) GetAccount(ctx context.Context, id string) (core.Account, error) {
	a, err := t.q.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, notFound(err, "account", id)
	}
	return accountFromRow(a), nil
}

func (t *sqliteTx) GetAccountByName(ctx context.Context, name string) (core.Account, error) {
	a, err := t.q.GetAccountByName(ctx, name)
	if err != nil {
		return core.Account{}, notFound(err, "account", name)
	}
	return accountFromRow(a), nil
}

func (t *sqliteTx) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := t.q.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]core.Account, len(rows))
	for i, a := range rows {
		out[i] = accountFromRow(a)
	}
	return out, nil
}

func (t *sqliteTx) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row, err := t.q.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, notFound(err, "transaction", id)
	}
	return transactionFromRow(row), nil
}

func (t *sqliteTx) ListTransactions(ctx context.Context, q store.TransactionQuery) ([]core.Transaction, error) {
	rows, err := t.q.ListTransactions(ctx, ListTransactionsParams{
		Since:     toNanos(q.Since),
		Until:     toNanos(q.Until),
		Type:      string(q.Type),
		AccountID: q.AccountID,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, len(rows))
	for i, r := range rows {
		out[i] = transactionFromRow(r)
	}
	return out, nil
}

func (t *sqliteTx) ListTransferEntries(ctx context.Context, q store.TransferQuery) ([]core.TransferEntry, error) {
	rows, err := t.q.ListTransferEntries(ctx, q.AccountID, q.TransferID)
	if err != nil {
		return nil, fmt.Errorf("list transfer entries: %w", err)
	}
	out := make([]core.TransferEntry, len(rows))
	for i, e := range rows {
		out[i] = core.TransferEntry{
			ID:          e.ID,
			TransferID:  e.TransferID,
			AccountID:   e.AccountID,
			AccountName: e.AccountName,
			Direction:   core.TransferDirection(e.Direction),
			Amount:      core.Cents(e.AmountCents),
			CreatedAt:   fromNanos(e.CreatedAt),
		}
	}
	return out, nil
}

func (t *sqliteTx) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	b, err := t.q.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, notFound(err, "budget", id)
	}
	return budgetFromRow(b), nil
}

func (t *sqliteTx) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := t.q.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, len(rows))
	for i, b := range rows {
		out[i] = budgetFromRow(b)
	}
	return out, nil
}

// LockAccounts checks existence only; the IMMEDIATE transaction already
// holds the database write lock.
func (t *sqliteTx) LockAccounts(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if _, err := t.GetAccount(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (t *sqliteTx) InsertAccount(ctx context.Context, a core.Account) error {
	err := t.q.CreateAccount(ctx, AccountRow{
		ID:                  a.ID,
		Name:                a.Name,
		BalanceCents:        a.Balance.Cents,
		OpeningBalanceCents: a.OpeningBalance.Cents,
		CreatedAt:           toNanos(a.CreatedAt),
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("account %q: %w", a.Name, core.ErrDuplicateName)
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (t *sqliteTx) AdjustBalance(ctx context.Context, id string, delta core.Money) (core.Money, error) {
	balance, err := t.q.AdjustBalance(ctx, id, delta.Cents)
	if err != nil {
		return core.Money{}, notFound(err, "account", id)
	}
	return core.Cents(balance), nil
}

func (t *sqliteTx) InsertTransaction(ctx context.Context, txn core.Transaction) error {
	err := t.q.CreateTransaction(ctx, transactionToRow(txn))
	if isForeignKeyViolation(err) {
		return fmt.Errorf("account %q: %w", txn.AccountID, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (t *sqliteTx) UpdateTransaction(ctx context.Context, txn core.Transaction) error {
	n, err := t.q.UpdateTransaction(ctx, transactionToRow(txn))
	if isForeignKeyViolation(err) {
		return fmt.Errorf("account %q: %w", txn.AccountID, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %q: %w", txn.ID, core.ErrNotFound)
	}
	return nil
}

func (t *sqliteTx) InsertTransferEntries(ctx context.Context, entries ...core.TransferEntry) error {
	for _, e := range entries {
		err := t.q.CreateTransferEntry(ctx, TransferEntryRow{
			ID:          e.ID,
			TransferID:  e.TransferID,
			AccountID:   e.AccountID,
			Direction:   string(e.Direction),
			AmountCents: e.Amount.Cents,
			CreatedAt:   toNanos(e.CreatedAt),
		})
		if isForeignKeyViolation(err) {
			return fmt.Errorf("account %q: %w", e.AccountID, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("create transfer entry: %w", err)
		}
	}
	return nil
}

func (t *sqliteTx) InsertBudget(ctx context.Context, b core.Budget) error {
	err := t.q.CreateBudget(ctx, BudgetRow{
		ID:          b.ID,
		Category:    b.Category,
		AmountCents: b.Amount.Cents,
		Period:      string(b.Period),
		CreatedAt:   toNanos(b.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("create budget: %w", err)
	}
	return nil
}

func (t *sqliteTx) DeleteBudget(ctx context.Context, id string) error {
	n, err := t.q.DeleteBudget(ctx, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("budget %q: %w", id, core.ErrNotFound)
	}
	return nil
}
