package storage

import (
	"context"
)

// Row types mirror the tables one to one.
type (
	AccountRow struct {
		ID                  string
		Name                string
		BalanceCents        int64
		OpeningBalanceCents int64
		CreatedAt           int64
	}

	TransactionRow struct {
		ID          string
		Type        string
		AmountCents int64
		Category    string
		Division    string
		Description string
		AccountID   string
		AccountName string
		OccurredAt  int64
		CreatedAt   int64
		UpdatedAt   int64
	}

	TransferEntryRow struct {
		ID          string
		TransferID  string
		AccountID   string
		AccountName string
		Direction   string
		AmountCents int64
		CreatedAt   int64
	}

	BudgetRow struct {
		ID          string
		Category    string
		AmountCents int64
		Period      string
		CreatedAt   int64
	}
)

const createAccount = `INSERT INTO accounts (id, name, balance_cents, opening_balance_cents, created_at)
VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateAccount(ctx context.Context, arg AccountRow) error {
	_, err := q.db.ExecContext(ctx, createAccount, arg.ID, arg.Name, arg.BalanceCents, arg.OpeningBalanceCents, arg.CreatedAt)
	return err
}

const accountColumns = `id, name, balance_cents, opening_balance_cents, created_at`

func scanAccount(row interface{ Scan(...interface{}) error }) (AccountRow, error) {
	var a AccountRow
	err := row.Scan(&a.ID, &a.Name, &a.BalanceCents, &a.OpeningBalanceCents, &a.CreatedAt)
	return a, err
}

const getAccount = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

func (q *Queries) GetAccount(ctx context.Context, id string) (AccountRow, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccount, id))
}

const getAccountByName = `SELECT ` + accountColumns + ` FROM accounts WHERE name = ?`

func (q *Queries) GetAccountByName(ctx context.Context, name string) (AccountRow, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccountByName, name))
}

const listAccounts = `SELECT ` + accountColumns + ` FROM accounts ORDER BY rowid`

func (q *Queries) ListAccounts(ctx context.Context) ([]AccountRow, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AccountRow
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const adjustBalance = `UPDATE accounts SET balance_cents = balance_cents + ? WHERE id = ? RETURNING balance_cents`

func (q *Queries) AdjustBalance(ctx context.Context, id string, delta int64) (int64, error) {
	var balance int64
	err := q.db.QueryRowContext(ctx, adjustBalance, delta, id).Scan(&balance)
	return balance, err
}

const createTransaction = `INSERT INTO transactions
    (id, type, amount_cents, category, division, description, account_id, occurred_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, arg TransactionRow) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		arg.ID, arg.Type, arg.AmountCents, arg.Category, arg.Division, arg.Description,
		arg.AccountID, arg.OccurredAt, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const updateTransaction = `UPDATE transactions
SET type = ?, amount_cents = ?, category = ?, division = ?, description = ?, account_id = ?, occurred_at = ?, updated_at = ?
WHERE id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, arg TransactionRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		arg.Type, arg.AmountCents, arg.Category, arg.Division, arg.Description,
		arg.AccountID, arg.OccurredAt, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const transactionColumns = `t.id, t.type, t.amount_cents, t.category, t.division, t.description,
    t.account_id, a.name, t.occurred_at, t.created_at, t.updated_at`

func scanTransaction(row interface{ Scan(...interface{}) error }) (TransactionRow, error) {
	var t TransactionRow
	err := row.Scan(&t.ID, &t.Type, &t.AmountCents, &t.Category, &t.Division, &t.Description,
		&t.AccountID, &t.AccountName, &t.OccurredAt, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

const getTransaction = `SELECT ` + transactionColumns + `
FROM transactions t JOIN accounts a ON a.id = t.account_id
WHERE t.id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (TransactionRow, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

// Zero-valued filter arguments disable their predicate.
const listTransactions = `SELECT ` + transactionColumns + `
FROM transactions t JOIN accounts a ON a.id = t.account_id
WHERE (?1 = 0 OR t.created_at >= ?1)
  AND (?2 = 0 OR t.created_at <= ?2)
  AND (?3 = '' OR t.type = ?3)
  AND (?4 = '' OR t.account_id = ?4)
ORDER BY t.rowid`

type ListTransactionsParams struct {
	Since     int64
	Until     int64
	Type      string
	AccountID string
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, arg.Since, arg.Until, arg.Type, arg.AccountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const createTransferEntry = `INSERT INTO transfer_entries (id, transfer_id, account_id, direction, amount_cents, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransferEntry(ctx context.Context, arg TransferEntryRow) error {
	_, err := q.db.ExecContext(ctx, createTransferEntry,
		arg.ID, arg.TransferID, arg.AccountID, arg.Direction, arg.AmountCents, arg.CreatedAt)
	return err
}

const listTransferEntries = `SELECT e.id, e.transfer_id, e.account_id, a.name, e.direction, e.amount_cents, e.created_at
FROM transfer_entries e JOIN accounts a ON a.id = e.account_id
WHERE (?1 = '' OR e.account_id = ?1)
  AND (?2 = '' OR e.transfer_id = ?2)
ORDER BY e.rowid`

func (q *Queries) ListTransferEntries(ctx context.Context, accountID, transferID string) ([]TransferEntryRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransferEntries, accountID, transferID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransferEntryRow
	for rows.Next() {
		var e TransferEntryRow
		if err := rows.Scan(&e.ID, &e.TransferID, &e.AccountID, &e.AccountName, &e.Direction, &e.AmountCents, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const createBudget = `INSERT INTO budgets (id, category, amount_cents, period, created_at) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateBudget(ctx context.Context, arg BudgetRow) error {
	_, err := q.db.ExecContext(ctx, createBudget, arg.ID, arg.Category, arg.AmountCents, arg.Period, arg.CreatedAt)
	return err
}

const getBudget = `SELECT id, category, amount_cents, period, created_at FROM budgets WHERE id = ?`

func (q *Queries) GetBudget(ctx context.Context, id string) (BudgetRow, error) {
	var b BudgetRow
	err := q.db.QueryRowContext(ctx, getBudget, id).Scan(&b.ID, &b.Category, &b.AmountCents, &b.Period, &b.CreatedAt)
	return b, err
}

const listBudgets = `SELECT id, category, amount_cents, period, created_at FROM budgets ORDER BY rowid`

func (q *Queries) ListBudgets(ctx context.Context) ([]BudgetRow, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetRow
	for rows.Next() {
		var b BudgetRow
		if err := rows.Scan(&b.ID, &b.Category, &b.AmountCents, &b.Period, &b.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

const deleteBudget = `DELETE FROM budgets WHERE id = ?`

func (q *Queries) DeleteBudget(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteBudget, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
