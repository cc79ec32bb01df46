package store

import (
	"context"
	"time"

	"ledger/internal/core"
)

// Ports implemented by the persistence adapters (memory, sqlite, postgres).
// Every write happens inside Update; the function either commits as a whole
// or leaves no trace.
type (
	// TransactionQuery bounds a transaction scan. Zero fields do not constrain.
	// Results come back in insertion order.
	TransactionQuery struct {
		Since     time.Time
		Until     time.Time
		Type      core.TransactionType
		AccountID string
	}

	// TransferQuery bounds a transfer-leg scan. Zero fields do not constrain.
	TransferQuery struct {
		AccountID  string
		TransferID string
	}

	// ReadTx sees a consistent snapshot of the ledger.
	ReadTx interface {
		GetAccount(ctx context.Context, id string) (core.Account, error)
		GetAccountByName(ctx context.Context, name string) (core.Account, error)
		ListAccounts(ctx context.Context) ([]core.Account, error)

		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		ListTransactions(ctx context.Context, q TransactionQuery) ([]core.Transaction, error)

		ListTransferEntries(ctx context.Context, q TransferQuery) ([]core.TransferEntry, error)

		GetBudget(ctx context.Context, id string) (core.Budget, error)
		ListBudgets(ctx context.Context) ([]core.Budget, error)
	}

	// Tx is a read-write unit of work.
	Tx interface {
		ReadTx

		// LockAccounts takes row-level write locks on the given accounts for
		// the rest of the unit of work. Unknown ids yield core.ErrNotFound.
		LockAccounts(ctx context.Context, ids ...string) error

		// InsertAccount fails with core.ErrDuplicateName when the name is taken.
		InsertAccount(ctx context.Context, a core.Account) error
		// AdjustBalance adds delta to the balance and returns the new balance.
		AdjustBalance(ctx context.Context, id string, delta core.Money) (core.Money, error)

		InsertTransaction(ctx context.Context, t core.Transaction) error
		UpdateTransaction(ctx context.Context, t core.Transaction) error

		InsertTransferEntries(ctx context.Context, entries ...core.TransferEntry) error

		InsertBudget(ctx context.Context, b core.Budget) error
		// DeleteBudget fails with core.ErrNotFound when id is unknown.
		DeleteBudget(ctx context.Context, id string) error
	}

	// Store opens units of work.
	Store interface {
		View(ctx context.Context, fn func(ReadTx) error) error
		Update(ctx context.Context, fn func(Tx) error) error
		Close() error
	}
)

// Matches reports whether t satisfies q.
func (q TransactionQuery) Matches(t core.Transaction) bool {
	if !q.Since.IsZero() && t.CreatedAt.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && t.CreatedAt.After(q.Until) {
		return false
	}
	if q.Type != "" && t.Type != q.Type {
		return false
	}
	if q.AccountID != "" && t.AccountID != q.AccountID {
		return false
	}
	return true
}

// Matches reports whether e satisfies q.
func (q TransferQuery) Matches(e core.TransferEntry) bool {
	if q.AccountID != "" && e.AccountID != q.AccountID {
		return false
	}
	if q.TransferID != "" && e.TransferID != q.TransferID {
		return false
	}
	return true
}
