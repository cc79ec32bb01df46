package memory

import (
	"context"
	"fmt"
	"sync"

	"ledger/internal/core"
	"ledger/internal/store"
)

// Store keeps the whole ledger in process memory. Writers are serialised by
// mu; a failed Update is rolled back through an undo log.
type Store struct {
	mu sync.RWMutex

	accounts     map[string]core.Account
	accountOrder []string
	byName       map[string]string

	txns     map[string]core.Transaction
	txnOrder []string

	transfers []core.TransferEntry

	budgets     map[string]core.Budget
	budgetOrder []string

	closed bool
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		accounts: map[string]core.Account{},
		byName:   map[string]string{},
		txns:     map[string]core.Transaction{},
		budgets:  map[string]core.Budget{},
	}
}

// View runs fn against the current state under a shared lock.
func (s *Store) View(ctx context.Context, fn func(store.ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	return fn(&tx{s: s})
}

// Update runs fn exclusively. Any error returned by fn (or a panic) undoes
// every change fn made.
func (s *Store) Update(ctx context.Context, fn func(store.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	t := &tx{s: s, writable: true}
	defer func() {
		if p := recover(); p != nil {
			t.rollback()
			panic(p)
		}
		if err != nil {
			t.rollback()
		}
	}()
	return fn(t)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var errClosed = fmt.Errorf("memory store: closed")

type tx struct {
	s        *Store
	writable bool
	undo     []func()
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *tx) GetAccount(_ context.Context, id string) (core.Account, error) {
	a, ok := t.s.accounts[id]
	if !ok {
		return core.Account{}, fmt.Errorf("account %q: %w", id, core.ErrNotFound)
	}
	return a, nil
}

func (t *tx) GetAccountByName(_ context.Context, name string) (core.Account, error) {
	id, ok := t.s.byName[name]
	if !ok {
		return core.Account{}, fmt.Errorf("account %q: %w", name, core.ErrNotFound)
	}
	return t.s.accounts[id], nil
}

func (t *tx) ListAccounts(_ context.Context) ([]core.Account, error) {
	out := make([]core.Account, 0, len(t.s.accountOrder))
	for _, id := range t.s.accountOrder {
		out = append(out, t.s.accounts[id])
	}
	return out, nil
}

func (t *tx) withAccountName(txn core.Transaction) core.Transaction {
	if a, ok := t.s.accounts[txn.AccountID]; ok {
		txn.AccountName = a.Name
	}
	return txn
}

func (t *tx) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	txn, ok := t.s.txns[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %q: %w", id, core.ErrNotFound)
	}
	return t.withAccountName(txn), nil
}

func (t *tx) ListTransactions(_ context.Context, q store.TransactionQuery) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, id := range t.s.txnOrder {
		txn := t.s.txns[id]
		if q.Matches(txn) {
			out = append(out, t.withAccountName(txn))
		}
	}
	return out, nil
}

func (t *tx) ListTransferEntries(_ context.Context, q store.TransferQuery) ([]core.TransferEntry, error) {
	var out []core.TransferEntry
	for _, e := range t.s.transfers {
		if !q.Matches(e) {
			continue
		}
		if a, ok := t.s.accounts[e.AccountID]; ok {
			e.AccountName = a.Name
		}
		out = append(out, e)
	}
	return out, nil
}

func (t *tx) GetBudget(_ context.Context, id string) (core.Budget, error) {
	b, ok := t.s.budgets[id]
	if !ok {
		return core.Budget{}, fmt.Errorf("budget %q: %w", id, core.ErrNotFound)
	}
	return b, nil
}

func (t *tx) ListBudgets(_ context.Context) ([]core.Budget, error) {
	out := make([]core.Budget, 0, len(t.s.budgetOrder))
	for _, id := range t.s.budgetOrder {
		out = append(out, t.s.budgets[id])
	}
	return out, nil
}

// LockAccounts only checks existence: Update already holds the store lock.
func (t *tx) LockAccounts(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if _, err := t.GetAccount(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (t *tx) InsertAccount(_ context.Context, a core.Account) error {
	if _, taken := t.s.byName[a.Name]; taken {
		return fmt.Errorf("account %q: %w", a.Name, core.ErrDuplicateName)
	}
	if _, taken := t.s.accounts[a.ID]; taken {
		return fmt.Errorf("account id %q already exists", a.ID)
	}
	s := t.s
	s.accounts[a.ID] = a
	s.byName[a.Name] = a.ID
	s.accountOrder = append(s.accountOrder, a.ID)
	t.undo = append(t.undo, func() {
		delete(s.accounts, a.ID)
		delete(s.byName, a.Name)
		s.accountOrder = s.accountOrder[:len(s.accountOrder)-1]
	})
	return nil
}

func (t *tx) AdjustBalance(ctx context.Context, id string, delta core.Money) (core.Money, error) {
	a, err := t.GetAccount(ctx, id)
	if err != nil {
		return core.Money{}, err
	}
	prev := a
	if a.Balance, err = a.Balance.CheckedAdd(delta); err != nil {
		return core.Money{}, fmt.Errorf("account %q: %w", id, err)
	}
	s := t.s
	s.accounts[id] = a
	t.undo = append(t.undo, func() { s.accounts[id] = prev })
	return a.Balance, nil
}

func (t *tx) InsertTransaction(_ context.Context, txn core.Transaction) error {
	if _, ok := t.s.accounts[txn.AccountID]; !ok {
		return fmt.Errorf("account %q: %w", txn.AccountID, core.ErrNotFound)
	}
	if _, taken := t.s.txns[txn.ID]; taken {
		return fmt.Errorf("transaction id %q already exists", txn.ID)
	}
	s := t.s
	txn.AccountName = ""
	s.txns[txn.ID] = txn
	s.txnOrder = append(s.txnOrder, txn.ID)
	t.undo = append(t.undo, func() {
		delete(s.txns, txn.ID)
		s.txnOrder = s.txnOrder[:len(s.txnOrder)-1]
	})
	return nil
}

func (t *tx) UpdateTransaction(_ context.Context, txn core.Transaction) error {
	prev, ok := t.s.txns[txn.ID]
	if !ok {
		return fmt.Errorf("transaction %q: %w", txn.ID, core.ErrNotFound)
	}
	if _, ok := t.s.accounts[txn.AccountID]; !ok {
		return fmt.Errorf("account %q: %w", txn.AccountID, core.ErrNotFound)
	}
	s := t.s
	txn.AccountName = ""
	txn.CreatedAt = prev.CreatedAt
	s.txns[txn.ID] = txn
	t.undo = append(t.undo, func() { s.txns[txn.ID] = prev })
	return nil
}

func (t *tx) InsertTransferEntries(_ context.Context, entries ...core.TransferEntry) error {
	for _, e := range entries {
		if _, ok := t.s.accounts[e.AccountID]; !ok {
			return fmt.Errorf("account %q: %w", e.AccountID, core.ErrNotFound)
		}
	}
	s := t.s
	n := len(s.transfers)
	for _, e := range entries {
		e.AccountName = ""
		s.transfers = append(s.transfers, e)
	}
	t.undo = append(t.undo, func() { s.transfers = s.transfers[:n] })
	return nil
}

func (t *tx) InsertBudget(_ context.Context, b core.Budget) error {
	if _, taken := t.s.budgets[b.ID]; taken {
		return fmt.Errorf("budget id %q already exists", b.ID)
	}
	s := t.s
	s.budgets[b.ID] = b
	s.budgetOrder = append(s.budgetOrder, b.ID)
	t.undo = append(t.undo, func() {
		delete(s.budgets, b.ID)
		s.budgetOrder = s.budgetOrder[:len(s.budgetOrder)-1]
	})
	return nil
}

func (t *tx) DeleteBudget(_ context.Context, id string) error {
	b, ok := t.s.budgets[id]
	if !ok {
		return fmt.Errorf("budget %q: %w", id, core.ErrNotFound)
	}
	s := t.s
	idx := -1
	for i, v := range s.budgetOrder {
		if v == id {
			idx = i
			break
		}
	}
	delete(s.budgets, id)
	if idx >= 0 {
		s.budgetOrder = append(s.budgetOrder[:idx:idx], s.budgetOrder[idx+1:]...)
	}
	t.undo = append(t.undo, func() {
		s.budgets[id] = b
		if idx >= 0 {
			order := make([]string, 0, len(s.budgetOrder)+1)
			order = append(order, s.budgetOrder[:idx]...)
			order = append(order, id)
			order = append(order, s.budgetOrder[idx:]...)
			s.budgetOrder = order
		}
	})
	return nil
}
