package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ledger/internal/core"
	"ledger/internal/events"
	"ledger/internal/log"
	"ledger/internal/store"
)

// AccountService is the account registry. It owns the only balance mutator,
// adjustBalance, which the transaction and transfer engines call inside their
// own units of work.
type AccountService struct {
	*deps
	log *log.Logger
}

// AuditEntry compares an account's stored balance with the balance implied by
// its opening balance and every committed transaction and transfer leg.
type AuditEntry struct {
	Account  core.Account
	Expected core.Money
}

// Consistent reports whether stored and implied balances agree.
func (e AuditEntry) Consistent() bool {
	return e.Account.Balance == e.Expected
}

// Drift is stored minus implied balance.
func (e AuditEntry) Drift() core.Money {
	return e.Account.Balance.Sub(e.Expected)
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}

// Create registers a new account. The opening balance may be negative but
// its magnitude is bounded by core.MaxAmountCents.
func (s *AccountService) Create(ctx context.Context, name string, opening core.Money) (core.Account, error) {
	name, err := core.NormalizeAccountName(name)
	if err != nil {
		return core.Account{}, err
	}
	if opening.Cents > core.MaxAmountCents || opening.Cents < -core.MaxAmountCents {
		return core.Account{}, core.ErrAmountTooLarge
	}

	now := s.now()
	a := core.Account{
		ID:             s.newID(),
		Name:           name,
		Balance:        opening,
		OpeningBalance: opening,
		CreatedAt:      now,
	}
	err = s.store.Update(ctx, func(tx store.Tx) error {
		return tx.InsertAccount(ctx, a)
	})
	if err != nil {
		s.log.WarnContext(ctx, "Account creation rejected",
			log.NewFields().WithAccount("", name).WithError(err, core.Kind(err)).ToSlice()...)
		return core.Account{}, err
	}

	s.log.InfoContext(ctx, "Account created",
		log.NewFields().WithAccount(a.ID, a.Name).WithOperation(log.OpCreate).ToSlice()...)
	s.emit(ctx, events.AccountCreated, a.ID, now, a.ID)
	return a, nil
}

// Get returns the account with the given id.
func (s *AccountService) Get(ctx context.Context, id string) (core.Account, error) {
	var a core.Account
	err := s.store.View(ctx, func(tx store.ReadTx) error {
		var err error
		a, err = tx.GetAccount(ctx, id)
		return err
	})
	return a, err
}

// Resolve looks an account up by id first, then by exact name.
func (s *AccountService) Resolve(ctx context.Context, ref string) (core.Account, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return core.Account{}, core.ErrEmptyReference
	}
	var a core.Account
	err := s.store.View(ctx, func(tx store.ReadTx) error {
		var err error
		a, err = resolveAccount(ctx, tx, ref)
		return err
	})
	return a, err
}

// List returns every account in creation order.
func (s *AccountService) List(ctx context.Context) ([]core.Account, error) {
	var out []core.Account
	err := s.store.View(ctx, func(tx store.ReadTx) error {
		var err error
		out, err = tx.ListAccounts(ctx)
		return err
	})
	return out, err
}

// NetWorth is the sum of all account balances.
func (s *AccountService) NetWorth(ctx context.Context) (core.Money, error) {
	accounts, err := s.List(ctx)
	if err != nil {
		return core.Money{}, err
	}
	balances := make([]core.Money, len(accounts))
	for i, a := range accounts {
		balances[i] = a.Balance
	}
	return core.Sum(balances...)
}

// Audit recomputes every balance from history within one snapshot.
func (s *AccountService) Audit(ctx context.Context) ([]AuditEntry, error) {
	var out []AuditEntry
	err := s.store.View(ctx, func(tx store.ReadTx) error {
		accounts, err := tx.ListAccounts(ctx)
		if err != nil {
			return err
		}
		txns, err := tx.ListTransactions(ctx, store.TransactionQuery{})
		if err != nil {
			return err
		}
		legs, err := tx.ListTransferEntries(ctx, store.TransferQuery{})
		if err != nil {
			return err
		}

		implied := make(map[string]core.Money, len(accounts))
		for _, a := range accounts {
			implied[a.ID] = a.OpeningBalance
		}
		apply := func(id string, delta core.Money) error {
			next, err := implied[id].CheckedAdd(delta)
			if err != nil {
				return fmt.Errorf("replay account %q: %w", id, err)
			}
			implied[id] = next
			return nil
		}
		for _, t := range txns {
			if err := apply(t.AccountID, t.Effect()); err != nil {
				return err
			}
		}
		for _, e := range legs {
			if err := apply(e.AccountID, e.Effect()); err != nil {
				return err
			}
		}

		out = make([]AuditEntry, 0, len(accounts))
		for _, a := range accounts {
			out = append(out, AuditEntry{Account: a, Expected: implied[a.ID]})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, e := range out {
		if !e.Consistent() {
			s.log.WarnContext(ctx, "Balance drift detected",
				log.NewFields().WithAccount(e.Account.ID, e.Account.Name).ToSlice()...)
		}
	}
	return out, nil
}

// adjustBalance adds delta to the account inside tx. The caller must have
// locked the account. A result outside int64 cents fails with
// core.ErrAmountOverflow before the store is touched.
func (s *AccountService) adjustBalance(ctx context.Context, tx store.Tx, id string, delta core.Money) (core.Money, error) {
	current, err := tx.GetAccount(ctx, id)
	if err != nil {
		return core.Money{}, fmt.Errorf("adjust balance of %q: %w", id, err)
	}
	if _, err := current.Balance.CheckedAdd(delta); err != nil {
		return core.Money{}, fmt.Errorf("adjust balance of %q: %w", id, err)
	}
	balance, err := tx.AdjustBalance(ctx, id, delta)
	if err != nil {
		return core.Money{}, fmt.Errorf("adjust balance of %q: %w", id, err)
	}
	s.log.DebugContext(ctx, "Balance adjusted",
		log.FieldAccountID, id, log.FieldAmountCents, delta.Cents, "balance_cents", balance.Cents)
	return balance, nil
}
