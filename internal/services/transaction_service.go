package services

import (
	"context"
	"fmt"
	"time"

	"ledger/internal/core"
	"ledger/internal/events"
	"ledger/internal/log"
	"ledger/internal/store"
)

// TransactionService records and edits income and expense entries.
type TransactionService struct {
	*deps
	accounts *AccountService
	log      *log.Logger
}

// EditStatus describes how much longer a transaction can be edited.
type EditStatus struct {
	TransactionID  string
	Editable       bool
	EditableUntil  time.Time
	Remaining      time.Duration
	RemainingHours int
}

// Policy returns the edit policy in force.
func (s *TransactionService) Policy() core.EditPolicy {
	return s.policy
}

// CanEdit reports whether a transaction created at createdAt is editable now.
func (s *TransactionService) CanEdit(createdAt time.Time) bool {
	return s.policy.CanEdit(s.now(), createdAt)
}

// Record validates in and persists it together with its balance effect.
// Expenses larger than the current balance fail with core.ErrInsufficientFunds.
func (s *TransactionService) Record(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	txn, err := s.record(ctx, in)
	if err != nil {
		s.log.WarnContext(ctx, "Transaction rejected",
			log.NewFields().WithOperation(log.OpRecord).WithAccount(in.AccountRef, "").WithError(err, core.Kind(err)).ToSlice()...)
		return core.Transaction{}, err
	}
	s.log.InfoContext(ctx, "Transaction recorded",
		log.NewFields().WithTransaction(txn.ID, string(txn.Type), txn.Category, txn.Amount.Cents).
			WithAccount(txn.AccountID, txn.AccountName).ToSlice()...)
	s.emit(ctx, events.TransactionRecorded, txn.ID, txn.CreatedAt, txn.AccountID)
	return txn, nil
}

func (s *TransactionService) record(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	in, err := in.Normalize(s.taxonomy)
	if err != nil {
		return core.Transaction{}, err
	}
	acct, err := s.accounts.Resolve(ctx, in.AccountRef)
	if err != nil {
		return core.Transaction{}, err
	}

	release := s.locks.acquire(accountKey(acct.ID))
	defer release()

	now := s.now()
	txn := core.Transaction{
		ID:          s.newID(),
		Type:        in.Type,
		Amount:      in.Amount,
		Category:    in.Category,
		Division:    in.Division,
		Description: in.Description,
		AccountID:   acct.ID,
		AccountName: acct.Name,
		OccurredAt:  in.OccurredAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if txn.OccurredAt.IsZero() {
		txn.OccurredAt = now
	}

	err = s.store.Update(ctx, func(tx store.Tx) error {
		if err := tx.LockAccounts(ctx, acct.ID); err != nil {
			return err
		}
		current, err := tx.GetAccount(ctx, acct.ID)
		if err != nil {
			return err
		}
		if err := checkFunds(current, txn); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		_, err = s.accounts.adjustBalance(ctx, tx, acct.ID, txn.Effect())
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return txn, nil
}

// checkFunds rejects an expense that exceeds the balance it would be drawn from.
func checkFunds(a core.Account, t core.Transaction) error {
	if t.Type == core.Expense && t.Amount.GreaterThan(a.Balance) {
		return fmt.Errorf("%w: account %q holds %s, expense is %s",
			core.ErrInsufficientFunds, a.Name, a.Balance, t.Amount)
	}
	return nil
}

// Update applies patch to the transaction with the given id. The edit window
// is anchored to the original creation time: an expired transaction cannot be
// changed, not even with an empty patch. Balances end up exactly as if the
// transaction had been recorded with the new fields.
func (s *TransactionService) Update(ctx context.Context, id string, patch core.TransactionPatch) (core.Transaction, error) {
	txn, accountIDs, err := s.update(ctx, id, patch)
	if err != nil {
		fields := log.NewFields().WithOperation(log.OpUpdate).WithError(err, core.Kind(err))
		fields[log.FieldTransactionID] = id
		s.log.WarnContext(ctx, "Transaction update rejected", fields.ToSlice()...)
		return core.Transaction{}, err
	}
	s.log.InfoContext(ctx, "Transaction updated",
		log.NewFields().WithTransaction(txn.ID, string(txn.Type), txn.Category, txn.Amount.Cents).
			WithAccount(txn.AccountID, txn.AccountName).ToSlice()...)
	s.emit(ctx, events.TransactionUpdated, txn.ID, txn.UpdatedAt, accountIDs...)
	return txn, nil
}

// update returns the edited transaction and the ids of every account whose
// balance it touched. Both locks are released when it returns.
func (s *TransactionService) update(ctx context.Context, id string, patch core.TransactionPatch) (core.Transaction, []string, error) {
	releaseTxn := s.locks.acquire(transactionKey(id))
	defer releaseTxn()

	old, err := s.Get(ctx, id)
	if err != nil {
		return core.Transaction{}, nil, err
	}
	now := s.now()
	if !s.policy.CanEdit(now, old.CreatedAt) {
		return core.Transaction{}, nil, fmt.Errorf("%w: transaction %s was created at %s",
			core.ErrEditWindowExpired, id, old.CreatedAt.Format(time.RFC3339))
	}

	in, err := patch.Merge(old).Normalize(s.taxonomy)
	if err != nil {
		return core.Transaction{}, nil, err
	}
	acct, err := s.accounts.Resolve(ctx, in.AccountRef)
	if err != nil {
		return core.Transaction{}, nil, err
	}

	releaseAccounts := s.locks.acquire(accountKey(old.AccountID), accountKey(acct.ID))
	defer releaseAccounts()

	updated := old
	updated.Type = in.Type
	updated.Amount = in.Amount
	updated.Category = in.Category
	updated.Division = in.Division
	updated.Description = in.Description
	updated.AccountID = acct.ID
	updated.AccountName = acct.Name
	updated.OccurredAt = in.OccurredAt
	updated.UpdatedAt = now

	err = s.store.Update(ctx, func(tx store.Tx) error {
		if err := tx.LockAccounts(ctx, old.AccountID, acct.ID); err != nil {
			return err
		}
		if _, err := s.accounts.adjustBalance(ctx, tx, old.AccountID, old.Effect().Neg()); err != nil {
			return err
		}
		target, err := tx.GetAccount(ctx, acct.ID)
		if err != nil {
			return err
		}
		if err := checkFunds(target, updated); err != nil {
			return err
		}
		if _, err := s.accounts.adjustBalance(ctx, tx, acct.ID, updated.Effect()); err != nil {
			return err
		}
		return tx.UpdateTransaction(ctx, updated)
	})
	if err != nil {
		return core.Transaction{}, nil, err
	}

	accountIDs := []string{old.AccountID}
	if acct.ID != old.AccountID {
		accountIDs = append(accountIDs, acct.ID)
	}
	return updated, accountIDs, nil
}

// EditStatus reports the edit window of a transaction at the current time.
func (s *TransactionService) EditStatus(ctx context.Context, id string) (EditStatus, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return EditStatus{}, err
	}
	now := s.now()
	return EditStatus{
		TransactionID:  t.ID,
		Editable:       s.policy.CanEdit(now, t.CreatedAt),
		EditableUntil:  s.policy.EditableUntil(t.CreatedAt),
		Remaining:      s.policy.Remaining(now, t.CreatedAt),
		RemainingHours: s.policy.RemainingHours(now, t.CreatedAt),
	}, nil
}

// Get returns one transaction.
func (s *TransactionService) Get(ctx context.Context, id string) (core.Transaction, error) {
	var t core.Transaction
	err := s.store.View(ctx, func(tx store.ReadTx) error {
		var err error
		t, err = tx.GetTransaction(ctx, id)
		return err
	})
	return t, err
}

// List returns the transactions matching f, newest first unless f says
// otherwise. An account predicate naming an unknown account fails with
// core.ErrNotFound.
func (s *TransactionService) List(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	f, err := f.Normalize()
	if err != nil {
		return nil, err
	}

	var out []core.Transaction
	err = s.store.View(ctx, func(tx store.ReadTx) error {
		q := store.TransactionQuery{Since: f.From, Until: f.To, Type: f.Type}
		if f.Account != "" {
			acct, err := resolveAccount(ctx, tx, f.Account)
			if err != nil {
				return err
			}
			q.AccountID = acct.ID
			f.Account = acct.ID
		}
		txns, err := tx.ListTransactions(ctx, q)
		if err != nil {
			return err
		}
		out = f.Apply(txns)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
