package services

import (
	"context"
	"fmt"
	"strings"

	"ledger/internal/core"
	"ledger/internal/events"
	"ledger/internal/log"
	"ledger/internal/store"
)

// TransferService moves funds between two accounts. Transfers never create
// income or expense transactions and are invisible to aggregations.
type TransferService struct {
	*deps
	accounts *AccountService
	log      *log.Logger
}

// Transfer debits from and credits to by exactly amount in one unit of work.
func (s *TransferService) Transfer(ctx context.Context, fromRef, toRef string, amount core.Money) (core.Transfer, error) {
	tr, err := s.transfer(ctx, fromRef, toRef, amount)
	if err != nil {
		s.log.WarnContext(ctx, "Transfer rejected",
			log.NewFields().WithOperation(log.OpTransfer).WithError(err, core.Kind(err)).ToSlice()...)
		return core.Transfer{}, err
	}
	s.log.InfoContext(ctx, "Transfer completed",
		log.NewFields().WithTransfer(tr.ID, tr.Amount.Cents).ToSlice()...)
	s.emit(ctx, events.TransferCompleted, tr.ID, tr.CreatedAt, tr.FromAccountID, tr.ToAccountID)
	return tr, nil
}

func (s *TransferService) transfer(ctx context.Context, fromRef, toRef string, amount core.Money) (core.Transfer, error) {
	fromRef, toRef = strings.TrimSpace(fromRef), strings.TrimSpace(toRef)
	if fromRef == "" || toRef == "" {
		return core.Transfer{}, fmt.Errorf("%w: both accounts are required", core.ErrInvalidTransfer)
	}
	if fromRef == toRef {
		return core.Transfer{}, fmt.Errorf("%w: source and destination are the same account", core.ErrInvalidTransfer)
	}
	if !amount.IsPositive() {
		return core.Transfer{}, fmt.Errorf("%w: amount must be greater than zero", core.ErrInvalidTransfer)
	}
	if amount.Cents > core.MaxAmountCents {
		return core.Transfer{}, fmt.Errorf("%w: amount exceeds %s", core.ErrInvalidTransfer, core.Cents(core.MaxAmountCents))
	}

	var from, to core.Account
	err := s.store.View(ctx, func(tx store.ReadTx) error {
		var err error
		if from, err = resolveAccount(ctx, tx, fromRef); err != nil {
			return err
		}
		to, err = resolveAccount(ctx, tx, toRef)
		return err
	})
	if err != nil {
		return core.Transfer{}, err
	}
	if from.ID == to.ID {
		return core.Transfer{}, fmt.Errorf("%w: source and destination are the same account", core.ErrInvalidTransfer)
	}

	release := s.locks.acquire(accountKey(from.ID), accountKey(to.ID))
	defer release()

	now := s.now()
	tr := core.Transfer{
		ID:            s.newID(),
		FromAccountID: from.ID,
		ToAccountID:   to.ID,
		Amount:        amount,
		CreatedAt:     now,
	}
	tr.Entries = []core.TransferEntry{
		{ID: s.newID(), TransferID: tr.ID, AccountID: from.ID, AccountName: from.Name, Direction: core.TransferOut, Amount: amount, CreatedAt: now},
		{ID: s.newID(), TransferID: tr.ID, AccountID: to.ID, AccountName: to.Name, Direction: core.TransferIn, Amount: amount, CreatedAt: now},
	}

	err = s.store.Update(ctx, func(tx store.Tx) error {
		if err := tx.LockAccounts(ctx, from.ID, to.ID); err != nil {
			return err
		}
		src, err := tx.GetAccount(ctx, from.ID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(src.Balance) {
			return fmt.Errorf("%w: account %q holds %s, transfer is %s",
				core.ErrInsufficientFunds, src.Name, src.Balance, amount)
		}
		if err := tx.InsertTransferEntries(ctx, tr.Entries...); err != nil {
			return err
		}
		for _, e := range tr.Entries {
			if _, err := s.accounts.adjustBalance(ctx, tx, e.AccountID, e.Effect()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.Transfer{}, err
	}
	return tr, nil
}

// Get reassembles a transfer from its two legs.
func (s *TransferService) Get(ctx context.Context, transferID string) (core.Transfer, error) {
	var legs []core.TransferEntry
	err := s.store.View(ctx, func(tx store.ReadTx) error {
		var err error
		legs, err = tx.ListTransferEntries(ctx, store.TransferQuery{TransferID: transferID})
		return err
	})
	if err != nil {
		return core.Transfer{}, err
	}
	if len(legs) == 0 {
		return core.Transfer{}, fmt.Errorf("transfer %q: %w", transferID, core.ErrNotFound)
	}
	tr := core.Transfer{ID: transferID, Amount: legs[0].Amount, CreatedAt: legs[0].CreatedAt, Entries: legs}
	for _, e := range legs {
		switch e.Direction {
		case core.TransferOut:
			tr.FromAccountID = e.AccountID
		case core.TransferIn:
			tr.ToAccountID = e.AccountID
		}
	}
	return tr, nil
}

// List returns transfer legs newest first. An empty accountRef lists every leg.
func (s *TransferService) List(ctx context.Context, accountRef string) ([]core.TransferEntry, error) {
	var out []core.TransferEntry
	err := s.store.View(ctx, func(tx store.ReadTx) error {
		var q store.TransferQuery
		if ref := strings.TrimSpace(accountRef); ref != "" {
			acct, err := resolveAccount(ctx, tx, ref)
			if err != nil {
				return err
			}
			q.AccountID = acct.ID
		}
		var err error
		out, err = tx.ListTransferEntries(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	core.SortTransferEntries(out)
	return out, nil
}
