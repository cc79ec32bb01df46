// Package storetest holds behavioural checks shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledger/internal/core"
	"ledger/internal/store"
)

var base = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

// Run exercises s. s must be empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	wallet := core.Account{ID: "acc-wallet", Name: "Wallet", Balance: core.Cents(10000), OpeningBalance: core.Cents(10000), CreatedAt: base}
	bank := core.Account{ID: "acc-bank", Name: "Bank", CreatedAt: base.Add(time.Second)}

	t.Run("insert and read accounts", func(t *testing.T) {
		err := s.Update(ctx, func(tx store.Tx) error {
			if err := tx.InsertAccount(ctx, wallet); err != nil {
				return err
			}
			return tx.InsertAccount(ctx, bank)
		})
		if err != nil {
			t.Fatalf("insert accounts: %v", err)
		}

		err = s.View(ctx, func(tx store.ReadTx) error {
			got, err := tx.GetAccountByName(ctx, "Wallet")
			if err != nil {
				return err
			}
			if got.ID != wallet.ID || got.Balance.Cents != 10000 || got.OpeningBalance.Cents != 10000 {
				t.Errorf("unexpected account: %+v", got)
			}
			if !got.CreatedAt.Equal(base) {
				t.Errorf("created at = %v, want %v", got.CreatedAt, base)
			}
			all, err := tx.ListAccounts(ctx)
			if err != nil {
				return err
			}
			if len(all) != 2 || all[0].ID != wallet.ID || all[1].ID != bank.ID {
				t.Errorf("accounts not in creation order: %+v", all)
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	})

	t.Run("duplicate name is rejected", func(t *testing.T) {
		err := s.Update(ctx, func(tx store.Tx) error {
			return tx.InsertAccount(ctx, core.Account{ID: "acc-other", Name: "Wallet", CreatedAt: base})
		})
		if !errors.Is(err, core.ErrDuplicateName) {
			t.Fatalf("expected duplicate name, got %v", err)
		}
	})

	t.Run("names are case sensitive", func(t *testing.T) {
		err := s.View(ctx, func(tx store.ReadTx) error {
			_, err := tx.GetAccountByName(ctx, "wallet")
			return err
		})
		if !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("unknown ids are not found", func(t *testing.T) {
		err := s.View(ctx, func(tx store.ReadTx) error {
			if _, err := tx.GetAccount(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("account: %v", err)
			}
			if _, err := tx.GetTransaction(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("transaction: %v", err)
			}
			if _, err := tx.GetBudget(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("budget: %v", err)
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		err = s.Update(ctx, func(tx store.Tx) error { return tx.LockAccounts(ctx, wallet.ID, "missing") })
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("lock: %v", err)
		}
	})

	txn := core.Transaction{
		ID: "txn-1", Type: core.Expense, Amount: core.Cents(2500), Category: "food",
		Division: core.Personal, Description: "lunch", AccountID: wallet.ID,
		OccurredAt: base, CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour),
	}

	t.Run("transaction round trip", func(t *testing.T) {
		err := s.Update(ctx, func(tx store.Tx) error {
			if err := tx.LockAccounts(ctx, wallet.ID); err != nil {
				return err
			}
			if err := tx.InsertTransaction(ctx, txn); err != nil {
				return err
			}
			bal, err := tx.AdjustBalance(ctx, wallet.ID, txn.Effect())
			if err != nil {
				return err
			}
			if bal.Cents != 7500 {
				t.Errorf("balance = %d, want 7500", bal.Cents)
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}

		err = s.View(ctx, func(tx store.ReadTx) error {
			got, err := tx.GetTransaction(ctx, txn.ID)
			if err != nil {
				return err
			}
			if got.AccountName != "Wallet" || got.Amount.Cents != 2500 || got.Category != "food" || got.Type != core.Expense {
				t.Errorf("unexpected transaction: %+v", got)
			}
			if !got.CreatedAt.Equal(txn.CreatedAt) || !got.OccurredAt.Equal(txn.OccurredAt) {
				t.Errorf("timestamps changed: %+v", got)
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	})

	t.Run("update keeps creation time", func(t *testing.T) {
		edited := txn
		edited.Amount = core.Cents(3000)
		edited.AccountID = bank.ID
		edited.CreatedAt = base.Add(5 * time.Hour)
		edited.UpdatedAt = base.Add(2 * time.Hour)
		if err := s.Update(ctx, func(tx store.Tx) error { return tx.UpdateTransaction(ctx, edited) }); err != nil {
			t.Fatal(err)
		}
		err := s.View(ctx, func(tx store.ReadTx) error {
			got, err := tx.GetTransaction(ctx, txn.ID)
			if err != nil {
				return err
			}
			if !got.CreatedAt.Equal(txn.CreatedAt) {
				t.Errorf("created at moved to %v", got.CreatedAt)
			}
			if got.AccountID != bank.ID || got.AccountName != "Bank" || got.Amount.Cents != 3000 {
				t.Errorf("update not applied: %+v", got)
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	})

	t.Run("failed update rolls back", func(t *testing.T) {
		boom := errors.New("boom")
		err := s.Update(ctx, func(tx store.Tx) error {
			if err := tx.InsertAccount(ctx, core.Account{ID: "acc-tmp", Name: "Tmp", CreatedAt: base}); err != nil {
				return err
			}
			if _, err := tx.AdjustBalance(ctx, wallet.ID, core.Cents(-7500)); err != nil {
				return err
			}
			if err := tx.InsertTransaction(ctx, core.Transaction{
				ID: "txn-tmp", Type: core.Income, Amount: core.Cents(1), Category: "salary",
				Division: core.Personal, AccountID: wallet.ID, OccurredAt: base, CreatedAt: base, UpdatedAt: base,
			}); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		err = s.View(ctx, func(tx store.ReadTx) error {
			if _, err := tx.GetAccountByName(ctx, "Tmp"); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("account survived rollback: %v", err)
			}
			if _, err := tx.GetTransaction(ctx, "txn-tmp"); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("transaction survived rollback: %v", err)
			}
			a, err := tx.GetAccount(ctx, wallet.ID)
			if err != nil {
				return err
			}
			if a.Balance.Cents != 7500 {
				t.Errorf("balance = %d, want 7500", a.Balance.Cents)
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	})

	t.Run("transaction queries", func(t *testing.T) {
		second := core.Transaction{
			ID: "txn-2", Type: core.Income, Amount: core.Cents(900), Category: "salary",
			Division: core.Office, AccountID: wallet.ID, OccurredAt: base, CreatedAt: base.Add(3 * time.Hour), UpdatedAt: base.Add(3 * time.Hour),
		}
		if err := s.Update(ctx, func(tx store.Tx) error { return tx.InsertTransaction(ctx, second) }); err != nil {
			t.Fatal(err)
		}

		cases := []struct {
			name string
			q    store.TransactionQuery
			want []string
		}{
			{"all in insertion order", store.TransactionQuery{}, []string{"txn-1", "txn-2"}},
			{"by type", store.TransactionQuery{Type: core.Income}, []string{"txn-2"}},
			{"by account", store.TransactionQuery{AccountID: bank.ID}, []string{"txn-1"}},
			{"since", store.TransactionQuery{Since: base.Add(2 * time.Hour)}, []string{"txn-2"}},
			{"until inclusive", store.TransactionQuery{Until: base.Add(time.Hour)}, []string{"txn-1"}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				var got []core.Transaction
				err := s.View(ctx, func(tx store.ReadTx) error {
					var err error
					got, err = tx.ListTransactions(ctx, tc.q)
					return err
				})
				if err != nil {
					t.Fatal(err)
				}
				if len(got) != len(tc.want) {
					t.Fatalf("got %d rows, want %v", len(got), tc.want)
				}
				for i, id := range tc.want {
					if got[i].ID != id {
						t.Errorf("row %d = %s, want %s", i, got[i].ID, id)
					}
				}
			})
		}
	})

	t.Run("transfer entries", func(t *testing.T) {
		at := base.Add(4 * time.Hour)
		legs := []core.TransferEntry{
			{ID: "leg-out", TransferID: "tr-1", AccountID: wallet.ID, Direction: core.TransferOut, Amount: core.Cents(1000), CreatedAt: at},
			{ID: "leg-in", TransferID: "tr-1", AccountID: bank.ID, Direction: core.TransferIn, Amount: core.Cents(1000), CreatedAt: at},
		}
		if err := s.Update(ctx, func(tx store.Tx) error { return tx.InsertTransferEntries(ctx, legs...) }); err != nil {
			t.Fatal(err)
		}
		err := s.View(ctx, func(tx store.ReadTx) error {
			all, err := tx.ListTransferEntries(ctx, store.TransferQuery{TransferID: "tr-1"})
			if err != nil {
				return err
			}
			if len(all) != 2 || all[0].Direction != core.TransferOut || all[1].Direction != core.TransferIn {
				t.Errorf("unexpected legs: %+v", all)
			}
			mine, err := tx.ListTransferEntries(ctx, store.TransferQuery{AccountID: bank.ID})
			if err != nil {
				return err
			}
			if len(mine) != 1 || mine[0].AccountName != "Bank" || mine[0].Amount.Cents != 1000 {
				t.Errorf("unexpected bank legs: %+v", mine)
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	})

	t.Run("budgets", func(t *testing.T) {
		b1 := core.Budget{ID: "bud-1", Category: "food", Amount: core.Cents(100000), Period: core.MonthlyPeriod, CreatedAt: base}
		b2 := core.Budget{ID: "bud-2", Category: "food", Amount: core.Cents(5000), Period: core.WeeklyPeriod, CreatedAt: base.Add(time.Second)}
		err := s.Update(ctx, func(tx store.Tx) error {
			if err := tx.InsertBudget(ctx, b1); err != nil {
				return err
			}
			return tx.InsertBudget(ctx, b2)
		})
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Update(ctx, func(tx store.Tx) error { return tx.DeleteBudget(ctx, b1.ID) }); err != nil {
			t.Fatal(err)
		}
		err = s.Update(ctx, func(tx store.Tx) error { return tx.DeleteBudget(ctx, b1.ID) })
		if !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("second delete: %v", err)
		}
		err = s.View(ctx, func(tx store.ReadTx) error {
			all, err := tx.ListBudgets(ctx)
			if err != nil {
				return err
			}
			if len(all) != 1 || all[0].ID != b2.ID || all[0].Period != core.WeeklyPeriod {
				t.Errorf("unexpected budgets: %+v", all)
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	})
}
