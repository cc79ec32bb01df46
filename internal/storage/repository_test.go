package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ledger/internal/core"
	"ledger/internal/store"
	"ledger/internal/store/storetest"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	storetest.Run(t, newTestRepository(t))
}

func TestSQLiteRepository_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	ctx := context.Background()

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	err = repo.Update(ctx, func(tx store.Tx) error {
		return tx.InsertAccount(ctx, core.Account{ID: "a1", Name: "Cash", Balance: core.Cents(42), CreatedAt: time.Now()})
	})
	if err != nil {
		t.Fatal(err)
	}
	repo.Close()

	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	err = repo.View(ctx, func(tx store.ReadTx) error {
		a, err := tx.GetAccountByName(ctx, "Cash")
		if err != nil {
			return err
		}
		if a.Balance.Cents != 42 {
			t.Errorf("balance = %d, want 42", a.Balance.Cents)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSQLiteRepository_ConcurrentAdjustments(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	if err := repo.Update(ctx, func(tx store.Tx) error {
		return tx.InsertAccount(ctx, core.Account{ID: "a1", Name: "Cash", CreatedAt: time.Now()})
	}); err != nil {
		t.Fatal(err)
	}

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Update(ctx, func(tx store.Tx) error {
				_, err := tx.AdjustBalance(ctx, "a1", core.Cents(5))
				return err
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("adjust: %v", err)
		}
	}

	_ = repo.View(ctx, func(tx store.ReadTx) error {
		a, _ := tx.GetAccount(ctx, "a1")
		if a.Balance.Cents != workers*5 {
			t.Errorf("balance = %d, want %d", a.Balance.Cents, workers*5)
		}
		return nil
	})
}
