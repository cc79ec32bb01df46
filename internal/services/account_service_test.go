package services

import (
	"context"
	"errors"
	"testing"

	"ledger/internal/core"
)

func TestAccountService_Create(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   string
		opening int64
		wantErr error
	}{
		{"positive opening balance", "Wallet", 10000, nil},
		{"negative opening balance is a liability", "Credit Card", -25000, nil},
		{"names are case sensitive", "wallet", 0, nil},
		{"exact duplicate", "Wallet", 0, core.ErrDuplicateName},
		{"duplicate after trimming", "  Wallet ", 0, core.ErrDuplicateName},
		{"empty name", "   ", 0, core.ErrInvalidInput},
		{"opening balance above limit", "Vault", core.MaxAmountCents + 1, core.ErrAmountTooLarge},
		{"opening debt above limit", "Loan", -core.MaxAmountCents - 1, core.ErrAmountTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := tl.Accounts.Create(ctx, tt.input, core.Cents(tt.opening))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if a.ID == "" || a.Balance.Cents != tt.opening || a.OpeningBalance.Cents != tt.opening {
				t.Fatalf("unexpected account: %+v", a)
			}
		})
	}

	all, err := tl.Accounts.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	names := []string{"Wallet", "Credit Card", "wallet"}
	if len(all) != len(names) {
		t.Fatalf("got %d accounts, want %d", len(all), len(names))
	}
	for i, n := range names {
		if all[i].Name != n {
			t.Errorf("account %d = %s, want %s", i, all[i].Name, n)
		}
	}
}

func TestAccountService_GetAndResolve(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	a := tl.mustAccount(t, "Savings", 100)

	if got, err := tl.Accounts.Get(ctx, a.ID); err != nil || got.Name != "Savings" {
		t.Fatalf("Get() = %+v, %v", got, err)
	}
	if _, err := tl.Accounts.Get(ctx, "Savings"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Get() by name should be not found, got %v", err)
	}
	if got, err := tl.Accounts.Resolve(ctx, "Savings"); err != nil || got.ID != a.ID {
		t.Fatalf("Resolve(name) = %+v, %v", got, err)
	}
	if got, err := tl.Accounts.Resolve(ctx, a.ID); err != nil || got.ID != a.ID {
		t.Fatalf("Resolve(id) = %+v, %v", got, err)
	}
	if _, err := tl.Accounts.Resolve(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Resolve(unknown) error = %v", err)
	}
}

func TestAccountService_AuditDetectsDrift(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	a := tl.mustAccount(t, "Cash", 1000)
	tl.mustRecord(t, core.Expense, 300, "food", "Cash")

	entries, err := tl.Accounts.Audit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || !entries[0].Consistent() || entries[0].Expected.Cents != 700 {
		t.Fatalf("unexpected audit: %+v", entries)
	}
	_ = a
}
