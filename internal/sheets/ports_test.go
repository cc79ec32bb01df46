package sheets

import (
	"testing"
	"time"

	"ledger/internal/core"
)

func TestTransactionRow(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	created := time.Date(2024, 6, 15, 22, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		txn  core.Transaction
		loc  *time.Location
		want []any
	}{
		{
			name: "local time and account name",
			txn: core.Transaction{
				ID: "t1", Type: core.Expense, Amount: core.Cents(1250), Category: "food",
				Division: core.Personal, Description: "lunch", AccountID: "a1", AccountName: "Wallet",
				OccurredAt: time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), CreatedAt: created,
			},
			loc:  rome,
			want: []any{"2024-06-16 00:30:00", "2024-06-14", "transaction.recorded", "t1", "expense", "food", "personal", "Wallet", "12.50", "lunch"},
		},
		{
			name: "falls back to account id and creation date",
			txn: core.Transaction{
				ID: "t2", Type: core.Income, Amount: core.Cents(100000), Category: "salary",
				Division: core.Office, AccountID: "a2", CreatedAt: created,
			},
			loc:  nil,
			want: []any{"2024-06-15 22:30:00", "2024-06-15", "transaction.recorded", "t2", "income", "salary", "office", "a2", "1000.00", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TransactionRow("transaction.recorded", tt.txn, tt.loc)
			if len(got) != len(TransactionHeader) {
				t.Fatalf("row has %d columns, header %d", len(got), len(TransactionHeader))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("column %v = %v, want %v", TransactionHeader[i], got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTransferRow(t *testing.T) {
	tr := core.Transfer{
		ID: "tr1", FromAccountID: "a1", ToAccountID: "a2", Amount: core.Cents(2575),
		CreatedAt: time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC),
		Entries: []core.TransferEntry{
			{AccountID: "a1", AccountName: "Bank", Direction: core.TransferOut},
			{AccountID: "a2", AccountName: "Wallet", Direction: core.TransferIn},
		},
	}
	got := TransferRow(tr, time.UTC)
	want := []any{"2024-06-15 10:00:00", "tr1", "Bank", "Wallet", "25.75"}
	if len(got) != len(TransferHeader) {
		t.Fatalf("row has %d columns, header %d", len(got), len(TransferHeader))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %v, want %v", i, got[i], want[i])
		}
	}

	tr.Entries = nil
	if got := TransferRow(tr, nil); got[2] != "a1" || got[3] != "a2" {
		t.Errorf("expected account ids without legs, got %v", got)
	}
}
