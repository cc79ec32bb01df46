package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTransactionEffect(t *testing.T) {
	income := Transaction{Type: Income, Amount: Cents(500)}
	expense := Transaction{Type: Expense, Amount: Cents(500)}

	if income.Effect().Cents != 500 {
		t.Fatalf("income effect = %d", income.Effect().Cents)
	}
	if expense.Effect().Cents != -500 {
		t.Fatalf("expense effect = %d", expense.Effect().Cents)
	}

	out := TransferEntry{Direction: TransferOut, Amount: Cents(70)}
	in := TransferEntry{Direction: TransferIn, Amount: Cents(70)}
	if out.Effect().Add(in.Effect()).Cents != 0 {
		t.Fatal("transfer legs must net to zero")
	}
}

func TestTransactionInputNormalize(t *testing.T) {
	tax := DefaultTaxonomy()

	good := TransactionInput{
		Type:        "Expense",
		Amount:      Cents(100),
		Category:    " Food ",
		Division:    "",
		Description: "  lunch ",
		AccountRef:  "Wallet",
	}
	got, err := good.Normalize(tax)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if got.Type != Expense || got.Category != "food" || got.Division != Personal || got.Description != "lunch" {
		t.Fatalf("unexpected normalisation: %+v", got)
	}

	accented := good
	accented.Description = strings.Repeat("é", MaxDescriptionLength)
	if _, err := accented.Normalize(tax); err != nil {
		t.Fatalf("%d two-byte characters should fit, got %v", MaxDescriptionLength, err)
	}
	if err := (Transaction{Type: Expense, Amount: Cents(1), Category: "food", Division: Personal, Description: accented.Description}).Validate(); err != nil {
		t.Fatalf("stored shape with multi-byte description: %v", err)
	}

	long := make([]byte, MaxDescriptionLength+1)
	for i := range long {
		long[i] = 'x'
	}

	bads := []struct {
		name string
		in   TransactionInput
		want error
	}{
		{"zero amount", TransactionInput{Type: Income, Amount: Cents(0), Category: "salary", AccountRef: "a"}, ErrInvalidAmount},
		{"negative amount", TransactionInput{Type: Income, Amount: Cents(-5), Category: "salary", AccountRef: "a"}, ErrInvalidAmount},
		{"bad type", TransactionInput{Type: "refund", Amount: Cents(5), Category: "salary", AccountRef: "a"}, ErrInvalidType},
		{"income category on expense", TransactionInput{Type: Expense, Amount: Cents(5), Category: "salary", AccountRef: "a"}, ErrInvalidCategory},
		{"unknown category", TransactionInput{Type: Expense, Amount: Cents(5), Category: "yachts", AccountRef: "a"}, ErrInvalidCategory},
		{"bad division", TransactionInput{Type: Expense, Amount: Cents(5), Category: "food", Division: "family", AccountRef: "a"}, ErrInvalidDivision},
		{"missing account", TransactionInput{Type: Expense, Amount: Cents(5), Category: "food"}, ErrEmptyReference},
		{"long description", TransactionInput{Type: Expense, Amount: Cents(5), Category: "food", AccountRef: "a", Description: string(long)}, ErrDescriptionLimit},
		{"long multi-byte description", TransactionInput{Type: Expense, Amount: Cents(5), Category: "food", AccountRef: "a", Description: strings.Repeat("é", MaxDescriptionLength+1)}, ErrDescriptionLimit},
		{"amount above limit", TransactionInput{Type: Income, Amount: Cents(MaxAmountCents + 1), Category: "salary", AccountRef: "a"}, ErrAmountTooLarge},
	}
	for _, tc := range bads {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.in.Normalize(tax)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected invalid input root, got %v", err)
			}
		})
	}
}

func TestTransactionPatchMerge(t *testing.T) {
	base := Transaction{
		ID: "t1", Type: Expense, Amount: Cents(300), Category: "food", Division: Personal,
		Description: "dinner", AccountID: "acc-1", OccurredAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	amount := Cents(450)
	account := "Savings"
	in := TransactionPatch{Amount: &amount, AccountRef: &account}.Merge(base)

	if in.Amount.Cents != 450 || in.AccountRef != "Savings" || in.Category != "food" || in.Type != Expense {
		t.Fatalf("unexpected merge: %+v", in)
	}
	if (TransactionPatch{}).Merge(base).AccountRef != "acc-1" {
		t.Fatal("empty patch should keep the account id")
	}
	if !(TransactionPatch{}).IsEmpty() {
		t.Fatal("zero patch should be empty")
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrNotFound, "not_found"},
		{ErrInvalidTransfer, "invalid_transfer"},
		{ErrInvalidAmount, "invalid_input"},
		{ErrInsufficientFunds, "insufficient_funds"},
		{ErrEditWindowExpired, "edit_window_expired"},
		{ErrDuplicateName, "duplicate_name"},
		{errors.New("disk on fire"), "internal"},
	}
	for _, tc := range cases {
		if got := Kind(tc.err); got != tc.want {
			t.Errorf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
	if !errors.Is(ErrInvalidTransfer, ErrInvalidInput) {
		t.Fatal("invalid transfer must be an invalid input")
	}
}

func TestParsePeriodAndRange(t *testing.T) {
	p, err := ParsePeriod(" Weekly ")
	if err != nil || p != WeeklyPeriod || p.Range() != Weekly {
		t.Fatalf("weekly: %v %v", p, err)
	}
	if _, err := ParsePeriod("yearly"); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("yearly budgets are not supported, got %v", err)
	}
	if MonthlyPeriod.Range() != Monthly {
		t.Fatal("monthly period should evaluate over the monthly range")
	}
}
