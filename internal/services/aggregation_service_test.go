package services

import (
	"context"
	"testing"
	"time"

	"ledger/internal/core"
)

func TestAggregationService_Summary(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	tl.mustAccount(t, "A", 0)

	// 2024-06-15 10:00 UTC
	tl.mustRecord(t, core.Income, 500000, "salary", "A")
	tl.clock.Advance(24 * time.Hour)
	tl.mustRecord(t, core.Expense, 20000, "food", "A")
	tl.clock.Advance(2 * time.Hour)

	tests := []struct {
		r            core.Range
		income, spnd int64
	}{
		{core.Daily, 0, 20000},
		{core.Weekly, 500000, 20000},
		{core.Monthly, 500000, 20000},
		{core.Yearly, 500000, 20000},
	}
	for _, tt := range tests {
		t.Run(string(tt.r), func(t *testing.T) {
			sum, err := tl.Aggregates.Summary(ctx, tt.r)
			if err != nil {
				t.Fatal(err)
			}
			if sum.Income.Cents != tt.income || sum.Expense.Cents != tt.spnd {
				t.Fatalf("summary = %+v", sum)
			}
			again, err := tl.Aggregates.Summary(ctx, tt.r)
			if err != nil {
				t.Fatal(err)
			}
			if again.Income != sum.Income || again.Expense != sum.Expense || again.Count != sum.Count {
				t.Fatalf("repeated summary differs: %+v vs %+v", sum, again)
			}
		})
	}

	if _, err := tl.Aggregates.Summary(ctx, "hourly"); err == nil {
		t.Fatal("expected error for unknown range")
	}
}

func TestAggregationService_WeeklyIsRolling(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	tl.mustAccount(t, "A", 100000)
	tl.mustRecord(t, core.Expense, 1000, "food", "A")

	tl.clock.Advance(7 * 24 * time.Hour)
	sum, _ := tl.Aggregates.Summary(ctx, core.Weekly)
	if sum.Expense.Cents != 1000 {
		t.Fatalf("exactly seven days back is inside the window: %+v", sum)
	}
	tl.clock.Advance(time.Second)
	sum, _ = tl.Aggregates.Summary(ctx, core.Weekly)
	if !sum.Expense.IsZero() {
		t.Fatalf("older than seven days must drop out: %+v", sum)
	}
}

func TestAggregationService_CacheInvalidatedByWrites(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	tl.mustAccount(t, "A", 100000)

	txn := tl.mustRecord(t, core.Expense, 1000, "food", "A")
	if sum, _ := tl.Aggregates.Summary(ctx, core.Monthly); sum.Expense.Cents != 1000 {
		t.Fatalf("monthly = %+v", sum)
	}
	if cats, _ := tl.Aggregates.CategorySummary(ctx); len(cats) != 1 {
		t.Fatalf("categories = %+v", cats)
	}

	tl.mustRecord(t, core.Expense, 500, "fuel", "A")
	if sum, _ := tl.Aggregates.Summary(ctx, core.Monthly); sum.Expense.Cents != 1500 {
		t.Fatalf("record did not invalidate summary: %+v", sum)
	}

	amount := core.Cents(3000)
	if _, err := tl.Transactions.Update(ctx, txn.ID, core.TransactionPatch{Amount: &amount}); err != nil {
		t.Fatal(err)
	}
	if sum, _ := tl.Aggregates.Summary(ctx, core.Monthly); sum.Expense.Cents != 3500 {
		t.Fatalf("update did not invalidate summary: %+v", sum)
	}
	cats, _ := tl.Aggregates.CategorySummary(ctx)
	if len(cats) != 2 || cats[0].Category != "food" || cats[0].Amount.Cents != 3000 {
		t.Fatalf("update did not invalidate categories: %+v", cats)
	}
}

func TestAggregationService_CategorySummaryExcludesIncome(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	tl.mustAccount(t, "A", 0)
	tl.mustRecord(t, core.Income, 500000, "salary", "A")
	tl.mustRecord(t, core.Expense, 20000, "food", "A")

	cats, err := tl.Aggregates.CategorySummary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 1 || cats[0].Category != "food" || cats[0].Amount.Cents != 20000 {
		t.Fatalf("unexpected breakdown: %+v", cats)
	}
	if total, err := core.TotalOf(cats); err != nil || total.Cents != 20000 {
		t.Fatalf("total = %d (err=%v)", total.Cents, err)
	}
}

func TestAggregationService_CategorySummaryIn(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	tl.mustAccount(t, "A", 100000)
	tl.mustRecord(t, core.Expense, 700, "travel", "A")
	tl.clock.Advance(30 * 24 * time.Hour) // into July
	tl.mustRecord(t, core.Expense, 200, "food", "A")

	month, err := tl.Aggregates.CategorySummaryIn(ctx, core.Monthly)
	if err != nil {
		t.Fatal(err)
	}
	if len(month) != 1 || month[0].Category != "food" {
		t.Fatalf("monthly breakdown = %+v", month)
	}
	all, _ := tl.Aggregates.CategorySummary(ctx)
	if len(all) != 2 || all[0].Category != "travel" {
		t.Fatalf("all-time breakdown = %+v", all)
	}
}

func TestAggregationService_Dashboard(t *testing.T) {
	tl := newTestLedger(t)
	ctx := context.Background()
	tl.mustAccount(t, "A", 0)
	tl.mustRecord(t, core.Income, 400000, "salary", "A")
	for i := 0; i < 12; i++ {
		tl.clock.Advance(time.Minute)
		tl.mustRecord(t, core.Expense, 1000, "food", "A")
	}

	d, err := tl.Aggregates.Dashboard(ctx, core.Monthly)
	if err != nil {
		t.Fatal(err)
	}
	if d.Summary.Income.Cents != 400000 || d.Summary.Expense.Cents != 12000 {
		t.Fatalf("summary = %+v", d.Summary)
	}
	if d.Net.Cents != 388000 || d.SavingsRate.String() != "97" {
		t.Fatalf("net %s, savings %s", d.Net, d.SavingsRate)
	}
	if len(d.Categories) != 1 || d.Categories[0].Count != 12 {
		t.Fatalf("categories = %+v", d.Categories)
	}
	if len(d.Recent) != recentLimit || d.Recent[0].CreatedAt.Before(d.Recent[1].CreatedAt) {
		t.Fatalf("recent = %d items, newest first expected", len(d.Recent))
	}

	if _, err := tl.Aggregates.Dashboard(ctx, "fortnightly"); err == nil {
		t.Fatal("expected error for unknown range")
	}
}

func TestAggregationService_WithoutCache(t *testing.T) {
	tl := newTestLedger(t)
	tl.Aggregates.summaries, tl.Aggregates.categories = nil, nil
	tl.mustAccount(t, "A", 0)
	tl.mustRecord(t, core.Income, 100, "salary", "A")

	sum, err := tl.Aggregates.Summary(context.Background(), core.Daily)
	if err != nil || sum.Income.Cents != 100 {
		t.Fatalf("summary = %+v, %v", sum, err)
	}
}
