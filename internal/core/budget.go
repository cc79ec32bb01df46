package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	BudgetGood     BudgetState = "good"
	BudgetWarning  BudgetState = "warning"
	BudgetExceeded BudgetState = "exceeded"
)

// BudgetState classifies how much of a budget has been consumed.
type BudgetState string

// BudgetReport is the evaluated status of one budget at a point in time.
type BudgetReport struct {
	Budget     Budget
	Window     Window
	Spent      Money
	Remaining  Money
	Percentage decimal.Decimal
	State      BudgetState
}

// BudgetOverview aggregates the reports of several budgets.
type BudgetOverview struct {
	Reports     []BudgetReport
	TotalBudget Money
	TotalSpent  Money
	Exceeded    int
	Warning     int
}

// Validate checks a budget definition.
func (b Budget) Validate() error {
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if err := b.Period.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrInvalidCategory
	}
	return nil
}

// EvaluateBudget computes spent, percentage and state of b at now. Spent sums
// expense transactions whose category matches case-insensitively and whose
// creation time falls inside the budget period window.
func EvaluateBudget(b Budget, txns []Transaction, now time.Time) (BudgetReport, error) {
	w, err := ResolveWindow(b.Period.Range(), now)
	if err != nil {
		w = Window{Start: now, End: now}
	}
	r := BudgetReport{Budget: b, Window: w}
	for _, t := range txns {
		if t.Type != Expense || !strings.EqualFold(t.Category, b.Category) || !w.Contains(t.CreatedAt) {
			continue
		}
		spent, err := r.Spent.CheckedAdd(t.Amount)
		if err != nil {
			return BudgetReport{}, fmt.Errorf("budget %q: %w", b.Category, err)
		}
		r.Spent = spent
	}
	r.Remaining = b.Amount.Sub(r.Spent)
	r.Percentage, r.State = classify(r.Spent, b.Amount)
	return r, nil
}

// classify compares in integer cents so the 80% and 100% thresholds are exact.
// A non-positive target is reported as 0% and good.
func classify(spent, target Money) (decimal.Decimal, BudgetState) {
	if !target.IsPositive() {
		return decimal.Zero, BudgetGood
	}
	pct := spent.Decimal().Mul(decimal.NewFromInt(100)).Div(target.Decimal()).Round(2)
	switch {
	case spent.Cents >= target.Cents:
		return pct, BudgetExceeded
	case spent.Cents*5 >= target.Cents*4:
		return pct, BudgetWarning
	default:
		return pct, BudgetGood
	}
}

// Overview evaluates every budget against the same transaction set.
func Overview(budgets []Budget, txns []Transaction, now time.Time) (BudgetOverview, error) {
	o := BudgetOverview{Reports: make([]BudgetReport, 0, len(budgets))}
	for _, b := range budgets {
		r, err := EvaluateBudget(b, txns, now)
		if err != nil {
			return BudgetOverview{}, err
		}
		o.Reports = append(o.Reports, r)
		if o.TotalBudget, err = o.TotalBudget.CheckedAdd(b.Amount); err != nil {
			return BudgetOverview{}, err
		}
		if o.TotalSpent, err = o.TotalSpent.CheckedAdd(r.Spent); err != nil {
			return BudgetOverview{}, err
		}
		switch r.State {
		case BudgetExceeded:
			o.Exceeded++
		case BudgetWarning:
			o.Warning++
		}
	}
	return o, nil
}

// EarliestBudgetStart returns the earliest window start among budgets, used
// to bound the transaction scan for an overview. ok is false when budgets is empty.
func EarliestBudgetStart(budgets []Budget, now time.Time) (start time.Time, ok bool) {
	for _, b := range budgets {
		w, err := ResolveWindow(b.Period.Range(), now)
		if err != nil {
			continue
		}
		if !ok || w.Start.Before(start) {
			start, ok = w.Start, true
		}
	}
	return start, ok
}
