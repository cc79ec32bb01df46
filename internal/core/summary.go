package core

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Summary holds income and expense totals over a window.
type Summary struct {
	Range   Range
	Window  Window
	Income  Money
	Expense Money
	Count   int
}

// Net is income minus expense.
func (s Summary) Net() Money {
	return s.Income.Sub(s.Expense)
}

// SavingsRate is (income-expense)/income as a percentage rounded to two
// places. It is zero when there is no income.
func (s Summary) SavingsRate() decimal.Decimal {
	if !s.Income.IsPositive() {
		return decimal.Zero
	}
	return s.Net().Decimal().Mul(decimal.NewFromInt(100)).Div(s.Income.Decimal()).Round(2)
}

// CategoryAmount is the expense total of one category.
type CategoryAmount struct {
	Category string
	Amount   Money
	Count    int
}

// Summarize totals income and expense of the transactions created inside w.
func Summarize(txns []Transaction, w Window) (Summary, error) {
	s := Summary{Window: w}
	for _, t := range txns {
		if !w.Contains(t.CreatedAt) {
			continue
		}
		var err error
		switch t.Type {
		case Income:
			s.Income, err = s.Income.CheckedAdd(t.Amount)
		case Expense:
			s.Expense, err = s.Expense.CheckedAdd(t.Amount)
		default:
			continue
		}
		if err != nil {
			return Summary{}, err
		}
		s.Count++
	}
	return s, nil
}

// SummarizeByCategory groups expense transactions by category. Income is
// excluded. The result is ordered by amount descending, then category name.
func SummarizeByCategory(txns []Transaction) ([]CategoryAmount, error) {
	idx := map[string]int{}
	var out []CategoryAmount
	for _, t := range txns {
		if t.Type != Expense {
			continue
		}
		i, ok := idx[t.Category]
		if !ok {
			i = len(out)
			idx[t.Category] = i
			out = append(out, CategoryAmount{Category: t.Category})
		}
		amount, err := out[i].Amount.CheckedAdd(t.Amount)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", t.Category, err)
		}
		out[i].Amount = amount
		out[i].Count++
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Amount.Cents != out[b].Amount.Cents {
			return out[a].Amount.Cents > out[b].Amount.Cents
		}
		return out[a].Category < out[b].Category
	})
	return out, nil
}

// TotalOf sums the amounts of a category breakdown.
func TotalOf(cats []CategoryAmount) (Money, error) {
	amounts := make([]Money, len(cats))
	for i, c := range cats {
		amounts[i] = c.Amount
	}
	return Sum(amounts...)
}

// WithinWindow returns the transactions created inside w, preserving order.
func WithinWindow(txns []Transaction, w Window) []Transaction {
	out := make([]Transaction, 0, len(txns))
	for _, t := range txns {
		if w.Contains(t.CreatedAt) {
			out = append(out, t)
		}
	}
	return out
}
