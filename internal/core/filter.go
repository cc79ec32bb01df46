package core

import (
	"sort"
	"strings"
	"time"
)

const (
	NewestFirst SortOrder = "newest"
	OldestFirst SortOrder = "oldest"
)

// SortOrder orders transaction listings by creation time.
type SortOrder string

// TransactionFilter is a conjunction of optional predicates. Zero-valued
// fields do not constrain the result. Text matches case-insensitively against
// description OR category OR account name.
type TransactionFilter struct {
	Type     TransactionType
	Category string
	Division Division
	Account  string
	From     time.Time
	To       time.Time
	Text     string
	Order    SortOrder
	Limit    int
}

// Normalize validates the enumerated fields and lower-cases the category.
func (f TransactionFilter) Normalize() (TransactionFilter, error) {
	if f.Type != "" {
		t, err := ParseTransactionType(string(f.Type))
		if err != nil {
			return f, err
		}
		f.Type = t
	}
	if f.Division != "" {
		d, err := ParseDivision(string(f.Division))
		if err != nil {
			return f, err
		}
		f.Division = d
	}
	f.Category = NormalizeCategory(f.Category)
	f.Account = strings.TrimSpace(f.Account)
	f.Text = strings.TrimSpace(f.Text)
	switch f.Order {
	case "":
		f.Order = NewestFirst
	case NewestFirst, OldestFirst:
	default:
		return f, ErrInvalidInput
	}
	if f.Limit < 0 {
		return f, ErrInvalidInput
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, ErrInvalidInput
	}
	return f, nil
}

// Matches reports whether t satisfies every predicate of f.
func (f TransactionFilter) Matches(t Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Division != "" && t.Division != f.Division {
		return false
	}
	if f.Account != "" && t.AccountID != f.Account && t.AccountName != f.Account {
		return false
	}
	if !f.From.IsZero() && t.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.CreatedAt.After(f.To) {
		return false
	}
	if f.Text != "" {
		needle := strings.ToLower(f.Text)
		if !strings.Contains(strings.ToLower(t.Description), needle) &&
			!strings.Contains(strings.ToLower(t.Category), needle) &&
			!strings.Contains(strings.ToLower(t.AccountName), needle) {
			return false
		}
	}
	return true
}

// Apply filters, sorts and truncates txns.
func (f TransactionFilter) Apply(txns []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txns))
	for _, t := range txns {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	SortTransactions(out, f.Order)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// SortTransactions orders by creation time; ties are broken by id so the
// order is deterministic.
func SortTransactions(txns []Transaction, order SortOrder) {
	sort.SliceStable(txns, func(i, j int) bool {
		a, b := txns[i], txns[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if order == OldestFirst {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if order == OldestFirst {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
}

// SortTransferEntries orders transfer legs newest first.
func SortTransferEntries(entries []TransferEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		if a.TransferID != b.TransferID {
			return a.TransferID > b.TransferID
		}
		return a.Direction == TransferOut && b.Direction != TransferOut
	})
}
