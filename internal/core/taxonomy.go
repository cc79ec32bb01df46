package core

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Seed files read by TaxonomyFromDir, one category per line.
const (
	IncomeCategoriesFile  = "income_categories.txt"
	ExpenseCategoriesFile = "expense_categories.txt"
)

var (
	defaultIncomeCategories  = []string{"salary", "business", "investment", "freelance", "other"}
	defaultExpenseCategories = []string{"food", "fuel", "movie", "medical", "loan", "shopping", "travel", "utilities", "other"}
)

// Taxonomy is the agreed set of categories per transaction type. Categories
// are compared after NormalizeCategory.
type Taxonomy struct {
	income  []string
	expense []string
}

// DefaultTaxonomy returns the built-in category sets.
func DefaultTaxonomy() Taxonomy {
	return NewTaxonomy(defaultIncomeCategories, defaultExpenseCategories)
}

// NewTaxonomy normalises and de-duplicates both lists, preserving order.
func NewTaxonomy(income, expense []string) Taxonomy {
	return Taxonomy{income: dedupeNormalized(income), expense: dedupeNormalized(expense)}
}

// TaxonomyFromDir reads seed files from base. A missing or empty file falls
// back to the built-in list for that type.
func TaxonomyFromDir(base string) Taxonomy {
	income := readLines(filepath.Join(base, IncomeCategoriesFile))
	if len(income) == 0 {
		income = defaultIncomeCategories
	}
	expense := readLines(filepath.Join(base, ExpenseCategoriesFile))
	if len(expense) == 0 {
		expense = defaultExpenseCategories
	}
	return NewTaxonomy(income, expense)
}

// NormalizeCategory lower-cases and trims a category tag.
func NormalizeCategory(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Categories returns the categories allowed for t.
func (tx Taxonomy) Categories(t TransactionType) []string {
	switch t {
	case Income:
		return append([]string(nil), tx.income...)
	case Expense:
		return append([]string(nil), tx.expense...)
	default:
		return nil
	}
}

// Category validates category against the set for t and returns its
// normalised form.
func (tx Taxonomy) Category(t TransactionType, category string) (string, error) {
	c := NormalizeCategory(category)
	if c == "" {
		return "", ErrInvalidCategory
	}
	for _, allowed := range tx.Categories(t) {
		if allowed == c {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

func (tx Taxonomy) isZero() bool {
	return len(tx.income) == 0 && len(tx.expense) == 0
}

// OrDefault returns tx, or the default taxonomy when tx is empty.
func (tx Taxonomy) OrDefault() Taxonomy {
	if tx.isZero() {
		return DefaultTaxonomy()
	}
	return tx
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func dedupeNormalized(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = NormalizeCategory(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
