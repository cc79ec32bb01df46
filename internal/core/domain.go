package core

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxDescriptionLength bounds the free-text description of a transaction.
const MaxDescriptionLength = 200

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Personal Division = "personal"
	Office   Division = "office"
)

const (
	TransferOut TransferDirection = "out"
	TransferIn  TransferDirection = "in"
)

const (
	WeeklyPeriod  Period = "weekly"
	MonthlyPeriod Period = "monthly"
)

type (
	TransactionType   string
	Division          string
	TransferDirection string
	Period            string

	// Account is a named balance-bearing bucket of funds.
	Account struct {
		ID             string
		Name           string
		Balance        Money
		OpeningBalance Money
		CreatedAt      time.Time
	}

	// Transaction is a single income or expense entry affecting one account.
	// CreatedAt is assigned by the ledger and never changes; OccurredAt is the
	// business date supplied by the caller.
	Transaction struct {
		ID          string
		Type        TransactionType
		Amount      Money
		Category    string
		Division    Division
		Description string
		AccountID   string
		AccountName string
		OccurredAt  time.Time
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// TransferEntry is one leg of a transfer. Both legs of a transfer share
	// TransferID and Amount; Direction decides the sign of the effect.
	TransferEntry struct {
		ID          string
		TransferID  string
		AccountID   string
		AccountName string
		Direction   TransferDirection
		Amount      Money
		CreatedAt   time.Time
	}

	// Transfer is the receipt of a completed transfer.
	Transfer struct {
		ID            string
		FromAccountID string
		ToAccountID   string
		Amount        Money
		CreatedAt     time.Time
		Entries       []TransferEntry
	}

	// Budget is a spending ceiling for an expense category over a period.
	Budget struct {
		ID        string
		Category  string
		Amount    Money
		Period    Period
		CreatedAt time.Time
	}
)

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

// ParseTransactionType normalises s and validates it.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Validate()
}

func (d Division) Validate() error {
	switch d {
	case Personal, Office:
		return nil
	default:
		return ErrInvalidDivision
	}
}

// ParseDivision normalises s and validates it.
func ParseDivision(s string) (Division, error) {
	d := Division(strings.ToLower(strings.TrimSpace(s)))
	return d, d.Validate()
}

func (p Period) Validate() error {
	switch p {
	case WeeklyPeriod, MonthlyPeriod:
		return nil
	default:
		return ErrInvalidPeriod
	}
}

// ParsePeriod normalises s and validates it.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	return p, p.Validate()
}

// Range maps a budget period onto the aggregation window it is evaluated over.
func (p Period) Range() Range {
	if p == WeeklyPeriod {
		return Weekly
	}
	return Monthly
}

// Effect is the signed balance change the transaction applies to its account.
func (t Transaction) Effect() Money {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Effect is the signed balance change the leg applies to its account.
func (e TransferEntry) Effect() Money {
	if e.Direction == TransferOut {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Validate checks the stored shape of a transaction.
func (t Transaction) Validate() error {
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Division.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrInvalidCategory
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return ErrDescriptionLimit
	}
	return nil
}

// NormalizeAccountName trims surrounding whitespace; names compare case-sensitively.
func NormalizeAccountName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}
