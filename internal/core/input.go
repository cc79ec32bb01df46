package core

import (
	"strings"
	"time"
	"unicode/utf8"
)

// TransactionInput carries the caller-supplied fields of a new transaction.
type TransactionInput struct {
	Type        TransactionType
	Amount      Money
	Category    string
	Division    Division
	Description string
	AccountRef  string
	OccurredAt  time.Time
}

// Normalize validates in against the taxonomy and returns the canonical form:
// lower-case type, category and division, trimmed description and reference.
func (in TransactionInput) Normalize(tx Taxonomy) (TransactionInput, error) {
	t, err := ParseTransactionType(string(in.Type))
	if err != nil {
		return in, err
	}
	in.Type = t
	if err := in.Amount.Validate(); err != nil {
		return in, err
	}
	cat, err := tx.Category(in.Type, in.Category)
	if err != nil {
		return in, err
	}
	in.Category = cat
	if in.Division == "" {
		in.Division = Personal
	}
	d, err := ParseDivision(string(in.Division))
	if err != nil {
		return in, err
	}
	in.Division = d
	in.Description = strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		return in, ErrDescriptionLimit
	}
	in.AccountRef = strings.TrimSpace(in.AccountRef)
	if in.AccountRef == "" {
		return in, ErrEmptyReference
	}
	return in, nil
}

// TransactionPatch lists the fields an update may change. Nil fields keep
// their current value.
type TransactionPatch struct {
	Type        *TransactionType
	Amount      *Money
	Category    *string
	Division    *Division
	Description *string
	AccountRef  *string
	OccurredAt  *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p.Type == nil && p.Amount == nil && p.Category == nil && p.Division == nil &&
		p.Description == nil && p.AccountRef == nil && p.OccurredAt == nil
}

// Merge applies p on top of t and returns the resulting input. The account
// reference of the result is the patched reference, or t's account id.
func (p TransactionPatch) Merge(t Transaction) TransactionInput {
	in := TransactionInput{
		Type:        t.Type,
		Amount:      t.Amount,
		Category:    t.Category,
		Division:    t.Division,
		Description: t.Description,
		AccountRef:  t.AccountID,
		OccurredAt:  t.OccurredAt,
	}
	if p.Type != nil {
		in.Type = *p.Type
	}
	if p.Amount != nil {
		in.Amount = *p.Amount
	}
	if p.Category != nil {
		in.Category = *p.Category
	}
	if p.Division != nil {
		in.Division = *p.Division
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.AccountRef != nil {
		in.AccountRef = *p.AccountRef
	}
	if p.OccurredAt != nil {
		in.OccurredAt = *p.OccurredAt
	}
	return in
}
