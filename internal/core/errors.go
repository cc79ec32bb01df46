package core

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every failure reported by the ledger engines matches exactly
// one of these roots through errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateName     = errors.New("duplicate name")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrEditWindowExpired = errors.New("edit window expired")
)

// Specific validation failures. All of them satisfy errors.Is(err, ErrInvalidInput).
var (
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	ErrInvalidType      = fmt.Errorf("%w: type must be income or expense", ErrInvalidInput)
	ErrInvalidCategory  = fmt.Errorf("%w: unknown category", ErrInvalidInput)
	ErrInvalidDivision  = fmt.Errorf("%w: division must be personal or office", ErrInvalidInput)
	ErrInvalidPeriod    = fmt.Errorf("%w: period must be weekly or monthly", ErrInvalidInput)
	ErrInvalidRange     = fmt.Errorf("%w: range must be daily, weekly, monthly or yearly", ErrInvalidInput)
	ErrInvalidTransfer  = fmt.Errorf("%w: invalid transfer", ErrInvalidInput)
	ErrEmptyName        = fmt.Errorf("%w: empty account name", ErrInvalidInput)
	ErrEmptyReference   = fmt.Errorf("%w: empty account reference", ErrInvalidInput)
	ErrDescriptionLimit = fmt.Errorf("%w: description too long (max %d characters)", ErrInvalidInput, MaxDescriptionLength)
	ErrAmountTooLarge   = fmt.Errorf("%w: amount too large (max %d.00)", ErrInvalidInput, MaxAmountCents/100)
	ErrAmountOverflow   = fmt.Errorf("%w: total out of range", ErrInvalidInput)
)

// Kind returns a stable, log-friendly name for the taxonomy root of err.
// Errors outside the taxonomy (storage, transport) are reported as "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateName):
		return "duplicate_name"
	case errors.Is(err, ErrInvalidTransfer):
		return "invalid_transfer"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrEditWindowExpired):
		return "edit_window_expired"
	default:
		return "internal"
	}
}

// IsDomainError reports whether err belongs to the ledger taxonomy, as opposed
// to an infrastructure failure.
func IsDomainError(err error) bool {
	k := Kind(err)
	return k != "" && k != "internal"
}
