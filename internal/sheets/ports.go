package sheets

import (
	"context"
	"time"

	"ledger/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerWriter appends ledger rows to an external spreadsheet. Rows are
	// never rewritten: an edited transaction is appended again with the
	// event that produced it.
	LedgerWriter interface {
		AppendTransaction(ctx context.Context, event string, t core.Transaction) (rowRef string, err error)
		AppendTransfer(ctx context.Context, tr core.Transfer) (rowRef string, err error)
	}
)

// Column titles matching the rows below, for sheets set up by hand.
var (
	TransactionHeader = []any{"Created", "Occurred", "Event", "ID", "Type", "Category", "Division", "Account", "Amount", "Description"}
	TransferHeader    = []any{"Created", "Transfer", "From", "To", "Amount"}
)

const timeLayout = "2006-01-02 15:04:05"

// TransactionRow renders t as a sheet row. Amounts are decimal strings so
// that USER_ENTERED input parses them as numbers without float rounding.
func TransactionRow(event string, t core.Transaction, loc *time.Location) []any {
	loc = location(loc)
	account := t.AccountName
	if account == "" {
		account = t.AccountID
	}
	occurred := t.OccurredAt
	if occurred.IsZero() {
		occurred = t.CreatedAt
	}
	return []any{
		formatTime(t.CreatedAt, loc),
		occurred.In(loc).Format(time.DateOnly),
		event,
		t.ID,
		string(t.Type),
		t.Category,
		string(t.Division),
		account,
		t.Amount.String(),
		t.Description,
	}
}

// TransferRow renders tr with source and destination account names when
// the legs carry them.
func TransferRow(tr core.Transfer, loc *time.Location) []any {
	from, to := tr.FromAccountID, tr.ToAccountID
	for _, e := range tr.Entries {
		if e.AccountName == "" {
			continue
		}
		switch e.Direction {
		case core.TransferOut:
			from = e.AccountName
		case core.TransferIn:
			to = e.AccountName
		}
	}
	return []any{
		formatTime(tr.CreatedAt, loc),
		tr.ID,
		from,
		to,
		tr.Amount.String(),
	}
}

func formatTime(t time.Time, loc *time.Location) string {
	return t.In(location(loc)).Format(timeLayout)
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
