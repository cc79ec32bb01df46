// Package memory provides an in-process LedgerWriter that records rows
// instead of sending them anywhere.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ledger/internal/core"
	ports "ledger/internal/sheets"
)

type Recorder struct {
	mu           sync.Mutex
	loc          *time.Location
	transactions [][]any
	transfers    [][]any
	failures     []error
}

var _ ports.LedgerWriter = (*Recorder)(nil)

func New(loc *time.Location) *Recorder {
	if loc == nil {
		loc = time.UTC
	}
	return &Recorder{loc: loc}
}

// FailNext makes the next append return err without recording the row.
func (r *Recorder) FailNext(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

func (r *Recorder) popFailure() error {
	if len(r.failures) == 0 {
		return nil
	}
	err := r.failures[0]
	r.failures = r.failures[1:]
	return err
}

// AppendTransaction stores the row and returns a synthetic row reference.
func (r *Recorder) AppendTransaction(_ context.Context, event string, t core.Transaction) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure(); err != nil {
		return "", err
	}
	r.transactions = append(r.transactions, ports.TransactionRow(event, t, r.loc))
	return fmt.Sprintf("mem:transactions:%d", len(r.transactions)), nil
}

func (r *Recorder) AppendTransfer(_ context.Context, tr core.Transfer) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.popFailure(); err != nil {
		return "", err
	}
	r.transfers = append(r.transfers, ports.TransferRow(tr, r.loc))
	return fmt.Sprintf("mem:transfers:%d", len(r.transfers)), nil
}

// Transactions returns a copy of the recorded transaction rows.
func (r *Recorder) Transactions() [][]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]any(nil), r.transactions...)
}

// Transfers returns a copy of the recorded transfer rows.
func (r *Recorder) Transfers() [][]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]any(nil), r.transfers...)
}
