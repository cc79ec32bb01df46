// Package events fans ledger change notifications out to in-process
// subscribers such as the aggregate cache and the AMQP publisher.
package events

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	AccountCreated      Kind = "account.created"
	TransactionRecorded Kind = "transaction.recorded"
	TransactionUpdated  Kind = "transaction.updated"
	TransferCompleted   Kind = "transfer.completed"
	BudgetCreated       Kind = "budget.created"
	BudgetDeleted       Kind = "budget.deleted"
)

// Kind names a committed ledger change.
type Kind string

// Event describes a change after it has been committed.
type Event struct {
	ID         string
	Kind       Kind
	EntityID   string
	AccountIDs []string
	OccurredAt time.Time
}

// Handler reacts to an event. Returned errors are reported to the publisher
// but never undo the change.
type Handler func(ctx context.Context, e Event) error

// Bus is a synchronous observer list. Handlers run in subscription order on
// the publishing goroutine.
type Bus struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]Handler
	order    []int
}

func NewBus() *Bus {
	return &Bus{handlers: map[int]Handler{}}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.handlers[id] = h
	b.order = append(b.order, id)
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.handlers[id]; !ok {
			return
		}
		delete(b.handlers, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers e to every handler and joins their errors.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		hs = append(hs, b.handlers[id])
	}
	b.mu.RUnlock()

	var errs []error
	for _, h := range hs {
		if err := h(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
