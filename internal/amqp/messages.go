package amqp

import (
	"encoding/json"
	"time"

	"ledger/internal/events"
)

// LedgerEventMessage is the wire form of a committed ledger change. It names
// the changed entity only; consumers read current state from the store.
type LedgerEventMessage struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	EntityID   string    `json:"entity_id"`
	AccountIDs []string  `json:"account_ids,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewLedgerEventMessage wraps e for publication.
func NewLedgerEventMessage(e events.Event) *LedgerEventMessage {
	return &LedgerEventMessage{
		ID:         e.ID,
		Kind:       string(e.Kind),
		EntityID:   e.EntityID,
		AccountIDs: append([]string(nil), e.AccountIDs...),
		OccurredAt: e.OccurredAt,
		Timestamp:  time.Now(),
	}
}

// Event converts the message back to the in-process event.
func (m *LedgerEventMessage) Event() events.Event {
	return events.Event{
		ID:         m.ID,
		Kind:       events.Kind(m.Kind),
		EntityID:   m.EntityID,
		AccountIDs: append([]string(nil), m.AccountIDs...),
		OccurredAt: m.OccurredAt,
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON decodes a message body.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
