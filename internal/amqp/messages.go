package amqp

import (
	"encoding/json"
	"time"
)

const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// LedgerEventMessage announces a ledger entry mutation. Consumers refetch
// whatever they need from the database; the message carries only ids.
type LedgerEventMessage struct {
	Op        string    `json:"op"`
	EntryID   int64     `json:"entry_id"`
	Owner     string    `json:"owner"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEventMessage(op string, entryID int64, owner string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Op:        op,
		EntryID:   entryID,
		Owner:     owner,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
