package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BankSyncMessage asks the worker to sync one bank connection. The worker
// loads the connection itself, so only the ID travels.
type BankSyncMessage struct {
	MessageID    string    `json:"message_id"`
	ConnectionID int64     `json:"connection_id"`
	Attempt      int       `json:"attempt"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewBankSyncMessage creates a message with a fresh ID.
func NewBankSyncMessage(connectionID int64, attempt int) *BankSyncMessage {
	return &BankSyncMessage{
		MessageID:    uuid.NewString(),
		ConnectionID: connectionID,
		Attempt:      attempt,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BankSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BankSyncMessageFromJSON creates a message from JSON bytes
func BankSyncMessageFromJSON(data []byte) (*BankSyncMessage, error) {
	var msg BankSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
