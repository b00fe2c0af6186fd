package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"budgetwise/internal/core"
)

// TransferCompletedMessage announces that a transfer was recorded. The
// worker re-reads the user's ledger, so the message only carries what the
// alert log line needs.
type TransferCompletedMessage struct {
	Username    string    `json:"username"`
	Operation   string    `json:"operation"`
	Amount      float64   `json:"amount"`
	Timestamp   string    `json:"timestamp"`
	PublishedAt time.Time `json:"published_at"`
}

var ErrInvalidMessage = errors.New("invalid transfer message")

// NewTransferCompletedMessage builds the message for a recorded transfer.
func NewTransferCompletedMessage(tx core.TransactionRecord) *TransferCompletedMessage {
	return &TransferCompletedMessage{
		Username:    tx.AccountUsername,
		Operation:   string(tx.Operation),
		Amount:      tx.Amount,
		Timestamp:   tx.Timestamp,
		PublishedAt: time.Now(),
	}
}

// Record converts the message back into a ledger record.
func (m *TransferCompletedMessage) Record() core.TransactionRecord {
	return core.TransactionRecord{
		AccountUsername: m.Username,
		Operation:       core.Operation(m.Operation),
		Amount:          m.Amount,
		Timestamp:       m.Timestamp,
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransferCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransferCompletedMessageFromJSON decodes a message and rejects one
// without a username.
func TransferCompletedMessageFromJSON(data []byte) (*TransferCompletedMessage, error) {
	var msg TransferCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Username == "" {
		return nil, ErrInvalidMessage
	}
	return &msg, nil
}
