package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cashflow/internal/core"
)

// RoutingTransactionRecorded is the event type carried by TransactionRecordedMessage.
const RoutingTransactionRecorded = "transaction.recorded"

// TransactionRecordedMessage announces that a transaction was written.
// Consumers reload what they need from storage; the payload only locates it.
type TransactionRecordedMessage struct {
	MessageID     string    `json:"message_id"`
	Event         string    `json:"event"`
	TransactionID int64     `json:"transaction_id"`
	AccountID     int64     `json:"account"`
	CategoryID    int64     `json:"category"`
	Month         string    `json:"month"`
	Type          string    `json:"type"`
	AmountCents   int64     `json:"amount_cents"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionRecordedMessage builds the event for a stored transaction.
func NewTransactionRecordedMessage(tx core.Transaction) *TransactionRecordedMessage {
	return &TransactionRecordedMessage{
		MessageID:     uuid.NewString(),
		Event:         RoutingTransactionRecorded,
		TransactionID: tx.ID,
		AccountID:     tx.AccountID,
		CategoryID:    tx.CategoryID,
		Month:         tx.Date.MonthOf().String(),
		Type:          string(tx.Type),
		AmountCents:   tx.Amount.Cents(),
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Validate rejects messages a consumer cannot act on.
func (m *TransactionRecordedMessage) Validate() error {
	if m.Event != RoutingTransactionRecorded {
		return fmt.Errorf("unexpected event %q", m.Event)
	}
	if m.CategoryID <= 0 {
		return core.ErrMissingCategory
	}
	if _, err := core.ParseMonth(m.Month); err != nil {
		return err
	}
	return nil
}

// ParsedMonth returns the month the transaction belongs to.
func (m *TransactionRecordedMessage) ParsedMonth() (core.Month, error) {
	return core.ParseMonth(m.Month)
}

// TransactionRecordedMessageFromJSON decodes and validates a message body.
func TransactionRecordedMessageFromJSON(data []byte) (*TransactionRecordedMessage, error) {
	var msg TransactionRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	return &msg, nil
}
