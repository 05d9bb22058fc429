package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Operations carried by a PoolChangeMessage.
const (
	OpPoolCreated    = "pool_created"
	OpExpenseAdded   = "expense_added"
	OpExpenseUpdated = "expense_updated"
	OpExpenseDeleted = "expense_deleted"
	OpFixedCreated   = "fixed_expense_created"
)

var ErrMissingIDs = errors.New("pool change message without pool or expense id")

// PoolChangeMessage announces that a pool's data changed on the server.
// It carries ids only; consumers re-fetch the pool to see the new state.
type PoolChangeMessage struct {
	PoolID    string    `json:"pool_id"`
	ExpenseID string    `json:"expense_id,omitempty"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPoolChangeMessage creates a change message stamped with the current time
func NewPoolChangeMessage(poolID, expenseID, operation string) *PoolChangeMessage {
	return &PoolChangeMessage{
		PoolID:    poolID,
		ExpenseID: expenseID,
		Operation: operation,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *PoolChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PoolChangeMessageFromJSON decodes a message. Deletes only know the expense
// id, so a message needs a pool id or an expense id, or must announce a
// fixed-expense creation, which has no parent pool yet.
func PoolChangeMessageFromJSON(data []byte) (*PoolChangeMessage, error) {
	var msg PoolChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.PoolID == "" && msg.ExpenseID == "" && msg.Operation != OpFixedCreated {
		return nil, ErrMissingIDs
	}
	return &msg, nil
}

// Concerns reports whether the message may affect poolID. Messages that do
// not name a pool concern every pool.
func (m *PoolChangeMessage) Concerns(poolID string) bool {
	return m.PoolID == "" || m.PoolID == poolID
}
