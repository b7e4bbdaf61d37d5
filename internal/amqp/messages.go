package amqp

import (
	"encoding/json"
	"time"

	"finledger/internal/core"
)

// LedgerChangedMessage announces a committed ledger mutation. Consumers read
// the state they need from the store; the message only carries the version.
type LedgerChangedMessage struct {
	Version   uint64    `json:"version"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(version uint64, operation string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		Version:   version,
		Operation: operation,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DueNoticeMessage tells subscribers a fixed cost falls due soon.
type DueNoticeMessage struct {
	FixedCostID string         `json:"fixedCostId"`
	Category    string         `json:"category"`
	Description string         `json:"description,omitempty"`
	Amount      core.Money     `json:"amount"`
	Frequency   core.Frequency `json:"frequency"`
	DueDate     core.Date      `json:"dueDate"`
	Timestamp   time.Time      `json:"timestamp"`
}

func NewDueNoticeMessage(item core.DueItem) *DueNoticeMessage {
	return &DueNoticeMessage{
		FixedCostID: item.FixedCostID,
		Category:    item.Category,
		Description: item.Description,
		Amount:      item.Amount,
		Frequency:   item.Frequency,
		DueDate:     item.DueDate,
		Timestamp:   time.Now(),
	}
}

// Item converts the message back to the domain value.
func (m *DueNoticeMessage) Item() core.DueItem {
	return core.DueItem{
		FixedCostID: m.FixedCostID,
		Category:    m.Category,
		Description: m.Description,
		Amount:      m.Amount,
		Frequency:   m.Frequency,
		DueDate:     m.DueDate,
	}
}

func (m *DueNoticeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DueNoticeMessageFromJSON(data []byte) (*DueNoticeMessage, error) {
	var msg DueNoticeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
