package events

import (
	"encoding/json"
	"time"
)

// EntryCreatedMessage is published after an income or expense entry is
// persisted. Consumers fetch the full record by id; amounts ride along as
// strings to avoid float drift in transit.
type EntryCreatedMessage struct {
	EntryID   int64     `json:"entry_id"`
	OwnerID   int64     `json:"owner_id"`
	Kind      string    `json:"kind"`
	Category  string    `json:"category"`
	Amount    string    `json:"amount"`
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntryCreatedMessage(entryID, ownerID int64, kind, category, amount, date string) *EntryCreatedMessage {
	return &EntryCreatedMessage{
		EntryID:   entryID,
		OwnerID:   ownerID,
		Kind:      kind,
		Category:  category,
		Amount:    amount,
		Date:      date,
		Timestamp: time.Now(),
	}
}

func (m *EntryCreatedMessage) EventName() string { return "entry.created" }

func (m *EntryCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntryCreatedMessageFromJSON(data []byte) (*EntryCreatedMessage, error) {
	var msg EntryCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// BudgetExceededMessage is published when a budget overview computation finds
// a category at or past its monthly cap.
type BudgetExceededMessage struct {
	OwnerID   int64     `json:"owner_id"`
	Category  string    `json:"category"`
	Month     string    `json:"month"`
	Year      int       `json:"year"`
	Budget    string    `json:"budget"`
	Actual    string    `json:"actual"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBudgetExceededMessage(ownerID int64, category, month string, year int, budget, actual string) *BudgetExceededMessage {
	return &BudgetExceededMessage{
		OwnerID:   ownerID,
		Category:  category,
		Month:     month,
		Year:      year,
		Budget:    budget,
		Actual:    actual,
		Timestamp: time.Now(),
	}
}

func (m *BudgetExceededMessage) EventName() string { return "budget.exceeded" }

func (m *BudgetExceededMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetExceededMessageFromJSON(data []byte) (*BudgetExceededMessage, error) {
	var msg BudgetExceededMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
