package dto

import (
	"encoding/json"
	"time"

	"github.com/flexprice/debitsync/internal/domain/deadletter"
	"github.com/flexprice/debitsync/internal/types"
)

type DeadLetterResponse struct {
	ID         string               `json:"id"`
	Kind       types.DeadLetterKind `json:"kind"`
	EventID    string               `json:"event_id"`
	CustomerID string               `json:"customer_id,omitempty"`
	CreditID   string               `json:"credit_id,omitempty"`
	Outcome    string               `json:"outcome"`
	Error      string               `json:"error"`
	Payload    json.RawMessage      `json:"payload"`
	Attempts   int                  `json:"attempts"`
	CreatedAt  time.Time            `json:"created_at"`
}

func NewDeadLetterResponse(e *deadletter.Entry) *DeadLetterResponse {
	return &DeadLetterResponse{
		ID:         e.ID,
		Kind:       e.Kind,
		EventID:    e.EventID,
		CustomerID: e.CustomerID,
		CreditID:   e.CreditID,
		Outcome:    e.Outcome,
		Error:      e.Error,
		Payload:    e.Payload,
		Attempts:   e.Attempts,
		CreatedAt:  e.CreatedAt,
	}
}

type ListDeadLettersResponse struct {
	Items []*DeadLetterResponse `json:"items"`
	Total int                   `json:"total"`
}

type ReplayDeadLetterResponse struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	MessageID string `json:"message_id"`
}
