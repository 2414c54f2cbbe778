package deadletter

import (
	"encoding/json"
	"time"

	"github.com/flexprice/debitsync/internal/types"
)

// Entry is a unit of work that failed after the webhook was acknowledged
type Entry struct {
	ID         string               `json:"id"`
	Kind       types.DeadLetterKind `json:"kind"`
	EventID    string               `json:"event_id"`
	CustomerID string               `json:"customer_id,omitempty"`
	CreditID   string               `json:"credit_id,omitempty"`
	Outcome    string               `json:"outcome"`
	Error      string               `json:"error"`
	// Payload is the original message body, republished verbatim on replay
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	CreatedAt time.Time       `json:"created_at"`
}
