package credit

import (
	"time"

	"github.com/flexprice/debitsync/internal/types"
	"github.com/shopspring/decimal"
)

// LedgerCredit is an immutable credit entry on a customer's usage ledger.
// Amounts are in major currency units.
type LedgerCredit struct {
	ID                 string                 `db:"id" json:"id"`
	CustomerID         string                 `db:"customer_id" json:"customer_id"`
	InvoicedAmount     decimal.Decimal        `db:"invoiced_amount" json:"invoiced_amount"`
	PaidAmount         decimal.Decimal        `db:"paid_amount" json:"paid_amount"`
	PromoAmount        decimal.Decimal        `db:"promo_amount" json:"promo_amount"`
	Processor          types.PaymentProcessor `db:"processor" json:"processor"`
	ProcessorReference string                 `db:"processor_reference" json:"processor_reference"`
	Type               types.CreditType       `db:"type" json:"type"`
	ReferenceNumber    string                 `db:"reference_number" json:"reference_number"`
	// CycleStart and CycleEnd are set on AUTO credits only
	CycleStart     *time.Time `db:"cycle_start" json:"cycle_start,omitempty"`
	CycleEnd       *time.Time `db:"cycle_end" json:"cycle_end,omitempty"`
	IdempotencyKey *string    `db:"idempotency_key" json:"idempotency_key,omitempty"`

	types.BaseModel
}

func (c *LedgerCredit) Validate() error {
	return c.Type.Validate()
}
