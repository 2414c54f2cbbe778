package debit

import (
	"time"

	"github.com/shopspring/decimal"
)

// UsageDebit is one immutable usage charge written by metering. Amount is in major currency units.
type UsageDebit struct {
	ID         string          `db:"id" json:"id" ch:"id"`
	CustomerID string          `db:"customer_id" json:"customer_id" ch:"customer_id"`
	Amount     decimal.Decimal `db:"amount" json:"amount" ch:"amount"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at" ch:"created_at"`
}
