package dto

import (
	"github.com/flexprice/debitsync/internal/domain/billingcycle"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/flexprice/debitsync/internal/validator"
	"github.com/shopspring/decimal"
)

// EmissionMetadata is attached to the processor line item
type EmissionMetadata struct {
	CustomerID      string          `json:"customer_id"`
	CreditID        string          `json:"credit_id"`
	ReferenceNumber string          `json:"reference_number"`
	PromoBalance    decimal.Decimal `json:"promo_balance"`
	PromoUsed       decimal.Decimal `json:"promo_used"`
	InvoiceAmount   decimal.Decimal `json:"invoice_amount"`
}

// ToMap renders metadata as processor key/values. invoice amount keeps its historical "subtotal" key.
func (m EmissionMetadata) ToMap() map[string]string {
	return map[string]string{
		"customer_id":      m.CustomerID,
		"credit_id":        m.CreditID,
		"reference_number": m.ReferenceNumber,
		"promo_balance":    m.PromoBalance.String(),
		"promo_used":       m.PromoUsed.String(),
		"subtotal":         m.InvoiceAmount.String(),
	}
}

// EmissionRequest is one invoice item to be issued for a persisted adjustment.
// It is also the message body on the emission topic.
type EmissionRequest struct {
	EventID            string                    `json:"event_id"`
	ExternalCustomerID string                    `json:"external_customer_id" validate:"required"`
	TotalAmount        decimal.Decimal           `json:"total_amount" validate:"gte=0"`
	Currency           string                    `json:"currency" validate:"required"`
	Metadata           EmissionMetadata          `json:"metadata"`
	Cycle              billingcycle.BillingCycle `json:"cycle"`
}

func (r *EmissionRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.Metadata.CreditID == "" {
		return ierr.NewError("credit id is required").
			WithHint("Emission requests must reference a persisted adjustment").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// EmissionResult reports what Submit did
type EmissionResult struct {
	Mode types.EmissionMode `json:"mode"`
	// MessageID is set in outbox mode
	MessageID string `json:"message_id,omitempty"`
	// InvoiceItemID is set in inline mode
	InvoiceItemID string `json:"invoice_item_id,omitempty"`
	Description   string `json:"description"`
}

// InvoiceItemRequest is the gateway call. Amount is in the ledger's unit.
type InvoiceItemRequest struct {
	ExternalCustomerID string            `json:"external_customer_id" validate:"required"`
	Amount             decimal.Decimal   `json:"amount" validate:"gte=0"`
	Currency           string            `json:"currency" validate:"required,len=3"`
	Description        string            `json:"description" validate:"required"`
	Metadata           map[string]string `json:"metadata"`
	IdempotencyKey     string            `json:"idempotency_key"`
}

func (r *InvoiceItemRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// InvoiceItem is the processor's record of an issued item
type InvoiceItem struct {
	ID                 string          `json:"id"`
	ExternalCustomerID string          `json:"external_customer_id"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Description        string          `json:"description"`
}
