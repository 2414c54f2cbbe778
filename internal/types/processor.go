package types

import (
	ierr "github.com/flexprice/debitsync/internal/errors"
)

// PaymentProcessor identifies the external billing system a customer is linked to
type PaymentProcessor string

const (
	PaymentProcessorStripe PaymentProcessor = "stripe"
)

// Validate validates the payment processor
func (p PaymentProcessor) Validate() error {
	switch p {
	case PaymentProcessorStripe:
		return nil
	default:
		return ierr.NewError("invalid payment processor").
			WithHint("Please provide a valid payment processor").
			WithReportableDetails(map[string]any{
				"allowed":   []PaymentProcessor{PaymentProcessorStripe},
				"processor": p,
			}).
			Mark(ierr.ErrValidation)
	}
}

func (p PaymentProcessor) String() string {
	return string(p)
}

// Stripe event types and object kinds the reconciliation path cares about
const (
	StripeObjectInvoice = "invoice"

	StripeEventInvoiceCreated   = "invoice.created"
	StripeEventInvoiceUpcoming  = "invoice.upcoming"
	StripeEventInvoiceFinalized = "invoice.finalized"
)
