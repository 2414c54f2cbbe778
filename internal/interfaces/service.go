package interfaces

import (
	"context"

	"github.com/flexprice/debitsync/internal/api/dto"
)

// EventVerifier authenticates an inbound webhook body and extracts the event
type EventVerifier interface {
	Verify(ctx context.Context, body []byte, signature string) (*dto.ReconciliationEvent, error)
}

// InvoiceGateway issues invoice items at the payment processor
type InvoiceGateway interface {
	CreateInvoiceItem(ctx context.Context, req *dto.InvoiceItemRequest) (*dto.InvoiceItem, error)
}

// ReconciliationService turns an invoice event into one ledger adjustment and one invoice item
type ReconciliationService interface {
	Reconcile(ctx context.Context, event *dto.ReconciliationEvent) (*dto.ReconciliationOutcome, error)
}

// InvoiceEmitter submits invoice items for persisted adjustments
type InvoiceEmitter interface {
	Submit(ctx context.Context, req *dto.EmissionRequest) (*dto.EmissionResult, error)
	Deliver(ctx context.Context, req *dto.EmissionRequest) (*dto.InvoiceItem, error)
}
