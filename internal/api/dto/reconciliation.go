package dto

import (
	"time"

	"github.com/flexprice/debitsync/internal/domain/billingcycle"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/shopspring/decimal"
)

// ReconciliationEvent is a verified processor notification, as queued on the sync topic
type ReconciliationEvent struct {
	EventID            string    `json:"event_id"`
	EventType          string    `json:"event_type"`
	ObjectKind         string    `json:"object_kind"`
	ObjectID           string    `json:"object_id"`
	ExternalCustomerID string    `json:"external_customer_id"`
	ReceivedAt         time.Time `json:"received_at"`
}

// IsInvoiceEvent reports whether the event's object is an invoice
func (e *ReconciliationEvent) IsInvoiceEvent() bool {
	return e != nil && e.ObjectKind == types.StripeObjectInvoice
}

// ReconciliationOutcome describes how one attempt ended
type ReconciliationOutcome struct {
	Kind          types.ReconciliationOutcomeKind `json:"kind"`
	EventID       string                          `json:"event_id"`
	CustomerID    string                          `json:"customer_id,omitempty"`
	CreditID      string                          `json:"credit_id,omitempty"`
	Balance       decimal.Decimal                 `json:"balance"`
	PromoBalance  decimal.Decimal                 `json:"promo_balance"`
	PromoUsed     decimal.Decimal                 `json:"promo_used"`
	InvoiceAmount decimal.Decimal                 `json:"invoice_amount"`
	TotalAmount   decimal.Decimal                 `json:"total_amount"`
	Cycle         *billingcycle.BillingCycle      `json:"cycle,omitempty"`
	Emission      *EmissionResult                 `json:"emission,omitempty"`
	// PendingEmission is the request that could not be submitted
	PendingEmission *EmissionRequest `json:"pending_emission,omitempty"`
	Err             error            `json:"-"`
}

// SyncAcceptedResponse is returned once a webhook has been queued
type SyncAcceptedResponse struct {
	Message string `json:"message"`
	EventID string `json:"event_id,omitempty"`
}
