package types

// ReconciliationOutcomeKind is the terminal state of one reconciliation attempt
type ReconciliationOutcomeKind string

const (
	OutcomeReconciled         ReconciliationOutcomeKind = "reconciled"
	OutcomeAlreadyReconciled  ReconciliationOutcomeKind = "already_reconciled"
	OutcomeNotInvoiceEvent    ReconciliationOutcomeKind = "not_invoice_event"
	OutcomeCustomerNotFound   ReconciliationOutcomeKind = "customer_not_found"
	OutcomeRetrievalFailure   ReconciliationOutcomeKind = "retrieval_failure"
	OutcomePersistenceFailure ReconciliationOutcomeKind = "persistence_failure"
	OutcomeEmissionFailure    ReconciliationOutcomeKind = "emission_failure"
)

func (k ReconciliationOutcomeKind) String() string {
	return string(k)
}

// IsFailure reports whether the outcome should be routed to the dead-letter store
func (k ReconciliationOutcomeKind) IsFailure() bool {
	switch k {
	case OutcomeCustomerNotFound, OutcomeRetrievalFailure, OutcomePersistenceFailure, OutcomeEmissionFailure:
		return true
	}
	return false
}

// EmissionMode controls how invoice items reach the processor
type EmissionMode string

const (
	// EmissionModeOutbox publishes to the emission topic and delivers asynchronously
	EmissionModeOutbox EmissionMode = "outbox"
	// EmissionModeInline calls the gateway directly
	EmissionModeInline EmissionMode = "inline"
)

// VerifierMode controls how inbound webhook payloads are authenticated
type VerifierMode string

const (
	VerifierModeRetrieve  VerifierMode = "retrieve"
	VerifierModeSignature VerifierMode = "signature"
	VerifierModeTrust     VerifierMode = "trust"
)

// DeadLetterKind tells replay which topic an entry belongs to
type DeadLetterKind string

const (
	DeadLetterKindReconciliation DeadLetterKind = "reconciliation"
	DeadLetterKindEmission       DeadLetterKind = "emission"
)
