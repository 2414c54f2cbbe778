package customer

import (
	"context"

	"github.com/flexprice/debitsync/internal/types"
)

// Repository defines the interface for customer data access
type Repository interface {
	Create(ctx context.Context, customer *Customer) error
	Get(ctx context.Context, id string) (*Customer, error)
	// GetByProcessorCustomerID resolves a customer from a processor's customer id.
	// Returns an error marked ErrNotFound when no customer is linked.
	GetByProcessorCustomerID(ctx context.Context, processor types.PaymentProcessor, externalCustomerID string) (*Customer, error)
}
