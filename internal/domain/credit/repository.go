package credit

import (
	"context"
	"time"
)

// Repository defines the interface for ledger credit data access
type Repository interface {
	// ListByCustomerInWindow returns credits with start <= created_at < end
	ListByCustomerInWindow(ctx context.Context, customerID string, start, end time.Time) ([]*LedgerCredit, error)
	// ListByCustomer returns every credit the customer has ever received
	ListByCustomer(ctx context.Context, customerID string) ([]*LedgerCredit, error)
	// GetByIdempotencyKey returns ErrNotFound when no credit carries the key
	GetByIdempotencyKey(ctx context.Context, key string) (*LedgerCredit, error)
	// CreateIfAbsent inserts the credit unless one with the same idempotency key exists.
	// created is false when the insert lost to an existing row.
	CreateIfAbsent(ctx context.Context, credit *LedgerCredit) (created bool, err error)
}
