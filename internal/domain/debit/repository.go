package debit

import (
	"context"
	"time"
)

// Repository reads usage debits. The window is half-open: start <= created_at < end.
type Repository interface {
	ListByCustomerInWindow(ctx context.Context, customerID string, start, end time.Time) ([]*UsageDebit, error)
}
