package testutil

import (
	"context"
	"time"

	"github.com/flexprice/debitsync/internal/domain/debit"
)

// InMemoryDebitStore implements debit.Repository
type InMemoryDebitStore struct {
	*InMemoryStore[*debit.UsageDebit]
	Err error
}

func NewInMemoryDebitStore() *InMemoryDebitStore {
	return &InMemoryDebitStore{
		InMemoryStore: NewInMemoryStore[*debit.UsageDebit](),
	}
}

// Add stores debits as the metering pipeline would
func (s *InMemoryDebitStore) Add(ctx context.Context, debits ...*debit.UsageDebit) error {
	for _, d := range debits {
		if err := s.Create(ctx, d.ID, d); err != nil {
			return err
		}
	}
	return nil
}

func (s *InMemoryDebitStore) ListByCustomerInWindow(ctx context.Context, customerID string, start, end time.Time) ([]*debit.UsageDebit, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.List(ctx, func(d *debit.UsageDebit) bool {
		return d.CustomerID == customerID && !d.CreatedAt.Before(start) && d.CreatedAt.Before(end)
	}, func(i, j *debit.UsageDebit) bool {
		return i.CreatedAt.Before(j.CreatedAt)
	})
}
