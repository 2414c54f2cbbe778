package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/flexprice/debitsync/internal/domain/credit"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/samber/lo"
)

// InMemoryCreditStore implements credit.Repository with the same unique
// idempotency key the database enforces
type InMemoryCreditStore struct {
	*InMemoryStore[*credit.LedgerCredit]

	mu sync.Mutex
	// ReadErr fails every read, WriteErr fails CreateIfAbsent
	ReadErr  error
	WriteErr error
}

func NewInMemoryCreditStore() *InMemoryCreditStore {
	return &InMemoryCreditStore{
		InMemoryStore: NewInMemoryStore[*credit.LedgerCredit](),
	}
}

// Add stores existing ledger credits
func (s *InMemoryCreditStore) Add(ctx context.Context, credits ...*credit.LedgerCredit) error {
	for _, c := range credits {
		if err := s.Create(ctx, c.ID, c); err != nil {
			return err
		}
	}
	return nil
}

func byCreatedAt(i, j *credit.LedgerCredit) bool {
	return i.CreatedAt.Before(j.CreatedAt)
}

func (s *InMemoryCreditStore) ListByCustomerInWindow(ctx context.Context, customerID string, start, end time.Time) ([]*credit.LedgerCredit, error) {
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	return s.List(ctx, func(c *credit.LedgerCredit) bool {
		return c.CustomerID == customerID && !c.CreatedAt.Before(start) && c.CreatedAt.Before(end)
	}, byCreatedAt)
}

func (s *InMemoryCreditStore) ListByCustomer(ctx context.Context, customerID string) ([]*credit.LedgerCredit, error) {
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	return s.List(ctx, func(c *credit.LedgerCredit) bool {
		return c.CustomerID == customerID
	}, byCreatedAt)
}

func (s *InMemoryCreditStore) GetByIdempotencyKey(ctx context.Context, key string) (*credit.LedgerCredit, error) {
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	matches, _ := s.List(ctx, func(c *credit.LedgerCredit) bool {
		return lo.FromPtr(c.IdempotencyKey) == key
	}, nil)
	if len(matches) == 0 {
		return nil, ierr.NewError("credit not found").
			WithHint("No credit carries this idempotency key").
			Mark(ierr.ErrNotFound)
	}
	return matches[0], nil
}

func (s *InMemoryCreditStore) CreateIfAbsent(ctx context.Context, c *credit.LedgerCredit) (bool, error) {
	if s.WriteErr != nil {
		return false, s.WriteErr
	}
	if err := c.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c.IdempotencyKey != nil {
		if n := s.Count(func(existing *credit.LedgerCredit) bool {
			return lo.FromPtr(existing.IdempotencyKey) == *c.IdempotencyKey
		}); n > 0 {
			return false, nil
		}
	}
	if err := s.Create(ctx, c.ID, c); err != nil {
		return false, err
	}
	return true, nil
}

// ByCustomer returns every stored credit for a customer, oldest first
func (s *InMemoryCreditStore) ByCustomer(customerID string) []*credit.LedgerCredit {
	credits, _ := s.ListByCustomer(context.Background(), customerID)
	return credits
}
