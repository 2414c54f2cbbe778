package testutil

import (
	"context"

	"github.com/flexprice/debitsync/internal/domain/customer"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/samber/lo"
)

// InMemoryCustomerStore implements customer.Repository
type InMemoryCustomerStore struct {
	*InMemoryStore[*customer.Customer]
	// Err, when set, is returned by every lookup
	Err error
}

func NewInMemoryCustomerStore() *InMemoryCustomerStore {
	return &InMemoryCustomerStore{
		InMemoryStore: NewInMemoryStore[*customer.Customer](),
	}
}

func copyCustomer(c *customer.Customer) *customer.Customer {
	if c == nil {
		return nil
	}
	out := *c
	out.ProcessorAccounts = lo.Map(c.ProcessorAccounts, func(a *customer.ProcessorAccount, _ int) *customer.ProcessorAccount {
		acc := *a
		return &acc
	})
	return &out
}

func (s *InMemoryCustomerStore) Create(ctx context.Context, c *customer.Customer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.InMemoryStore.Create(ctx, c.ID, copyCustomer(c))
}

func (s *InMemoryCustomerStore) Get(ctx context.Context, id string) (*customer.Customer, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	c, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyCustomer(c), nil
}

func (s *InMemoryCustomerStore) GetByProcessorCustomerID(ctx context.Context, processor types.PaymentProcessor, externalCustomerID string) (*customer.Customer, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	matches, _ := s.List(ctx, func(c *customer.Customer) bool {
		account, ok := c.AccountFor(processor)
		return ok && account.ExternalCustomerID == externalCustomerID && c.Status == types.StatusPublished
	}, nil)
	if len(matches) == 0 {
		return nil, ierr.NewError("customer not found").
			WithHintf("No customer linked to %s customer %s", processor, externalCustomerID).
			Mark(ierr.ErrNotFound)
	}
	return copyCustomer(matches[0]), nil
}
