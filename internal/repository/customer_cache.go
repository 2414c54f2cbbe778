package repository

import (
	"context"

	"github.com/flexprice/debitsync/internal/cache"
	"github.com/flexprice/debitsync/internal/domain/customer"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/types"
)

// cachedCustomerRepository memoises processor id lookups. Misses are not cached
// so a customer linked after a failed lookup is found on the next delivery.
type cachedCustomerRepository struct {
	customer.Repository
	cache  cache.Cache
	logger *logger.Logger
}

func NewCachedCustomerRepository(repo customer.Repository, c cache.Cache, logger *logger.Logger) customer.Repository {
	return &cachedCustomerRepository{Repository: repo, cache: c, logger: logger}
}

func (r *cachedCustomerRepository) GetByProcessorCustomerID(ctx context.Context, processor types.PaymentProcessor, externalCustomerID string) (*customer.Customer, error) {
	key := cache.GenerateKey(cache.PrefixProcessorCustomer, processor, externalCustomerID)
	if v, ok := r.cache.Get(ctx, key); ok {
		if c, ok := v.(*customer.Customer); ok {
			r.logger.Debugw("customer cache hit", "external_customer_id", externalCustomerID)
			return c, nil
		}
	}

	c, err := r.Repository.GetByProcessorCustomerID(ctx, processor, externalCustomerID)
	if err != nil {
		return nil, err
	}
	r.cache.Set(ctx, key, c, 0)
	return c, nil
}
