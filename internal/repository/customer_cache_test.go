package repository

import (
	"context"
	"testing"

	"github.com/flexprice/debitsync/internal/cache"
	"github.com/flexprice/debitsync/internal/config"
	"github.com/flexprice/debitsync/internal/domain/customer"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/testutil"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCustomerRepo struct {
	customer.Repository
	lookups int
}

func (r *countingCustomerRepo) GetByProcessorCustomerID(ctx context.Context, processor types.PaymentProcessor, externalCustomerID string) (*customer.Customer, error) {
	r.lookups++
	return r.Repository.GetByProcessorCustomerID(ctx, processor, externalCustomerID)
}

func newStripeCustomer(ctx context.Context, id, externalID string) *customer.Customer {
	return &customer.Customer{
		ID:    id,
		Name:  "Customer " + id,
		Email: id + "@example.com",
		ProcessorAccounts: []*customer.ProcessorAccount{{
			ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PROCESSOR_ACCOUNT),
			CustomerID:         id,
			Processor:          types.PaymentProcessorStripe,
			ExternalCustomerID: externalID,
			BillingAnchorDay:   15,
		}},
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
}

func TestCachedCustomerRepository(t *testing.T) {
	ctx := testutil.SetupContext()
	cfg := config.GetDefaultConfig()
	cfg.Cache.Enabled = true
	inner := &countingCustomerRepo{Repository: testutil.NewInMemoryCustomerStore()}
	repo := NewCachedCustomerRepository(inner, cache.NewInMemoryCache(cfg), logger.NewNoopLogger())

	_, err := repo.GetByProcessorCustomerID(ctx, types.PaymentProcessorStripe, "cus_abc")
	require.Error(t, err)
	assert.True(t, ierr.IsNotFound(err))

	// the miss above must not hide a customer linked afterwards
	require.NoError(t, repo.Create(ctx, newStripeCustomer(ctx, "cust_1", "cus_abc")))

	for i := 0; i < 3; i++ {
		c, err := repo.GetByProcessorCustomerID(ctx, types.PaymentProcessorStripe, "cus_abc")
		require.NoError(t, err)
		assert.Equal(t, "cust_1", c.ID)
	}
	assert.Equal(t, 2, inner.lookups)
}

func TestCachedCustomerRepositoryKeysByProcessor(t *testing.T) {
	ctx := testutil.SetupContext()
	cfg := config.GetDefaultConfig()
	cfg.Cache.Enabled = true
	repo := NewCachedCustomerRepository(testutil.NewInMemoryCustomerStore(), cache.NewInMemoryCache(cfg), logger.NewNoopLogger())

	require.NoError(t, repo.Create(ctx, newStripeCustomer(ctx, "cust_1", "cus_abc")))

	_, err := repo.GetByProcessorCustomerID(ctx, types.PaymentProcessorStripe, "cus_abc")
	require.NoError(t, err)

	_, err = repo.GetByProcessorCustomerID(ctx, types.PaymentProcessor("other"), "cus_abc")
	assert.True(t, ierr.IsNotFound(err))
}
