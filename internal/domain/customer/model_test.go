package customer

import (
	"testing"

	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerValidate(t *testing.T) {
	stripeAccount := func(anchor int) *ProcessorAccount {
		return &ProcessorAccount{Processor: types.PaymentProcessorStripe, ExternalCustomerID: "cus_1", BillingAnchorDay: anchor}
	}

	tests := []struct {
		name     string
		customer *Customer
		wantErr  bool
	}{
		{name: "valid", customer: &Customer{ID: "cust_1", ProcessorAccounts: []*ProcessorAccount{stripeAccount(15)}}},
		{name: "no accounts", customer: &Customer{ID: "cust_1"}},
		{name: "missing id", customer: &Customer{}, wantErr: true},
		{name: "anchor zero", customer: &Customer{ID: "cust_1", ProcessorAccounts: []*ProcessorAccount{stripeAccount(0)}}, wantErr: true},
		{name: "anchor 32", customer: &Customer{ID: "cust_1", ProcessorAccounts: []*ProcessorAccount{stripeAccount(32)}}, wantErr: true},
		{
			name:     "two stripe accounts",
			customer: &Customer{ID: "cust_1", ProcessorAccounts: []*ProcessorAccount{stripeAccount(1), stripeAccount(2)}},
			wantErr:  true,
		},
		{
			name: "unknown processor",
			customer: &Customer{ID: "cust_1", ProcessorAccounts: []*ProcessorAccount{
				{Processor: "paypal", ExternalCustomerID: "x", BillingAnchorDay: 1},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.customer.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, ierr.IsValidation(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAccountFor(t *testing.T) {
	c := &Customer{ID: "cust_1", ProcessorAccounts: []*ProcessorAccount{
		{Processor: types.PaymentProcessorStripe, ExternalCustomerID: "cus_1", BillingAnchorDay: 3},
	}}

	acc, ok := c.AccountFor(types.PaymentProcessorStripe)
	require.True(t, ok)
	assert.Equal(t, 3, acc.BillingAnchorDay)

	_, ok = (&Customer{ID: "cust_2"}).AccountFor(types.PaymentProcessorStripe)
	assert.False(t, ok)
}
