package service

import (
	"testing"

	"github.com/flexprice/debitsync/internal/api/dto"
	"github.com/flexprice/debitsync/internal/domain/billingcycle"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

func TestInvoiceItemDescription(t *testing.T) {
	cycle := billingcycle.BillingCycle{StartDate: cycleStart, EndDate: cycleEnd}

	assert.Equal(t, "Usage Charge - Feb, 28 - Mar, 28", InvoiceItemDescription("", cycle))
	assert.Equal(t, "Storj.io Usage Charge - Feb, 28 - Mar, 28", InvoiceItemDescription("Storj.io", cycle))
	assert.Equal(t, "Acme Usage Charge - Feb, 28 - Mar, 28", InvoiceItemDescription("  Acme ", cycle))
}

type InvoiceEmitterSuite struct {
	serviceSuite
}

func TestInvoiceEmitter(t *testing.T) {
	suite.Run(t, new(InvoiceEmitterSuite))
}

func (s *InvoiceEmitterSuite) request() *dto.EmissionRequest {
	return &dto.EmissionRequest{
		EventID:            "evt_1",
		ExternalCustomerID: "cus_abc",
		TotalAmount:        d("70"),
		Currency:           "usd",
		Metadata: dto.EmissionMetadata{
			CustomerID:    "cust_1",
			CreditID:      "lcr_1",
			PromoBalance:  d("50"),
			PromoUsed:     d("50"),
			InvoiceAmount: d("70"),
		},
		Cycle: billingcycle.BillingCycle{StartDate: cycleStart, EndDate: cycleEnd},
	}
}

func (s *InvoiceEmitterSuite) TestSubmitOutbox() {
	emitter := NewInvoiceEmitter(s.params)

	result, err := emitter.Submit(s.GetContext(), s.request())
	s.Require().NoError(err)
	s.Equal(types.EmissionModeOutbox, result.Mode)
	s.Equal("Usage Charge - Feb, 28 - Mar, 28", result.Description)

	messages := s.GetPubSub().GetMessages(s.cfg.Outbox.Topic)
	s.Require().Len(messages, 1)
	s.Equal("lcr_1", messages[0].Metadata.Get("credit_id"))
	s.Empty(s.GetGateway().Requests())
}

func (s *InvoiceEmitterSuite) TestDeliverIsIdempotentPerCredit() {
	emitter := NewInvoiceEmitter(s.params)

	first, err := emitter.Deliver(s.GetContext(), s.request())
	s.Require().NoError(err)
	second, err := emitter.Deliver(s.GetContext(), s.request())
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.Len(s.GetGateway().Requests(), 2)
	s.Len(s.GetGateway().Items(), 1)

	req := s.GetGateway().Requests()[0]
	s.Equal("cus_abc", req.ExternalCustomerID)
	s.Equal(map[string]string{
		"customer_id":      "cust_1",
		"credit_id":        "lcr_1",
		"reference_number": "",
		"promo_balance":    "50",
		"promo_used":       "50",
		"subtotal":         "70",
	}, req.Metadata)
}

func (s *InvoiceEmitterSuite) TestDeliverPropagatesGatewayError() {
	s.GetGateway().Err = ierr.NewError("stripe unavailable").Mark(ierr.ErrHTTPClient)

	_, err := NewInvoiceEmitter(s.params).Deliver(s.GetContext(), s.request())
	s.Require().Error(err)
	s.True(ierr.IsHTTPClient(err))
}

func (s *InvoiceEmitterSuite) TestSubmitRejectsInvalidRequest() {
	emitter := NewInvoiceEmitter(s.params)

	req := s.request()
	req.Metadata.CreditID = ""
	_, err := emitter.Submit(s.GetContext(), req)
	s.True(ierr.IsValidation(err))

	req = s.request()
	req.TotalAmount = d("-1")
	_, err = emitter.Submit(s.GetContext(), req)
	s.True(ierr.IsValidation(err))

	s.Empty(s.GetPubSub().GetMessages(s.cfg.Outbox.Topic))
}
