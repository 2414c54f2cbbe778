package service

import (
	"time"

	"github.com/flexprice/debitsync/internal/api/dto"
	"github.com/flexprice/debitsync/internal/config"
	"github.com/flexprice/debitsync/internal/domain/credit"
	"github.com/flexprice/debitsync/internal/domain/debit"
	"github.com/flexprice/debitsync/internal/testutil"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/samber/lo"
)

// serviceSuite wires the in-memory stores into ServiceParams
type serviceSuite struct {
	testutil.BaseServiceTestSuite
	cfg    *config.Configuration
	params ServiceParams
}

func (s *serviceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	cfg := *s.GetConfig()
	s.cfg = &cfg

	stores := s.GetStores()
	s.params = NewServiceParams(
		s.GetLogger(),
		s.cfg,
		nil,
		s.GetMetrics(),
		stores.CustomerRepo,
		stores.DebitRepo,
		stores.CreditRepo,
		stores.DeadLetterRepo,
		s.GetPubSub(),
		s.GetGateway(),
	)
	s.params.Now = s.GetNow
}

func (s *serviceSuite) addDebit(customerID, amount string, at time.Time) {
	s.Require().NoError(s.GetStores().DebitRepo.Add(s.GetContext(), &debit.UsageDebit{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DEBIT),
		CustomerID: customerID,
		Amount:     d(amount),
		CreatedAt:  at,
	}))
}

func (s *serviceSuite) addCredit(customerID string, creditType types.CreditType, paid, promo string, at time.Time) {
	base := types.GetDefaultBaseModel(s.GetContext())
	base.CreatedAt = at
	s.Require().NoError(s.GetStores().CreditRepo.Add(s.GetContext(), &credit.LedgerCredit{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT),
		CustomerID:     customerID,
		InvoicedAmount: d("0"),
		PaidAmount:     d(paid),
		PromoAmount:    d(promo),
		Processor:      types.PaymentProcessorStripe,
		Type:           creditType,
		BaseModel:      base,
	}))
}

func (s *serviceSuite) autoCredits(customerID string) []*credit.LedgerCredit {
	return lo.Filter(s.GetStores().CreditRepo.ByCustomer(customerID), func(c *credit.LedgerCredit, _ int) bool {
		return c.Type == types.CreditTypeAuto
	})
}

func invoiceEvent(externalCustomerID string) *dto.ReconciliationEvent {
	return &dto.ReconciliationEvent{
		EventID:            types.GenerateUUIDWithPrefix("evt"),
		EventType:          types.StripeEventInvoiceCreated,
		ObjectKind:         types.StripeObjectInvoice,
		ObjectID:           "in_123",
		ExternalCustomerID: externalCustomerID,
	}
}
