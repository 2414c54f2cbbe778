package testutil

import (
	"context"
	"time"

	"github.com/flexprice/debitsync/internal/config"
	"github.com/flexprice/debitsync/internal/domain/customer"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/metrics"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/flexprice/debitsync/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository fakes for testing
type Stores struct {
	CustomerRepo   *InMemoryCustomerStore
	DebitRepo      *InMemoryDebitStore
	CreditRepo     *InMemoryCreditStore
	DeadLetterRepo *InMemoryDeadLetterStore
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	stores  Stores
	pubsub  *InMemoryPubSub
	gateway *MockInvoiceGateway
	metrics *metrics.Metrics
	logger  *logger.Logger
	config  *config.Configuration
	now     time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo
	cfg.Stripe.Currency = "usd"

	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.stores = Stores{
		CustomerRepo:   NewInMemoryCustomerStore(),
		DebitRepo:      NewInMemoryDebitStore(),
		CreditRepo:     NewInMemoryCreditStore(),
		DeadLetterRepo: NewInMemoryDeadLetterStore(),
	}
	s.pubsub = NewInMemoryPubSub()
	s.gateway = NewMockInvoiceGateway()
	s.metrics = metrics.NewNoopMetrics()
	// 2023-03-28 falls inside the Feb 28 - Mar 28 cycle for anchor 28..31
	s.now = time.Date(2023, time.March, 28, 12, 0, 0, 0, time.UTC)
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.stores.CustomerRepo.Clear()
	s.stores.DebitRepo.Clear()
	s.stores.CreditRepo.Clear()
	s.stores.DeadLetterRepo.Clear()
	_ = s.pubsub.Close()
}

// CreateStripeCustomer stores a customer linked to a Stripe account
func (s *BaseServiceTestSuite) CreateStripeCustomer(id, externalID string, anchorDay int) *customer.Customer {
	c := &customer.Customer{
		ID:    id,
		Name:  "Customer " + id,
		Email: id + "@example.com",
		ProcessorAccounts: []*customer.ProcessorAccount{{
			ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PROCESSOR_ACCOUNT),
			CustomerID:         id,
			Processor:          types.PaymentProcessorStripe,
			ExternalCustomerID: externalID,
			BillingAnchorDay:   anchorDay,
		}},
		BaseModel: types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.stores.CustomerRepo.Create(s.ctx, c))
	return c
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetPubSub() *InMemoryPubSub {
	return s.pubsub
}

func (s *BaseServiceTestSuite) GetGateway() *MockInvoiceGateway {
	return s.gateway
}

func (s *BaseServiceTestSuite) GetMetrics() *metrics.Metrics {
	return s.metrics
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the fixed reconciliation clock
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

// GetUUID returns a new UUID string
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}
