package service

import (
	"time"

	"github.com/flexprice/debitsync/internal/config"
	"github.com/flexprice/debitsync/internal/domain/credit"
	"github.com/flexprice/debitsync/internal/domain/customer"
	"github.com/flexprice/debitsync/internal/domain/deadletter"
	"github.com/flexprice/debitsync/internal/domain/debit"
	"github.com/flexprice/debitsync/internal/idempotency"
	"github.com/flexprice/debitsync/internal/interfaces"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/metrics"
	"github.com/flexprice/debitsync/internal/pubsub"
	"github.com/flexprice/debitsync/internal/sentry"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger  *logger.Logger
	Config  *config.Configuration
	Sentry  *sentry.Service
	Metrics *metrics.Metrics

	// Repositories
	CustomerRepo   customer.Repository
	DebitRepo      debit.Repository
	CreditRepo     credit.Repository
	DeadLetterRepo deadletter.Repository

	// Messaging
	PubSub pubsub.PubSub

	// Processor
	Gateway interfaces.InvoiceGateway

	IdempotencyGenerator *idempotency.Generator

	// Now is the reconciliation clock for events that carry no receipt time
	Now func() time.Time
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	sentry *sentry.Service,
	metrics *metrics.Metrics,
	customerRepo customer.Repository,
	debitRepo debit.Repository,
	creditRepo credit.Repository,
	deadLetterRepo deadletter.Repository,
	pubSub pubsub.PubSub,
	gateway interfaces.InvoiceGateway,
) ServiceParams {
	return ServiceParams{
		Logger:               logger,
		Config:               config,
		Sentry:               sentry,
		Metrics:              metrics,
		CustomerRepo:         customerRepo,
		DebitRepo:            debitRepo,
		CreditRepo:           creditRepo,
		DeadLetterRepo:       deadLetterRepo,
		PubSub:               pubSub,
		Gateway:              gateway,
		IdempotencyGenerator: idempotency.NewGenerator(),
		Now:                  time.Now,
	}
}

func (p ServiceParams) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}
