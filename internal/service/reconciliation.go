package service

import (
	"context"
	"time"

	"github.com/flexprice/debitsync/internal/api/dto"
	"github.com/flexprice/debitsync/internal/domain/billingcycle"
	"github.com/flexprice/debitsync/internal/domain/credit"
	"github.com/flexprice/debitsync/internal/domain/customer"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/interfaces"
	"github.com/flexprice/debitsync/internal/metrics"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type reconciliationService struct {
	ServiceParams
	ledger  LedgerService
	emitter interfaces.InvoiceEmitter
}

func NewReconciliationService(params ServiceParams, ledger LedgerService, emitter interfaces.InvoiceEmitter) interfaces.ReconciliationService {
	return &reconciliationService{
		ServiceParams: params,
		ledger:        ledger,
		emitter:       emitter,
	}
}

// Reconcile settles the customer's last elapsed billing cycle for an invoice event.
//
// Exactly one AUTO credit and one invoice item are produced per customer and cycle;
// later events for the same cycle end as already_reconciled. Failures are returned
// both as the error and on the outcome. A persisted credit is never rolled back.
func (s *reconciliationService) Reconcile(ctx context.Context, event *dto.ReconciliationEvent) (*dto.ReconciliationOutcome, error) {
	started := time.Now()
	outcome := &dto.ReconciliationOutcome{}
	if event != nil {
		outcome.EventID = event.EventID
		ctx = types.SetEventID(ctx, event.EventID)
	}

	s.reconcile(ctx, event, outcome)
	s.record(ctx, outcome, time.Since(started))
	return outcome, outcome.Err
}

func (s *reconciliationService) reconcile(ctx context.Context, event *dto.ReconciliationEvent, outcome *dto.ReconciliationOutcome) {
	if !event.IsInvoiceEvent() {
		outcome.Kind = types.OutcomeNotInvoiceEvent
		return
	}

	cust, account, err := s.resolveCustomer(ctx, event.ExternalCustomerID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.fail(outcome, types.OutcomeCustomerNotFound, err)
		} else {
			s.fail(outcome, types.OutcomeRetrievalFailure, err)
		}
		return
	}
	outcome.CustomerID = cust.ID

	cycle := billingcycle.Window(account.BillingAnchorDay, s.referenceTime(event))
	outcome.Cycle = &cycle

	retrieveCtx, cancel := withTimeout(ctx, s.Config.Reconciliation.RetrievalTimeout)
	snapshot, err := s.ledger.Aggregate(retrieveCtx, cust.ID, cycle)
	cancel()
	if err != nil {
		s.stepFailed(outcome, types.OutcomeRetrievalFailure, metrics.StepRetrieval, err)
		return
	}

	netting := Net(snapshot.Balance, snapshot.PromoBalance)
	outcome.Balance = netting.Balance
	outcome.PromoBalance = netting.PromoBalance
	outcome.PromoUsed = netting.PromoUsed
	outcome.InvoiceAmount = netting.InvoiceAmount
	outcome.TotalAmount = netting.TotalAmount

	key := s.IdempotencyGenerator.UsageAdjustmentKey(cust.ID, cycle.StartDate, cycle.EndDate, types.CreditTypeAuto)

	existing, err := s.findAdjustment(ctx, key)
	if err != nil {
		s.stepFailed(outcome, types.OutcomeRetrievalFailure, metrics.StepRetrieval, err)
		return
	}
	if existing != nil {
		outcome.Kind = types.OutcomeAlreadyReconciled
		outcome.CreditID = existing.ID
		return
	}

	adjustment := s.newAdjustment(ctx, cust.ID, event.ObjectID, cycle, netting, key)

	persistCtx, cancel := withTimeout(ctx, s.Config.Reconciliation.PersistenceTimeout)
	created, err := s.CreditRepo.CreateIfAbsent(persistCtx, adjustment)
	cancel()
	if err != nil {
		if !ierr.IsTimeout(err) && !ierr.IsDatabase(err) {
			err = ierr.WithError(err).
				WithHint("Failed to record usage adjustment").
				Mark(ierr.ErrDatabase)
		}
		s.stepFailed(outcome, types.OutcomePersistenceFailure, metrics.StepPersistence, err)
		return
	}
	if !created {
		// another attempt for the same cycle won the insert
		outcome.Kind = types.OutcomeAlreadyReconciled
		if winner, err := s.findAdjustment(ctx, key); err == nil && winner != nil {
			outcome.CreditID = winner.ID
		}
		return
	}
	outcome.CreditID = adjustment.ID

	s.Logger.WithContext(ctx).Infow("recorded usage adjustment",
		"customer_id", cust.ID,
		"credit_id", adjustment.ID,
		"reference_number", adjustment.ReferenceNumber,
		"cycle", cycle.String(),
		"invoice_amount", netting.InvoiceAmount.String(),
		"promo_used", netting.PromoUsed.String(),
	)

	emission := &dto.EmissionRequest{
		EventID:            event.EventID,
		ExternalCustomerID: account.ExternalCustomerID,
		TotalAmount:        netting.TotalAmount,
		Currency:           s.Config.Stripe.Currency,
		Metadata: dto.EmissionMetadata{
			CustomerID:      cust.ID,
			CreditID:        adjustment.ID,
			ReferenceNumber: adjustment.ReferenceNumber,
			PromoBalance:    netting.PromoBalance,
			PromoUsed:       netting.PromoUsed,
			InvoiceAmount:   netting.InvoiceAmount,
		},
		Cycle: cycle,
	}

	emitCtx, cancel := withTimeout(ctx, s.Config.Reconciliation.EmissionTimeout)
	result, err := s.emitter.Submit(emitCtx, emission)
	cancel()
	if err != nil {
		outcome.PendingEmission = emission
		s.stepFailed(outcome, types.OutcomeEmissionFailure, metrics.StepEmission, err)
		return
	}

	outcome.Kind = types.OutcomeReconciled
	outcome.Emission = result
}

func (s *reconciliationService) resolveCustomer(ctx context.Context, externalCustomerID string) (*customer.Customer, *customer.ProcessorAccount, error) {
	if externalCustomerID == "" {
		return nil, nil, ierr.NewError("event has no customer").
			WithHint("Invoice event carries no processor customer id").
			Mark(ierr.ErrNotFound)
	}

	ctx, cancel := withTimeout(ctx, s.Config.Reconciliation.RetrievalTimeout)
	defer cancel()

	cust, err := s.CustomerRepo.GetByProcessorCustomerID(ctx, types.PaymentProcessorStripe, externalCustomerID)
	if err != nil {
		return nil, nil, err
	}

	account, ok := cust.AccountFor(types.PaymentProcessorStripe)
	if !ok {
		return nil, nil, ierr.NewError("customer has no stripe account").
			WithHint("Customer is not linked to Stripe").
			WithReportableDetails(map[string]any{
				"customer_id": cust.ID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return cust, account, nil
}

// referenceTime is the event's receipt time; events queued without one use the clock
func (s *reconciliationService) referenceTime(event *dto.ReconciliationEvent) time.Time {
	if event.ReceivedAt.IsZero() {
		return s.now()
	}
	return event.ReceivedAt
}

// findAdjustment returns nil without error when no adjustment carries key
func (s *reconciliationService) findAdjustment(ctx context.Context, key string) (*credit.LedgerCredit, error) {
	ctx, cancel := withTimeout(ctx, s.Config.Reconciliation.RetrievalTimeout)
	defer cancel()

	existing, err := s.CreditRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return existing, nil
}

func (s *reconciliationService) newAdjustment(
	ctx context.Context,
	customerID string,
	invoiceID string,
	cycle billingcycle.BillingCycle,
	netting Netting,
	key string,
) *credit.LedgerCredit {
	return &credit.LedgerCredit{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT),
		CustomerID:         customerID,
		InvoicedAmount:     netting.InvoiceAmount,
		PaidAmount:         decimal.Zero,
		PromoAmount:        netting.PromoUsed,
		Processor:          types.PaymentProcessorStripe,
		ProcessorReference: invoiceID,
		Type:               types.CreditTypeAuto,
		ReferenceNumber:    types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_ADJUSTMENT),
		CycleStart:         lo.ToPtr(cycle.StartDate),
		CycleEnd:           lo.ToPtr(cycle.EndDate),
		IdempotencyKey:     lo.ToPtr(key),
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
}

func (s *reconciliationService) fail(outcome *dto.ReconciliationOutcome, kind types.ReconciliationOutcomeKind, err error) {
	outcome.Kind = kind
	outcome.Err = err
}

func (s *reconciliationService) stepFailed(outcome *dto.ReconciliationOutcome, kind types.ReconciliationOutcomeKind, step string, err error) {
	if ierr.IsTimeout(err) {
		s.Metrics.IncStepTimeout(step)
		if !ierr.Is(err, ierr.ErrTimeout) {
			err = ierr.WithError(err).
				WithHintf("%s step timed out", step).
				Mark(ierr.ErrTimeout)
		}
	}
	s.fail(outcome, kind, err)
}

func (s *reconciliationService) record(ctx context.Context, outcome *dto.ReconciliationOutcome, elapsed time.Duration) {
	s.Metrics.ObserveOutcome(outcome.Kind, elapsed)

	log := s.Logger.WithContext(ctx)
	fields := []interface{}{
		"outcome", outcome.Kind,
		"customer_id", outcome.CustomerID,
		"credit_id", outcome.CreditID,
		"duration_ms", elapsed.Milliseconds(),
	}

	if outcome.Kind.IsFailure() {
		log.Errorw("reconciliation failed", append(fields, "error", outcome.Err)...)
		s.Sentry.CaptureWithTags(outcome.Err, map[string]string{
			"event_id":    outcome.EventID,
			"outcome":     string(outcome.Kind),
			"customer_id": outcome.CustomerID,
			"credit_id":   outcome.CreditID,
		})
		return
	}

	if outcome.Kind == types.OutcomeReconciled {
		s.Metrics.AddInvoiced(outcome.TotalAmount.InexactFloat64())
	}
	log.Infow("reconciliation finished", append(fields, "total_amount", outcome.TotalAmount.String())...)
}
