package service

import (
	"context"

	"github.com/flexprice/debitsync/internal/domain/billingcycle"
	"github.com/flexprice/debitsync/internal/domain/credit"
	"github.com/flexprice/debitsync/internal/domain/debit"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

// LedgerSnapshot is the read side of one reconciliation: the window's ledger
// entries, the customer's full credit history and the reduced scalars.
type LedgerSnapshot struct {
	Debits        []*debit.UsageDebit
	WindowCredits []*credit.LedgerCredit
	AllCredits    []*credit.LedgerCredit
	Balance       decimal.Decimal
	PromoBalance  decimal.Decimal
}

type LedgerService interface {
	Aggregate(ctx context.Context, customerID string, cycle billingcycle.BillingCycle) (*LedgerSnapshot, error)
}

type ledgerService struct {
	ServiceParams
}

func NewLedgerService(params ServiceParams) LedgerService {
	return &ledgerService{ServiceParams: params}
}

// Aggregate runs the three ledger reads concurrently and cancels the rest when one fails.
// It has no side effects.
func (s *ledgerService) Aggregate(ctx context.Context, customerID string, cycle billingcycle.BillingCycle) (*LedgerSnapshot, error) {
	snapshot := &LedgerSnapshot{}

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		debits, err := s.DebitRepo.ListByCustomerInWindow(ctx, customerID, cycle.StartDate, cycle.EndDate)
		if err != nil {
			return err
		}
		snapshot.Debits = debits
		return nil
	})
	p.Go(func(ctx context.Context) error {
		credits, err := s.CreditRepo.ListByCustomerInWindow(ctx, customerID, cycle.StartDate, cycle.EndDate)
		if err != nil {
			return err
		}
		snapshot.WindowCredits = credits
		return nil
	})
	p.Go(func(ctx context.Context) error {
		credits, err := s.CreditRepo.ListByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		snapshot.AllCredits = credits
		return nil
	})

	if err := p.Wait(); err != nil {
		if ierr.IsTimeout(err) {
			return nil, ierr.WithError(err).
				WithHint("Ledger reads timed out").
				Mark(ierr.ErrTimeout)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to read customer ledger").
			Mark(ierr.ErrDatabase)
	}

	snapshot.Balance = NetBalance(snapshot.Debits, snapshot.WindowCredits)
	snapshot.PromoBalance = PromoBalance(snapshot.AllCredits)

	s.Logger.Debugw("aggregated ledger",
		"customer_id", customerID,
		"cycle", cycle.String(),
		"debits", len(snapshot.Debits),
		"window_credits", len(snapshot.WindowCredits),
		"all_credits", len(snapshot.AllCredits),
		"balance", snapshot.Balance.String(),
		"promo_balance", snapshot.PromoBalance.String(),
	)
	return snapshot, nil
}
