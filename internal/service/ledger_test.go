package service

import (
	"testing"
	"time"

	"github.com/flexprice/debitsync/internal/domain/billingcycle"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/stretchr/testify/suite"
)

type LedgerServiceSuite struct {
	serviceSuite
	cycle billingcycle.BillingCycle
}

func TestLedgerService(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	s.serviceSuite.SetupTest()
	s.cycle = billingcycle.BillingCycle{StartDate: cycleStart, EndDate: cycleEnd}
}

func (s *LedgerServiceSuite) TestAggregate() {
	s.addDebit("cust_1", "100", inCycle)
	s.addDebit("cust_1", "50", inCycle.Add(time.Hour))
	s.addDebit("cust_1", "75", cycleEnd)
	s.addCredit("cust_1", types.CreditTypeManual, "30", "0", inCycle)
	s.addCredit("cust_1", types.CreditTypePromo, "0", "40", cycleStart.AddDate(-1, 0, 0))
	s.addCredit("cust_1", types.CreditTypeAuto, "0", "10", cycleStart.AddDate(0, -1, 0))
	s.addCredit("cust_2", types.CreditTypePromo, "0", "500", inCycle)

	snapshot, err := NewLedgerService(s.params).Aggregate(s.GetContext(), "cust_1", s.cycle)
	s.Require().NoError(err)

	s.Len(snapshot.Debits, 2)
	s.Len(snapshot.WindowCredits, 1)
	s.Len(snapshot.AllCredits, 3)
	s.True(d("120").Equal(snapshot.Balance))
	s.True(d("50").Equal(snapshot.PromoBalance))
}

func (s *LedgerServiceSuite) TestAggregateEmptyLedger() {
	snapshot, err := NewLedgerService(s.params).Aggregate(s.GetContext(), "cust_1", s.cycle)
	s.Require().NoError(err)
	s.True(snapshot.Balance.IsZero())
	s.True(snapshot.PromoBalance.IsZero())
}

func (s *LedgerServiceSuite) TestAggregateReadFailure() {
	s.GetStores().CreditRepo.ReadErr = ierr.NewError("connection reset").Mark(ierr.ErrDatabase)

	snapshot, err := NewLedgerService(s.params).Aggregate(s.GetContext(), "cust_1", s.cycle)
	s.Require().Error(err)
	s.Nil(snapshot)
	s.True(ierr.IsDatabase(err))
}
