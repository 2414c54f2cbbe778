package types

import (
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/samber/lo"
)

// CreditType is the kind of ledger credit.
// AUTO credits are written by reconciliation, one per customer and billing cycle.
type CreditType string

const (
	CreditTypeAuto   CreditType = "AUTO"
	CreditTypeManual CreditType = "MANUAL"
	CreditTypePromo  CreditType = "PROMO"
)

func (t CreditType) String() string {
	return string(t)
}

func (t CreditType) Validate() error {
	allowedValues := []string{
		string(CreditTypeAuto),
		string(CreditTypeManual),
		string(CreditTypePromo),
	}
	if !lo.Contains(allowedValues, string(t)) {
		return ierr.NewError("invalid credit type").
			WithHint("Invalid credit type").
			WithReportableDetails(map[string]any{
				"allowed": allowedValues,
				"type":    t,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
