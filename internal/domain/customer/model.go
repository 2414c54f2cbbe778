package customer

import (
	"strings"

	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/samber/lo"
)

// Customer represents a customer whose usage is reconciled against a payment processor
type Customer struct {
	// ID is the unique identifier for the customer
	ID string `db:"id" json:"id"`

	// Name is the name of the customer
	Name string `db:"name" json:"name"`

	// Email is the email of the customer
	Email string `db:"email" json:"email"`

	// ProcessorAccounts links the customer to external billing systems, at most one per processor
	ProcessorAccounts []*ProcessorAccount `db:"-" json:"processor_accounts"`

	types.BaseModel
}

// ProcessorAccount is the customer's identity inside a payment processor
type ProcessorAccount struct {
	ID                 string                 `db:"id" json:"id"`
	CustomerID         string                 `db:"customer_id" json:"customer_id"`
	Processor          types.PaymentProcessor `db:"processor" json:"processor"`
	ExternalCustomerID string                 `db:"external_customer_id" json:"external_customer_id"`
	// BillingAnchorDay is the day of month (1..31) the processor's billing cycle starts on
	BillingAnchorDay int `db:"billing_anchor_day" json:"billing_anchor_day"`
}

// AccountFor returns the customer's account for the given processor, if any
func (c *Customer) AccountFor(processor types.PaymentProcessor) (*ProcessorAccount, bool) {
	return lo.Find(c.ProcessorAccounts, func(a *ProcessorAccount) bool {
		return a != nil && a.Processor == processor
	})
}

func (c *Customer) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ierr.NewError("customer id is required").
			WithHint("Customer ID is required").
			Mark(ierr.ErrValidation)
	}

	seen := make(map[types.PaymentProcessor]bool, len(c.ProcessorAccounts))
	for _, a := range c.ProcessorAccounts {
		if err := a.Validate(); err != nil {
			return err
		}
		if seen[a.Processor] {
			return ierr.NewError("duplicate processor account").
				WithHint("A customer can have at most one account per payment processor").
				WithReportableDetails(map[string]any{
					"customer_id": c.ID,
					"processor":   a.Processor,
				}).
				Mark(ierr.ErrValidation)
		}
		seen[a.Processor] = true
	}
	return nil
}

func (a *ProcessorAccount) Validate() error {
	if a == nil {
		return ierr.NewError("processor account is nil").Mark(ierr.ErrValidation)
	}
	if err := a.Processor.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(a.ExternalCustomerID) == "" {
		return ierr.NewError("external customer id is required").
			WithHint("Processor accounts need the processor's customer ID").
			Mark(ierr.ErrValidation)
	}
	if a.BillingAnchorDay < 1 || a.BillingAnchorDay > 31 {
		return ierr.NewError("billing anchor day out of range").
			WithHint("Billing anchor day must be between 1 and 31").
			WithReportableDetails(map[string]any{
				"billing_anchor_day": a.BillingAnchorDay,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
