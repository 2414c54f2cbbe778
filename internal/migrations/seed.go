package migrations

import (
	"context"
	"encoding/json"
	"io"

	"github.com/flexprice/debitsync/internal/domain/customer"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/types"
)

// SeedResult counts what SeedCustomers did
type SeedResult struct {
	Created int
	Skipped int
}

// SeedCustomers links customers to their processor accounts from a JSON array.
// Customers whose id already exists are left untouched, so a seed file can be
// applied repeatedly.
func SeedCustomers(ctx context.Context, repo customer.Repository, r io.Reader, log *logger.Logger) (SeedResult, error) {
	var result SeedResult

	var customers []*customer.Customer
	if err := json.NewDecoder(r).Decode(&customers); err != nil {
		return result, ierr.WithError(err).
			WithHint("Seed file must be a JSON array of customers").
			Mark(ierr.ErrValidation)
	}

	for _, c := range customers {
		if c == nil {
			continue
		}

		_, err := repo.Get(ctx, c.ID)
		if err == nil {
			log.Infow("customer already seeded", "customer_id", c.ID)
			result.Skipped++
			continue
		}
		if !ierr.IsNotFound(err) {
			return result, err
		}

		c.BaseModel = types.GetDefaultBaseModel(ctx)
		for _, a := range c.ProcessorAccounts {
			if a != nil {
				a.CustomerID = c.ID
			}
		}
		if err := repo.Create(ctx, c); err != nil {
			return result, err
		}
		log.Infow("seeded customer", "customer_id", c.ID, "accounts", len(c.ProcessorAccounts))
		result.Created++
	}
	return result, nil
}
