package postgres

import (
	"context"
	"time"

	"github.com/flexprice/debitsync/internal/domain/debit"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/postgres"
	"github.com/flexprice/debitsync/internal/sentry"
)

type debitRepository struct {
	db     *postgres.DB
	logger *logger.Logger
	sentry *sentry.Service
}

func NewDebitRepository(db *postgres.DB, logger *logger.Logger, sentry *sentry.Service) debit.Repository {
	return &debitRepository{db: db, logger: logger, sentry: sentry}
}

func (r *debitRepository) ListByCustomerInWindow(ctx context.Context, customerID string, start, end time.Time) ([]*debit.UsageDebit, error) {
	ctx, span := r.sentry.StartRepositorySpan(ctx, "debit", "list_by_customer_in_window", map[string]interface{}{
		"customer_id": customerID,
	})

	var debits []*debit.UsageDebit
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &debits, `
		SELECT id, customer_id, amount, created_at
		FROM usage_debits
		WHERE customer_id = $1
			AND created_at >= $2
			AND created_at < $3
		ORDER BY created_at`, customerID, start, end)
	span.Finish(err)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list usage debits").
			WithReportableDetails(map[string]interface{}{
				"customer_id": customerID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return debits, nil
}
