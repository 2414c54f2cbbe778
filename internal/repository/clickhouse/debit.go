package clickhouse

import (
	"context"
	"time"

	"github.com/flexprice/debitsync/internal/clickhouse"
	"github.com/flexprice/debitsync/internal/domain/debit"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/shopspring/decimal"
)

// FINAL collapses rows the ReplacingMergeTree has not merged yet, so a
// re-sent debit is summed once.
const listDebitsInWindowQuery = `
	SELECT id, customer_id, toString(amount), created_at
	FROM usage_debits FINAL
	WHERE customer_id = ?
		AND created_at >= ?
		AND created_at < ?
	ORDER BY created_at`

type DebitRepository struct {
	store  *clickhouse.ClickHouseStore
	logger *logger.Logger
}

func NewDebitRepository(store *clickhouse.ClickHouseStore, logger *logger.Logger) debit.Repository {
	return &DebitRepository{
		store:  store,
		logger: logger,
	}
}

// ListByCustomerInWindow reads usage_debits with start <= created_at < end.
// Amounts are stored as Decimal(18,8) and read back as strings to avoid float rounding.
func (r *DebitRepository) ListByCustomerInWindow(ctx context.Context, customerID string, start, end time.Time) ([]*debit.UsageDebit, error) {
	ctx, span := r.store.WithSpan(ctx, "debit.list_by_customer_in_window", map[string]interface{}{
		"customer_id": customerID,
	})

	rows, err := r.store.GetConn().Query(ctx, listDebitsInWindowQuery, customerID, start.UTC(), end.UTC())
	if err != nil {
		span.Finish(err)
		return nil, ierr.WithError(err).
			WithHint("Failed to query usage debits").
			WithReportableDetails(map[string]interface{}{
				"customer_id": customerID,
			}).
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var debits []*debit.UsageDebit
	for rows.Next() {
		var d debit.UsageDebit
		var amount string
		if err := rows.Scan(&d.ID, &d.CustomerID, &amount, &d.CreatedAt); err != nil {
			span.Finish(err)
			return nil, ierr.WithError(err).
				WithHint("Failed to scan usage debit").
				Mark(ierr.ErrDatabase)
		}
		if d.Amount, err = decimal.NewFromString(amount); err != nil {
			span.Finish(err)
			return nil, ierr.WithError(err).
				WithHint("Usage debit amount is not a decimal").
				WithReportableDetails(map[string]interface{}{
					"debit_id": d.ID,
					"amount":   amount,
				}).
				Mark(ierr.ErrDatabase)
		}
		debits = append(debits, &d)
	}
	if err := rows.Err(); err != nil {
		span.Finish(err)
		return nil, ierr.WithError(err).WithHint("Failed to read usage debits").Mark(ierr.ErrDatabase)
	}

	span.Finish(nil)
	r.logger.Debugw("listed usage debits from clickhouse", "customer_id", customerID, "count", len(debits))
	return debits, nil
}
