package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/flexprice/debitsync/internal/domain/credit"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/postgres"
	"github.com/flexprice/debitsync/internal/sentry"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/lib/pq"
)

const creditColumns = `id, customer_id, invoiced_amount, paid_amount, promo_amount, processor,
	processor_reference, type, reference_number, cycle_start, cycle_end, idempotency_key,
	status, created_at, updated_at, created_by, updated_by`

type creditRepository struct {
	db     *postgres.DB
	logger *logger.Logger
	sentry *sentry.Service
}

func NewCreditRepository(db *postgres.DB, logger *logger.Logger, sentry *sentry.Service) credit.Repository {
	return &creditRepository{db: db, logger: logger, sentry: sentry}
}

func (r *creditRepository) ListByCustomerInWindow(ctx context.Context, customerID string, start, end time.Time) ([]*credit.LedgerCredit, error) {
	ctx, span := r.sentry.StartRepositorySpan(ctx, "credit", "list_by_customer_in_window", map[string]interface{}{
		"customer_id": customerID,
	})

	var credits []*credit.LedgerCredit
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &credits, `
		SELECT `+creditColumns+`
		FROM ledger_credits
		WHERE customer_id = $1
			AND status = $2
			AND created_at >= $3
			AND created_at < $4
		ORDER BY created_at`, customerID, types.StatusPublished, start, end)
	span.Finish(err)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list ledger credits in window").
			WithReportableDetails(map[string]interface{}{"customer_id": customerID}).
			Mark(ierr.ErrDatabase)
	}
	return credits, nil
}

func (r *creditRepository) ListByCustomer(ctx context.Context, customerID string) ([]*credit.LedgerCredit, error) {
	ctx, span := r.sentry.StartRepositorySpan(ctx, "credit", "list_by_customer", map[string]interface{}{
		"customer_id": customerID,
	})

	var credits []*credit.LedgerCredit
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &credits, `
		SELECT `+creditColumns+`
		FROM ledger_credits
		WHERE customer_id = $1 AND status = $2
		ORDER BY created_at`, customerID, types.StatusPublished)
	span.Finish(err)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list ledger credits").
			WithReportableDetails(map[string]interface{}{"customer_id": customerID}).
			Mark(ierr.ErrDatabase)
	}
	return credits, nil
}

func (r *creditRepository) GetByIdempotencyKey(ctx context.Context, key string) (*credit.LedgerCredit, error) {
	ctx, span := r.sentry.StartRepositorySpan(ctx, "credit", "get_by_idempotency_key", map[string]interface{}{
		"idempotency_key": key,
	})

	var c credit.LedgerCredit
	err := r.db.GetQuerier(ctx).GetContext(ctx, &c, `
		SELECT `+creditColumns+`
		FROM ledger_credits
		WHERE idempotency_key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			span.Finish(nil)
			return nil, ierr.NewError("ledger credit not found").
				WithHint("No credit with this idempotency key").
				WithReportableDetails(map[string]interface{}{"idempotency_key": key}).
				Mark(ierr.ErrNotFound)
		}
		span.Finish(err)
		return nil, ierr.WithError(err).
			WithHint("Failed to get ledger credit").
			Mark(ierr.ErrDatabase)
	}
	span.Finish(nil)
	return &c, nil
}

// CreateIfAbsent relies on the unique index on idempotency_key; a conflicting
// insert affects zero rows instead of failing.
func (r *creditRepository) CreateIfAbsent(ctx context.Context, c *credit.LedgerCredit) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, err
	}

	ctx, span := r.sentry.StartRepositorySpan(ctx, "credit", "create_if_absent", map[string]interface{}{
		"credit_id":   c.ID,
		"customer_id": c.CustomerID,
	})

	result, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, `
		INSERT INTO ledger_credits (`+creditColumns+`) VALUES (
			:id, :customer_id, :invoiced_amount, :paid_amount, :promo_amount, :processor,
			:processor_reference, :type, :reference_number, :cycle_start, :cycle_end, :idempotency_key,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)
		ON CONFLICT (idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING`, c)
	if err != nil {
		span.Finish(err)
		if isUniqueViolation(err) {
			return false, ierr.WithError(err).
				WithHint("Ledger credit already exists").
				WithReportableDetails(map[string]interface{}{"credit_id": c.ID}).
				Mark(ierr.ErrAlreadyExists)
		}
		return false, ierr.WithError(err).
			WithHint("Failed to create ledger credit").
			WithReportableDetails(map[string]interface{}{"customer_id": c.CustomerID}).
			Mark(ierr.ErrDatabase)
	}

	affected, err := result.RowsAffected()
	span.Finish(err)
	if err != nil {
		return false, ierr.WithError(err).WithHint("Failed to read insert result").Mark(ierr.ErrDatabase)
	}

	r.logger.Debugw("insert ledger credit", "credit_id", c.ID, "customer_id", c.CustomerID, "created", affected == 1)
	return affected == 1, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
