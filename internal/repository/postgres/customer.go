package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/flexprice/debitsync/internal/domain/customer"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/postgres"
	"github.com/flexprice/debitsync/internal/sentry"
	"github.com/flexprice/debitsync/internal/types"
)

type customerRepository struct {
	db     *postgres.DB
	logger *logger.Logger
	sentry *sentry.Service
}

func NewCustomerRepository(db *postgres.DB, logger *logger.Logger, sentry *sentry.Service) customer.Repository {
	return &customerRepository{db: db, logger: logger, sentry: sentry}
}

// Create inserts the customer and its processor accounts in one transaction
func (r *customerRepository) Create(ctx context.Context, c *customer.Customer) error {
	if err := c.Validate(); err != nil {
		return err
	}

	ctx, span := r.sentry.StartRepositorySpan(ctx, "customer", "create", map[string]interface{}{
		"customer_id": c.ID,
	})

	err := r.db.WithTx(ctx, func(ctx context.Context) error {
		q := r.db.GetQuerier(ctx)
		_, err := q.NamedExecContext(ctx, `
			INSERT INTO customers (
				id, name, email, status, created_at, updated_at, created_by, updated_by
			) VALUES (
				:id, :name, :email, :status, :created_at, :updated_at, :created_by, :updated_by
			)`, c)
		if err != nil {
			return err
		}

		for _, a := range c.ProcessorAccounts {
			a.CustomerID = c.ID
			if a.ID == "" {
				a.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PROCESSOR_ACCOUNT)
			}
			_, err := q.NamedExecContext(ctx, `
				INSERT INTO customer_processor_accounts (
					id, customer_id, processor, external_customer_id, billing_anchor_day
				) VALUES (
					:id, :customer_id, :processor, :external_customer_id, :billing_anchor_day
				)`, a)
			if err != nil {
				return err
			}
		}
		return nil
	})
	span.Finish(err)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("Customer or processor account already exists").
				WithReportableDetails(map[string]interface{}{"customer_id": c.ID}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create customer").
			Mark(ierr.ErrDatabase)
	}

	r.logger.Debugw("created customer", "customer_id", c.ID, "accounts", len(c.ProcessorAccounts))
	return nil
}

func (r *customerRepository) Get(ctx context.Context, id string) (*customer.Customer, error) {
	ctx, span := r.sentry.StartRepositorySpan(ctx, "customer", "get", map[string]interface{}{
		"customer_id": id,
	})

	c, err := r.load(ctx, id)
	span.Finish(err)
	return c, err
}

func (r *customerRepository) GetByProcessorCustomerID(ctx context.Context, processor types.PaymentProcessor, externalCustomerID string) (*customer.Customer, error) {
	ctx, span := r.sentry.StartRepositorySpan(ctx, "customer", "get_by_processor_customer_id", map[string]interface{}{
		"processor":            processor,
		"external_customer_id": externalCustomerID,
	})

	var customerID string
	err := r.db.GetQuerier(ctx).GetContext(ctx, &customerID, `
		SELECT a.customer_id
		FROM customer_processor_accounts a
		JOIN customers c ON c.id = a.customer_id
		WHERE a.processor = $1
			AND a.external_customer_id = $2
			AND c.status = $3`,
		processor, externalCustomerID, types.StatusPublished)
	if err != nil {
		span.Finish(err)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("customer not found").
				WithHintf("No customer is linked to %s customer %s", processor, externalCustomerID).
				WithReportableDetails(map[string]interface{}{
					"processor":            processor,
					"external_customer_id": externalCustomerID,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to resolve customer").
			Mark(ierr.ErrDatabase)
	}

	c, err := r.load(ctx, customerID)
	span.Finish(err)
	return c, err
}

func (r *customerRepository) load(ctx context.Context, id string) (*customer.Customer, error) {
	q := r.db.GetQuerier(ctx)

	var c customer.Customer
	err := q.GetContext(ctx, &c, `
		SELECT id, name, email, status, created_at, updated_at, created_by, updated_by
		FROM customers
		WHERE id = $1 AND status = $2`, id, types.StatusPublished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("customer not found").
				WithHint("Customer not found").
				WithReportableDetails(map[string]interface{}{"customer_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).WithHint("Failed to get customer").Mark(ierr.ErrDatabase)
	}

	err = q.SelectContext(ctx, &c.ProcessorAccounts, `
		SELECT id, customer_id, processor, external_customer_id, billing_anchor_day
		FROM customer_processor_accounts
		WHERE customer_id = $1
		ORDER BY processor`, id)
	if err != nil {
		return nil, ierr.WithError(err).WithHint("Failed to get processor accounts").Mark(ierr.ErrDatabase)
	}
	return &c, nil
}
