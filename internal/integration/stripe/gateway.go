package stripe

import (
	"context"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/flexprice/debitsync/internal/api/dto"
	"github.com/flexprice/debitsync/internal/config"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/interfaces"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/sentry"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"golang.org/x/time/rate"
)

var centsPerUnit = decimal.NewFromInt(100)

// InvoiceGateway creates invoice items on Stripe
type InvoiceGateway struct {
	client  *Client
	unit    types.AmountUnit
	limiter *rate.Limiter
	sentry  *sentry.Service
	logger  *logger.Logger
}

// NewInvoiceGateway creates a rate limited invoice item gateway
func NewInvoiceGateway(client *Client, cfg *config.Configuration, sentry *sentry.Service, logger *logger.Logger) interfaces.InvoiceGateway {
	return &InvoiceGateway{
		client:  client,
		unit:    cfg.Ledger.AmountUnit,
		limiter: newLimiter(cfg.Stripe.RateLimit, cfg.Stripe.RateBurst),
		sentry:  sentry,
		logger:  logger,
	}
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// ToStripeAmount converts a ledger amount to Stripe's integer minor units.
// Major amounts round half away from zero; minor amounts must be whole.
func ToStripeAmount(amount decimal.Decimal, unit types.AmountUnit) (int64, error) {
	if unit == types.AmountUnitMajor {
		return amount.Mul(centsPerUnit).Round(0).IntPart(), nil
	}
	if !amount.IsInteger() {
		return 0, ierr.NewError("fractional minor unit amount").
			WithHintf("Amount %s is not a whole number of minor units", amount.String()).
			WithReportableDetails(map[string]any{
				"amount": amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return amount.IntPart(), nil
}

// FromStripeAmount converts Stripe minor units back to the ledger unit
func FromStripeAmount(amount int64, unit types.AmountUnit) decimal.Decimal {
	if unit == types.AmountUnitMajor {
		return decimal.New(amount, -2)
	}
	return decimal.NewFromInt(amount)
}

// CreateInvoiceItem creates a pending invoice item that Stripe attaches to the
// customer's next invoice. The idempotency key makes redelivery safe.
func (g *InvoiceGateway) CreateInvoiceItem(ctx context.Context, req *dto.InvoiceItemRequest) (item *dto.InvoiceItem, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	span, ctx := g.sentry.StartStripeSpan(ctx, "stripe.invoice_items.create", map[string]interface{}{
		"customer": req.ExternalCustomerID,
	})
	finisher := &sentry.SpanFinisher{Span: span}
	defer func() { finisher.Finish(err) }()

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Stripe rate limiter wait aborted").
			Mark(ierr.ErrTimeout)
	}

	amountCents, err := ToStripeAmount(req.Amount, g.unit)
	if err != nil {
		return nil, err
	}
	params := &stripe.InvoiceItemCreateParams{
		Customer:    stripe.String(req.ExternalCustomerID),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String(req.Description),
		Metadata:    req.Metadata,
	}
	params.Amount = stripe.Int64(amountCents)
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	g.logger.Debugw("creating stripe invoice item",
		"customer", req.ExternalCustomerID,
		"amount_cents", amountCents,
		"currency", req.Currency,
		"idempotency_key", req.IdempotencyKey,
	)

	invoiceItem, err := g.client.api.V1InvoiceItems.Create(ctx, params)
	if err != nil {
		return nil, mapStripeError(err, "failed to create invoice item in Stripe")
	}

	g.logger.Infow("created stripe invoice item",
		"invoice_item_id", invoiceItem.ID,
		"customer", req.ExternalCustomerID,
		"amount_cents", invoiceItem.Amount,
	)

	return &dto.InvoiceItem{
		ID:                 invoiceItem.ID,
		ExternalCustomerID: req.ExternalCustomerID,
		Amount:             FromStripeAmount(invoiceItem.Amount, g.unit),
		Currency:           string(invoiceItem.Currency),
		Description:        invoiceItem.Description,
	}, nil
}

// mapStripeError marks throttling and server errors as retryable HTTP client
// errors and the remaining API errors as validation failures.
func mapStripeError(err error, message string) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		if errors.Is(err, context.DeadlineExceeded) {
			return ierr.WithError(err).WithHint(message).Mark(ierr.ErrTimeout)
		}
		return ierr.WithError(err).WithHint(message).Mark(ierr.ErrHTTPClient)
	}

	details := map[string]any{
		"stripe_status":     stripeErr.HTTPStatusCode,
		"stripe_code":       string(stripeErr.Code),
		"stripe_request_id": stripeErr.RequestID,
	}

	switch {
	case stripeErr.HTTPStatusCode == http.StatusTooManyRequests,
		stripeErr.HTTPStatusCode >= http.StatusInternalServerError,
		stripeErr.HTTPStatusCode == 0:
		return ierr.WithError(err).
			WithHint(message).
			WithReportableDetails(details).
			Mark(ierr.ErrHTTPClient)
	default:
		return ierr.WithError(err).
			WithHintf("%s: %s", message, stripeErr.Msg).
			WithReportableDetails(details).
			Mark(ierr.ErrValidation)
	}
}
