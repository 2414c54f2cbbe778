package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/debitsync/internal/api/dto"
	"github.com/flexprice/debitsync/internal/domain/billingcycle"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/interfaces"
	"github.com/flexprice/debitsync/internal/metrics"
	"github.com/flexprice/debitsync/internal/pubsub"
	"github.com/flexprice/debitsync/internal/types"
)

const usageChargeLabel = "Usage Charge"

type invoiceEmitter struct {
	ServiceParams
}

func NewInvoiceEmitter(params ServiceParams) interfaces.InvoiceEmitter {
	return &invoiceEmitter{ServiceParams: params}
}

// InvoiceItemDescription renders "Usage Charge - Feb, 28 - Mar, 28", with the
// optional product prefix in front.
func InvoiceItemDescription(prefix string, cycle billingcycle.BillingCycle) string {
	description := usageChargeLabel + " - " + cycle.Description()
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		return prefix + " " + description
	}
	return description
}

// Submit hands one invoice item to the processor. In outbox mode the request is
// published to the emission topic and Submit returns once it is queued. In inline
// mode the gateway is called directly.
func (s *invoiceEmitter) Submit(ctx context.Context, req *dto.EmissionRequest) (*dto.EmissionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	description := InvoiceItemDescription(s.Config.Stripe.ProductPrefix, req.Cycle)
	mode := s.Config.Outbox.Mode

	switch mode {
	case types.EmissionModeInline:
		item, err := s.Deliver(ctx, req)
		if err != nil {
			return nil, err
		}
		return &dto.EmissionResult{
			Mode:          mode,
			InvoiceItemID: item.ID,
			Description:   description,
		}, nil
	default:
		messageID, err := s.enqueue(ctx, req)
		if err != nil {
			s.Metrics.IncEmission(types.EmissionModeOutbox, metrics.EmissionResultFailed)
			return nil, err
		}
		s.Metrics.IncEmission(types.EmissionModeOutbox, metrics.EmissionResultQueued)
		return &dto.EmissionResult{
			Mode:        types.EmissionModeOutbox,
			MessageID:   messageID,
			Description: description,
		}, nil
	}
}

func (s *invoiceEmitter) enqueue(ctx context.Context, req *dto.EmissionRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to encode emission request").
			Mark(ierr.ErrSystem)
	}

	msg := message.NewMessage(types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EMISSION), payload)
	msg.Metadata.Set(pubsub.MetadataEventID, req.EventID)
	msg.Metadata.Set(pubsub.MetadataCustomerID, req.Metadata.CustomerID)
	msg.Metadata.Set(pubsub.MetadataCreditID, req.Metadata.CreditID)
	if requestID := types.GetRequestID(ctx); requestID != "" {
		msg.Metadata.Set(pubsub.MetadataRequestID, requestID)
	}

	if err := s.PubSub.Publish(ctx, s.Config.Outbox.Topic, msg); err != nil {
		s.Logger.Errorw("failed to enqueue invoice item",
			"credit_id", req.Metadata.CreditID,
			"topic", s.Config.Outbox.Topic,
			"error", err,
		)
		return "", ierr.WithError(err).
			WithHint("Failed to queue invoice item").
			Mark(ierr.ErrSystem)
	}

	s.Logger.WithContext(ctx).Infow("queued invoice item",
		"credit_id", req.Metadata.CreditID,
		"message_id", msg.UUID,
		"total_amount", req.TotalAmount.String(),
	)
	return msg.UUID, nil
}

// Deliver calls the gateway. The processor idempotency key is derived from the
// credit id, so delivering the same request twice creates one item.
func (s *invoiceEmitter) Deliver(ctx context.Context, req *dto.EmissionRequest) (*dto.InvoiceItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(types.SetEventID(ctx, req.EventID), s.Config.Reconciliation.EmissionTimeout)
	defer cancel()

	log := s.Logger.WithContext(ctx)
	mode := s.Config.Outbox.Mode
	item, err := s.Gateway.CreateInvoiceItem(ctx, &dto.InvoiceItemRequest{
		ExternalCustomerID: req.ExternalCustomerID,
		Amount:             req.TotalAmount,
		Currency:           req.Currency,
		Description:        InvoiceItemDescription(s.Config.Stripe.ProductPrefix, req.Cycle),
		Metadata:           req.Metadata.ToMap(),
		IdempotencyKey:     s.IdempotencyGenerator.InvoiceItemKey(req.Metadata.CreditID),
	})
	if err != nil {
		s.Metrics.IncEmission(mode, metrics.EmissionResultFailed)
		if ierr.IsTimeout(err) {
			s.Metrics.IncStepTimeout(metrics.StepEmission)
		}
		log.Errorw("failed to deliver invoice item",
			"credit_id", req.Metadata.CreditID,
			"customer", req.ExternalCustomerID,
			"error", err,
		)
		return nil, err
	}

	s.Metrics.IncEmission(mode, metrics.EmissionResultDelivered)
	log.Infow("delivered invoice item",
		"credit_id", req.Metadata.CreditID,
		"invoice_item_id", item.ID,
	)
	return item, nil
}

// withTimeout leaves ctx untouched for non-positive durations
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
