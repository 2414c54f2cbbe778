package handler

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/debitsync/internal/api/dto"
	"github.com/flexprice/debitsync/internal/config"
	"github.com/flexprice/debitsync/internal/domain/deadletter"
	"github.com/flexprice/debitsync/internal/interfaces"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/pubsub"
	pubsubRouter "github.com/flexprice/debitsync/internal/pubsub/router"
	"github.com/flexprice/debitsync/internal/sentry"
	"github.com/flexprice/debitsync/internal/service"
	"github.com/flexprice/debitsync/internal/types"
)

const (
	outcomeMalformed = "malformed_message"
	outcomeRejected  = "rejected"
)

// Handler consumes the reconciliation and emission topics
type Handler interface {
	RegisterHandler(router *pubsubRouter.Router)
}

type handler struct {
	pubSub         pubsub.PubSub
	config         *config.Configuration
	reconciliation interfaces.ReconciliationService
	emitter        interfaces.InvoiceEmitter
	deadLetters    service.DeadLetterService
	logger         *logger.Logger
	sentry         *sentry.Service
}

func NewHandler(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	reconciliation interfaces.ReconciliationService,
	emitter interfaces.InvoiceEmitter,
	deadLetters service.DeadLetterService,
	logger *logger.Logger,
	sentry *sentry.Service,
) Handler {
	return &handler{
		pubSub:         pubSub,
		config:         cfg,
		reconciliation: reconciliation,
		emitter:        emitter,
		deadLetters:    deadLetters,
		logger:         logger,
		sentry:         sentry,
	}
}

// RegisterHandler subscribes both handlers. Only emission is retried by the
// router; reconciliation failures go straight to the dead-letter store.
func (h *handler) RegisterHandler(router *pubsubRouter.Router) {
	router.AddNoPublishHandler(
		"reconciliation_handler",
		h.config.Reconciliation.Topic,
		h.pubSub,
		h.processReconciliationMessage,
	)
	router.AddNoPublishHandler(
		"emission_handler",
		h.config.Outbox.Topic,
		h.pubSub,
		h.processEmissionMessage,
		router.RetryMiddleware(),
	)
}

func (h *handler) messageContext(msg *message.Message, topic string) (context.Context, *sentry.SpanFinisher) {
	ctx := msg.Context()
	if requestID := msg.Metadata.Get(pubsub.MetadataRequestID); requestID != "" {
		ctx = types.SetRequestID(ctx, requestID)
	}
	ctx = types.SetUserID(ctx, types.SystemUserID)

	tx, ctx := h.sentry.StartConsumerTransaction(ctx, topic, msg.UUID)
	return ctx, &sentry.SpanFinisher{Span: tx}
}

func (h *handler) processReconciliationMessage(msg *message.Message) (err error) {
	ctx, finisher := h.messageContext(msg, h.config.Reconciliation.Topic)
	defer func() { finisher.Finish(err) }()

	var event dto.ReconciliationEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		h.logger.Errorw("failed to unmarshal reconciliation event",
			"error", err,
			"message_uuid", msg.UUID,
		)
		return h.deadLetters.Record(ctx, &deadletter.Entry{
			Kind:    types.DeadLetterKindReconciliation,
			EventID: msg.Metadata.Get(pubsub.MetadataEventID),
			Outcome: outcomeMalformed,
			Error:   err.Error(),
			Payload: json.RawMessage(msg.Payload),
		})
	}

	outcome, err := h.reconciliation.Reconcile(ctx, &event)
	if err == nil || outcome == nil || !outcome.Kind.IsFailure() {
		return nil
	}

	// acknowledged either way; the dead-letter store is the retry path
	return h.deadLetters.RecordOutcome(ctx, msg.Payload, outcome)
}

func (h *handler) processEmissionMessage(msg *message.Message) (err error) {
	ctx, finisher := h.messageContext(msg, h.config.Outbox.Topic)
	defer func() { finisher.Finish(err) }()

	var req dto.EmissionRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		h.logger.Errorw("failed to unmarshal emission request",
			"error", err,
			"message_uuid", msg.UUID,
		)
		return h.deadLetters.Record(ctx, &deadletter.Entry{
			Kind:    types.DeadLetterKindEmission,
			EventID: msg.Metadata.Get(pubsub.MetadataEventID),
			Outcome: outcomeMalformed,
			Error:   err.Error(),
			Payload: json.RawMessage(msg.Payload),
		})
	}

	_, err = h.emitter.Deliver(ctx, &req)
	if err == nil {
		return nil
	}

	if pubsubRouter.ShouldRetry(h.logger, err) {
		return err
	}

	h.sentry.CaptureWithTags(err, map[string]string{
		"event_id":  req.EventID,
		"credit_id": req.Metadata.CreditID,
		"outcome":   string(types.OutcomeEmissionFailure),
	})
	return h.deadLetters.Record(ctx, &deadletter.Entry{
		Kind:       types.DeadLetterKindEmission,
		EventID:    req.EventID,
		CustomerID: req.Metadata.CustomerID,
		CreditID:   req.Metadata.CreditID,
		Outcome:    outcomeRejected,
		Error:      err.Error(),
		Payload:    json.RawMessage(msg.Payload),
	})
}
