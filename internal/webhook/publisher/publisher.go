package publisher

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/debitsync/internal/api/dto"
	"github.com/flexprice/debitsync/internal/config"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/pubsub"
	"github.com/flexprice/debitsync/internal/types"
)

// EventPublisher queues verified processor events for reconciliation
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *dto.ReconciliationEvent) (string, error)
}

type eventPublisher struct {
	pubSub pubsub.PubSub
	config *config.ReconciliationConfig
	logger *logger.Logger
}

func NewPublisher(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	logger *logger.Logger,
) EventPublisher {
	return &eventPublisher{
		pubSub: pubSub,
		config: &cfg.Reconciliation,
		logger: logger,
	}
}

func (p *eventPublisher) PublishEvent(ctx context.Context, event *dto.ReconciliationEvent) (string, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to encode event").
			Mark(ierr.ErrSystem)
	}

	msg := message.NewMessage(types.GenerateUUID(), payload)
	msg.Metadata.Set(pubsub.MetadataEventID, event.EventID)
	if requestID := types.GetRequestID(ctx); requestID != "" {
		msg.Metadata.Set(pubsub.MetadataRequestID, requestID)
	}

	p.logger.Debugw("publishing reconciliation event",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"customer", event.ExternalCustomerID,
		"topic", p.config.Topic,
	)

	if err := p.pubSub.Publish(ctx, p.config.Topic, msg); err != nil {
		p.logger.Errorw("failed to publish reconciliation event",
			"error", err,
			"event_id", event.EventID,
		)
		return "", ierr.WithError(err).
			WithHint("Failed to queue event for reconciliation").
			Mark(ierr.ErrSystem)
	}

	p.logger.Infow("queued reconciliation event",
		"event_id", event.EventID,
		"message_id", msg.UUID,
	)
	return msg.UUID, nil
}
