package webhook

import (
	"context"

	"github.com/flexprice/debitsync/internal/config"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/pubsub"
	"github.com/flexprice/debitsync/internal/pubsub/kafka"
	"github.com/flexprice/debitsync/internal/pubsub/memory"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/flexprice/debitsync/internal/webhook/handler"
	"github.com/flexprice/debitsync/internal/webhook/publisher"
	"go.uber.org/fx"
)

// Module provides the queueing side of the webhook pipeline
var Module = fx.Options(
	fx.Provide(
		providePubSub,
		publisher.NewPublisher,
		handler.NewHandler,
	),
)

func providePubSub(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	logger *logger.Logger,
) (pubsub.PubSub, error) {
	var (
		ps  pubsub.PubSub
		err error
	)
	switch cfg.Outbox.PubSub {
	case types.KafkaPubSub:
		ps, err = kafka.NewPubSub(cfg, logger)
		if err != nil {
			return nil, err
		}
	default:
		ps = memory.NewPubSub(logger)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return ps.Close()
		},
	})
	return ps, nil
}
