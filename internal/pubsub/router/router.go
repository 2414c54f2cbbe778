package router

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/flexprice/debitsync/internal/config"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/sentry"
)

// PoisonTopic is the topic name recorded on messages that exhausted their handler
const PoisonTopic = "debitsync.poison"

// Router manages all message routing
type Router struct {
	router *message.Router
	logger *logger.Logger
	sentry *sentry.Service
	config *config.OutboxConfig
}

// NewRouter creates a new message router. Messages whose handler still fails after
// the handler-level middlewares are forwarded to the poison publisher.
func NewRouter(cfg *config.Configuration, logger *logger.Logger, sentry *sentry.Service, poison message.Publisher) (*Router, error) {
	router, err := message.NewRouter(
		message.RouterConfig{CloseTimeout: 30 * time.Second},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		return nil, err
	}

	poisonQueue, err := middleware.PoisonQueue(poison, PoisonTopic)
	if err != nil {
		return nil, err
	}

	// Add middleware in correct order
	router.AddMiddleware(
		poisonQueue,
		middleware.Recoverer,     // Recover from panics
		middleware.CorrelationID, // Add correlation IDs
	)

	return &Router{
		router: router,
		logger: logger,
		sentry: sentry,
		config: &cfg.Outbox,
	}, nil
}

// RetryMiddleware retries a failing handler with exponential backoff
// using the outbox retry settings.
func (r *Router) RetryMiddleware() message.HandlerMiddleware {
	return middleware.Retry{
		MaxRetries:          r.config.MaxRetries,
		InitialInterval:     r.config.InitialInterval,
		MaxInterval:         r.config.MaxInterval,
		Multiplier:          2,
		RandomizationFactor: 0.5,
		Logger:              watermill.NewStdLogger(false, false),
		OnRetryHook: func(retryNum int, delay time.Duration) {
			r.logger.Infow("retrying message",
				"retry_number", retryNum,
				"max_retries", r.config.MaxRetries,
				"delay", delay,
			)
		},
	}.Middleware
}

// AddNoPublishHandler adds a handler that doesn't publish messages
func (r *Router) AddNoPublishHandler(
	handlerName string,
	topicName string,
	subscriber message.Subscriber,
	handlerFunc func(msg *message.Message) error,
	middlewares ...message.HandlerMiddleware,
) {
	handler := r.router.AddNoPublisherHandler(
		handlerName,
		topicName,
		subscriber,
		func(msg *message.Message) error {
			err := handlerFunc(msg)
			if err != nil {
				r.logger.Errorw("handler failed",
					"handler", handlerName,
					"error", err,
					"correlation_id", middleware.MessageCorrelationID(msg),
					"message_uuid", msg.UUID,
				)
			}
			return err
		},
	)

	for _, middleware := range middlewares {
		handler.AddMiddleware(middleware)
	}
}

// Running is closed once all handlers are subscribed
func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

// Run starts the router
func (r *Router) Run() error {
	r.logger.Info("starting router")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	return r.router.Run(ctx)
}

// Close gracefully shuts down the router
func (r *Router) Close() error {
	r.logger.Info("closing router")
	return r.router.Close()
}
