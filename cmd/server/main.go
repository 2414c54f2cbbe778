package main

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/flexprice/debitsync/internal/api"
	v1 "github.com/flexprice/debitsync/internal/api/v1"
	"github.com/flexprice/debitsync/internal/cache"
	"github.com/flexprice/debitsync/internal/clickhouse"
	"github.com/flexprice/debitsync/internal/config"
	"github.com/flexprice/debitsync/internal/interfaces"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/metrics"
	"github.com/flexprice/debitsync/internal/migrations"
	"github.com/flexprice/debitsync/internal/postgres"
	pubsubRouter "github.com/flexprice/debitsync/internal/pubsub/router"
	"github.com/flexprice/debitsync/internal/repository"
	boltRepo "github.com/flexprice/debitsync/internal/repository/bolt"
	"github.com/flexprice/debitsync/internal/sentry"
	"github.com/flexprice/debitsync/internal/service"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/flexprice/debitsync/internal/validator"
	"github.com/flexprice/debitsync/internal/webhook"
	"github.com/flexprice/debitsync/internal/webhook/handler"
	"github.com/flexprice/debitsync/internal/webhook/publisher"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	stripeIntegration "github.com/flexprice/debitsync/internal/integration/stripe"
)

func init() {
	// Billing cycle boundaries are computed in UTC
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Monitoring
			sentry.NewSentryService,
			metrics.NewMetrics,

			// Cache
			cache.NewInMemoryCache,

			// Postgres
			postgres.NewDB,

			// Clickhouse
			provideClickHouse,

			// Dead letters
			boltRepo.NewDeadLetterStore,

			// Stripe
			stripeIntegration.NewClient,
			stripeIntegration.NewInvoiceGateway,
			stripeIntegration.NewEventVerifier,

			// Repositories
			repository.NewCustomerRepository,
			repository.NewDebitRepository,
			repository.NewCreditRepository,

			// PubSub
			providePubSubRouter,
		),
	)

	// Webhook module (must be initialised before services)
	opts = append(opts, webhook.Module)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewLedgerService,
			service.NewInvoiceEmitter,
			service.NewReconciliationService,
			service.NewDeadLetterService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			runLocalMigrations,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

// provideClickHouse only opens a connection when usage debits live in ClickHouse
func provideClickHouse(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	sentry *sentry.Service,
	logger *logger.Logger,
) (*clickhouse.ClickHouseStore, error) {
	if cfg.Ledger.DebitStore != types.DebitStoreClickHouse {
		return nil, nil
	}
	return clickhouse.NewClickHouseStore(lc, cfg, sentry, logger)
}

func providePubSubRouter(
	cfg *config.Configuration,
	logger *logger.Logger,
	sentry *sentry.Service,
	deadLetters service.DeadLetterService,
) (*pubsubRouter.Router, error) {
	return pubsubRouter.NewRouter(cfg, logger, sentry, deadLetters.PoisonSink())
}

func provideHandlers(
	cfg *config.Configuration,
	logger *logger.Logger,
	verifier interfaces.EventVerifier,
	eventPublisher publisher.EventPublisher,
	deadLetterService service.DeadLetterService,
) api.Handlers {
	return api.Handlers{
		Health:     v1.NewHealthHandler(cfg),
		Debits:     v1.NewDebitsHandler(verifier, eventPublisher, logger),
		DeadLetter: v1.NewDeadLetterHandler(deadLetterService, logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, logger *logger.Logger, m *metrics.Metrics) *gin.Engine {
	return api.NewRouter(handlers, cfg, logger, m)
}

type migrationParams struct {
	fx.In

	Config     *config.Configuration
	DB         *postgres.DB
	ClickHouse *clickhouse.ClickHouseStore
	Logger     *logger.Logger
}

// runLocalMigrations brings the schema up to date when running everything in one process
func runLocalMigrations(p migrationParams) error {
	if p.Config.Deployment.Mode != types.ModeLocal {
		return nil
	}
	if err := migrations.RunPostgres(p.DB.DB.DB, migrations.Up, p.Logger); err != nil {
		return err
	}
	if p.ClickHouse != nil {
		return migrations.RunClickHouse(context.Background(), p.ClickHouse.GetConn(), p.Logger)
	}
	return nil
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	router *pubsubRouter.Router,
	h handler.Handler,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		startMessageRouter(lc, router, h, log)
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
		if cfg.Outbox.PubSub == types.MemoryPubSub {
			// an in-process queue has no other consumer
			startMessageRouter(lc, router, h, log)
		}
	case types.ModeConsumer:
		startMessageRouter(lc, router, h, log)
	case types.ModeAWSLambdaAPI:
		startMessageRouter(lc, router, h, log)
		startAWSLambdaAPI(lc, r, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	log.Info("Registering API server start hook")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}

func startAWSLambdaAPI(lc fx.Lifecycle, r *gin.Engine, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting lambda handler")
			ginLambda := ginadapter.New(r)
			go lambda.Start(ginLambda.ProxyWithContext)
			return nil
		},
	})
}

func startMessageRouter(
	lc fx.Lifecycle,
	router *pubsubRouter.Router,
	h handler.Handler,
	logger *logger.Logger,
) {
	// Register handlers before starting the router
	h.RegisterHandler(router)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting message router")
			go func() {
				if err := router.Run(); err != nil {
					logger.Errorw("message router failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping message router")
			return router.Close()
		},
	})
}
