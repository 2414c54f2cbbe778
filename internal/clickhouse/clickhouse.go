package clickhouse

import (
	"context"
	"fmt"
	"time"

	clickhouse_go "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/cenkalti/backoff/v4"
	"github.com/flexprice/debitsync/internal/config"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/sentry"
	"go.uber.org/fx"
)

// ClickHouseStore holds the connection used when usage debits live in ClickHouse
type ClickHouseStore struct {
	conn   driver.Conn
	sentry *sentry.Service
}

func NewClickHouseStore(lc fx.Lifecycle, cfg *config.Configuration, sentryService *sentry.Service, logger *logger.Logger) (*ClickHouseStore, error) {
	store, err := Connect(context.Background(), cfg, sentryService, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

// Connect opens and pings a connection outside of fx, for cmd/migrate
func Connect(ctx context.Context, cfg *config.Configuration, sentryService *sentry.Service, logger *logger.Logger) (*ClickHouseStore, error) {
	conn, err := clickhouse_go.Open(cfg.ClickHouse.GetClientOptions())
	if err != nil {
		return nil, fmt.Errorf("init clickhouse client: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 30 * time.Second
	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return conn.Ping(pingCtx)
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		logger.Warnw("clickhouse not ready, retrying", "address", cfg.ClickHouse.Address, "error", err, "retry_in", wait.String())
	}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseStore{
		conn:   conn,
		sentry: sentryService,
	}, nil
}

func (s *ClickHouseStore) GetConn() driver.Conn {
	return s.conn
}

func (s *ClickHouseStore) Close() error {
	return s.conn.Close()
}

// WithSpan creates a new context with a ClickHouse span for monitoring database operations
func (s *ClickHouseStore) WithSpan(ctx context.Context, operation string, params map[string]interface{}) (context.Context, *sentry.SpanFinisher) {
	span, newCtx := s.sentry.StartClickHouseSpan(ctx, operation, params)
	return newCtx, &sentry.SpanFinisher{Span: span}
}
