package stripe

import (
	"net/http"
	"time"

	"github.com/flexprice/debitsync/internal/config"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/stripe/stripe-go/v82"
)

// Client holds the configured Stripe API client
type Client struct {
	api    *stripe.Client
	config *config.StripeConfig
	logger *logger.Logger
}

// NewClient creates a new Stripe client using the configured secret key.
// Transport level retries are handled by retryablehttp; Stripe's own retries
// follow stripe.max_network_retries.
func NewClient(cfg *config.Configuration, logger *logger.Logger) *Client {
	return newClient(&cfg.Stripe, "", newHTTPClient(logger), logger)
}

// newClient allows the API base URL to be overridden
func newClient(cfg *config.StripeConfig, url string, httpClient *http.Client, logger *logger.Logger) *Client {
	backendConfig := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if url != "" {
		backendConfig.URL = stripe.String(url)
	}

	backends := stripe.NewBackendsWithConfig(backendConfig)
	return &Client{
		api:    stripe.NewClient(cfg.SecretKey, stripe.WithBackends(backends)),
		config: cfg,
		logger: logger,
	}
}

func newHTTPClient(logger *logger.Logger) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.HTTPClient.Timeout = 30 * time.Second
	retryClient.Logger = nil
	retryClient.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			logger.Debugw("retrying stripe request",
				"method", req.Method,
				"path", req.URL.Path,
				"attempt", attempt,
			)
		}
	}
	return retryClient.StandardClient()
}

// API returns the underlying Stripe client
func (c *Client) API() *stripe.Client {
	return c.api
}
