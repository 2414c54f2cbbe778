package router

import (
	"context"
	"net"

	"github.com/cockroachdb/errors"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/logger"
)

// ShouldRetry reports whether a failed delivery is worth another attempt
func ShouldRetry(logger *logger.Logger, err error) bool {
	if err == nil {
		return false
	}

	// Business logic errors (don't retry)
	if ierr.IsValidation(err) ||
		ierr.IsNotFound(err) ||
		ierr.IsInvalidOperation(err) ||
		ierr.IsAlreadyExists(err) {
		logger.Debugw("non-retryable error", "error", err)
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	// Network errors
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		logger.Debugw("retrying due to network timeout", "error", netErr)
		return true
	}

	if ierr.IsTimeout(err) || ierr.IsHTTPClient(err) {
		logger.Debugw("retrying due to transient error", "error", err)
		return true
	}

	// By default, retry unknown errors
	return true
}
