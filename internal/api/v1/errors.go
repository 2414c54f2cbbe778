package v1

import "github.com/flexprice/debitsync/internal/rest/middleware"

// ErrorResponse is the body rendered by the error middleware
type ErrorResponse = middleware.ErrorResponse
