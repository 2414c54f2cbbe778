package router

import (
	"context"
	"testing"

	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestShouldRetry(t *testing.T) {
	log := logger.NewNoopLogger()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"validation", ierr.NewError("bad request").Mark(ierr.ErrValidation), false},
		{"not found", ierr.NewError("missing").Mark(ierr.ErrNotFound), false},
		{"invalid operation", ierr.NewError("nope").Mark(ierr.ErrInvalidOperation), false},
		{"canceled", context.Canceled, false},
		{"http client", ierr.NewError("429").Mark(ierr.ErrHTTPClient), true},
		{"timeout", ierr.WithError(context.DeadlineExceeded).Mark(ierr.ErrTimeout), true},
		{"unknown", ierr.NewError("boom").Mark(ierr.ErrSystem), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRetry(log, tt.err))
		})
	}
}
