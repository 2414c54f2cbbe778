package logger

import (
	"context"
	"testing"

	"github.com/flexprice/debitsync/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	ctx := types.SetRequestID(context.Background(), "req_1")
	ctx = types.SetEventID(ctx, "evt_1")

	l.WithContext(ctx).Infow("reconciled", "customer_id", "cust_1")
	l.WithContext(context.Background()).Infow("idle")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	fields := entries[0].ContextMap()
	assert.Equal(t, "req_1", fields["request_id"])
	assert.Equal(t, "evt_1", fields["event_id"])
	assert.Equal(t, "cust_1", fields["customer_id"])

	assert.Empty(t, entries[1].ContextMap())
}
