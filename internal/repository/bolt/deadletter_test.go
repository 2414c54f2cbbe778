package bolt

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/flexprice/debitsync/internal/domain/deadletter"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *DeadLetterStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "dlq", "test.db"), "deadletters", logger.NewNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(eventID string) *deadletter.Entry {
	return &deadletter.Entry{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DEAD_LETTER),
		Kind:      types.DeadLetterKindReconciliation,
		EventID:   eventID,
		Outcome:   string(types.OutcomePersistenceFailure),
		Error:     "database error",
		Payload:   json.RawMessage(`{"event_id":"` + eventID + `"}`),
		Attempts:  1,
		CreatedAt: time.Now().UTC(),
	}
}

func TestListEmpty(t *testing.T) {
	s := newTestStore(t)
	items, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestSaveGetDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	e := entry("evt_1")
	require.NoError(t, s.Save(ctx, e))

	got, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.EventID, got.EventID)
	assert.JSONEq(t, string(e.Payload), string(got.Payload))

	require.NoError(t, s.Delete(ctx, e.ID))
	_, err = s.Get(ctx, e.ID)
	assert.True(t, ierr.IsNotFound(err))

	// deleting twice is fine
	assert.NoError(t, s.Delete(ctx, e.ID))
}

func TestSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	e := entry("evt_1")
	require.NoError(t, s.Save(ctx, e))
	e.Attempts = 3
	require.NoError(t, s.Save(ctx, e))

	items, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Attempts)
}

func TestListNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var ids []string
	for _, ev := range []string{"evt_1", "evt_2", "evt_3"} {
		e := entry(ev)
		ids = append(ids, e.ID)
		require.NoError(t, s.Save(ctx, e))
		time.Sleep(2 * time.Millisecond)
	}

	items, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, ids[2], items[0].ID)
	assert.Equal(t, ids[1], items[1].ID)
}
