package syncclient

import (
	"context"
	"testing"

	"github.com/nestlogapp/nestlog/pkg/models"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(":memory:")
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func queueCreate(t *testing.T, store *Store, entityID, note string) *OutboxEntry {
	t.Helper()

	payload, err := json.Marshal(map[string]interface{}{
		"id":      entityID,
		"baby_id": int64(1),
		"note":    note,
	})
	require.NoError(t, err)

	entry, err := store.Queue(context.Background(), QueueOptions{
		BabyID:     1,
		EntityType: "feed_log",
		EntityID:   entityID,
		Op:         models.OpCreate,
		Payload:    payload,
	})
	require.NoError(t, err)
	return entry
}

func TestStoreQueueUpdatesMirror(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	entry := queueCreate(t, store, "f1", "local bottle")
	assert.NotEmpty(t, entry.MutationID)
	assert.Equal(t, StatusPending, entry.Status)

	// the UI sees the write immediately, before any sync
	record, err := store.Record(ctx, "feed_log", "f1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Contains(t, string(record.Data), "local bottle")

	pending, err := store.PendingEntries(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, entry.MutationID, pending[0].MutationID)
}

func TestStoreQueueDeleteRemovesMirror(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	queueCreate(t, store, "f1", "to remove")

	_, err := store.Queue(ctx, QueueOptions{
		BabyID:     1,
		EntityType: "feed_log",
		EntityID:   "f1",
		Op:         models.OpDelete,
	})
	require.NoError(t, err)

	record, err := store.Record(ctx, "feed_log", "f1")
	require.NoError(t, err)
	assert.Nil(t, record)

	pending, err := store.PendingEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestStoreOutboxLifecycle(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	entry := queueCreate(t, store, "f1", "note")

	require.NoError(t, store.MarkSyncing(ctx, []int64{entry.ID}))
	got, err := store.Entry(ctx, entry.MutationID)
	require.NoError(t, err)
	assert.Equal(t, StatusSyncing, got.Status)
	assert.Equal(t, 1, got.Attempts)

	// transport failure path
	require.NoError(t, store.RevertToPending(ctx, []int64{entry.ID}))
	got, err = store.Entry(ctx, entry.MutationID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	// business-rule rejection path
	require.NoError(t, store.MarkFailed(ctx, entry.ID, "Access denied to this baby"))
	got, err = store.Entry(ctx, entry.MutationID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "Access denied to this baby", got.LastError)

	// confirmation path: synced entries are garbage collected
	require.NoError(t, store.MarkSynced(ctx, entry.ID))
	require.NoError(t, store.ClearSynced(ctx))

	count, err := store.db.NewSelect().Model((*OutboxEntry)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStoreCursor(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	cursor, err := store.Cursor(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cursor)

	require.NoError(t, store.SetCursor(ctx, 1, 7))
	cursor, err = store.Cursor(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), cursor)

	require.NoError(t, store.SetCursor(ctx, 1, 12))
	cursor, err = store.Cursor(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(12), cursor)

	// cursors are per baby
	cursor, err = store.Cursor(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cursor)
}
