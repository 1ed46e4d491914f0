package syncclient

import (
	"context"
	"testing"

	"github.com/nestlogapp/nestlog/pkg/models"
	syncapi "github.com/nestlogapp/nestlog/pkg/sync"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	pushFn    func(mutations []syncapi.MutationPayload) (*PushResponse, error)
	pullFn    func(babyID, since int64) (*syncapi.Page, error)
	pushCalls int
	pullCalls int
}

func (f *fakeTransport) Push(_ context.Context, mutations []syncapi.MutationPayload) (*PushResponse, error) {
	f.pushCalls++
	return f.pushFn(mutations)
}

func (f *fakeTransport) Pull(_ context.Context, babyID, since int64, _ int) (*syncapi.Page, error) {
	f.pullCalls++
	return f.pullFn(babyID, since)
}

func allSuccess(mutations []syncapi.MutationPayload) (*PushResponse, error) {
	results := make([]syncapi.MutationResult, 0, len(mutations))
	for _, m := range mutations {
		results = append(results, syncapi.MutationResult{
			MutationID: m.MutationID,
			Status:     syncapi.StatusSuccess,
		})
	}
	cursor := int64(1)
	return &PushResponse{Results: results, NewCursor: &cursor}, nil
}

func TestFlushOutboxEmptyIsNoop(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	transport := &fakeTransport{pushFn: allSuccess}
	orch := NewOrchestrator(store, transport)

	resolved, err := orch.FlushOutbox(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, resolved)
	assert.Equal(t, 0, transport.pushCalls)
}

func TestFlushOutboxSuccessClearsEntries(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	queueCreate(t, store, "f1", "a")
	queueCreate(t, store, "f2", "b")

	transport := &fakeTransport{pushFn: allSuccess}
	orch := NewOrchestrator(store, transport)

	resolved, err := orch.FlushOutbox(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, resolved)
	assert.Equal(t, 1, transport.pushCalls)

	count, err := store.db.NewSelect().Model((*OutboxEntry)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestFlushOutboxTransportFailureRevertsToPending(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	entry := queueCreate(t, store, "f1", "offline edit")

	transport := &fakeTransport{
		pushFn: func([]syncapi.MutationPayload) (*PushResponse, error) {
			return nil, errors.New("connection refused")
		},
	}
	orch := NewOrchestrator(store, transport)

	_, err := orch.FlushOutbox(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	// the entry is retried on the next flush, never marked failed
	got, err := store.Entry(ctx, entry.MutationID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, 1, got.Attempts)

	// a later flush picks it up again
	transport.pushFn = allSuccess
	resolved, err := orch.FlushOutbox(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
}

func TestFlushOutboxConflictAppliesServerData(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	queueCreate(t, store, "f1", "my stale edit")

	serverData := json.RawMessage(`{"id":"f1","baby_id":1,"note":"server wins"}`)
	transport := &fakeTransport{
		pushFn: func(mutations []syncapi.MutationPayload) (*PushResponse, error) {
			return &PushResponse{Results: []syncapi.MutationResult{{
				MutationID: mutations[0].MutationID,
				Status:     syncapi.StatusConflict,
				ServerData: serverData,
			}}}, nil
		},
	}
	orch := NewOrchestrator(store, transport)

	resolved, err := orch.FlushOutbox(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	// the local view reflects the authoritative state
	record, err := store.Record(ctx, "feed_log", "f1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.JSONEq(t, string(serverData), string(record.Data))

	// the mutation's intent is resolved; nothing left to retry
	count, err := store.db.NewSelect().Model((*OutboxEntry)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestFlushOutboxErrorMarksFailed(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	entry := queueCreate(t, store, "f1", "not allowed")

	transport := &fakeTransport{
		pushFn: func(mutations []syncapi.MutationPayload) (*PushResponse, error) {
			return &PushResponse{Results: []syncapi.MutationResult{{
				MutationID: mutations[0].MutationID,
				Status:     syncapi.StatusError,
				Error:      "Access denied to this baby",
			}}}, nil
		},
	}
	orch := NewOrchestrator(store, transport)

	resolved, err := orch.FlushOutbox(ctx)
	require.NoError(t, err)
	// a rejected entry never reached synced, so it does not count
	assert.Equal(t, 0, resolved)

	got, err := store.Entry(ctx, entry.MutationID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "Access denied to this baby", got.LastError)

	// failed entries are not retried automatically
	pending, err := store.PendingEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPullChangesPaginatesUntilDone(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	pages := map[int64]*syncapi.Page{
		0: {
			Changes: []syncapi.Change{
				{Type: "feed_log", Op: models.OpCreate, ID: "f1", Data: json.RawMessage(`{"note":"a"}`)},
				{Type: "feed_log", Op: models.OpCreate, ID: "f2", Data: json.RawMessage(`{"note":"b"}`)},
			},
			NextCursor: 2,
			HasMore:    true,
		},
		2: {
			Changes: []syncapi.Change{
				{Type: "feed_log", Op: models.OpDelete, ID: "f1"},
			},
			NextCursor: 3,
			HasMore:    false,
		},
	}

	transport := &fakeTransport{
		pullFn: func(babyID, since int64) (*syncapi.Page, error) {
			page, ok := pages[since]
			require.True(t, ok, "unexpected cursor %d", since)
			return page, nil
		},
	}
	orch := NewOrchestrator(store, transport)

	applied, err := orch.PullChanges(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, applied)
	assert.Equal(t, 2, transport.pullCalls)

	cursor, err := store.Cursor(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cursor)

	// f1 was created then deleted; f2 survives
	record, err := store.Record(ctx, "feed_log", "f1")
	require.NoError(t, err)
	assert.Nil(t, record)

	record, err = store.Record(ctx, "feed_log", "f2")
	require.NoError(t, err)
	require.NotNil(t, record)
}

func TestPerformFullSyncPullsDespiteFlushFailure(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	queueCreate(t, store, "f1", "stuck upload")

	transport := &fakeTransport{
		pushFn: func([]syncapi.MutationPayload) (*PushResponse, error) {
			return nil, errors.New("connection refused")
		},
		pullFn: func(babyID, since int64) (*syncapi.Page, error) {
			return &syncapi.Page{
				Changes: []syncapi.Change{
					{Type: "feed_log", Op: models.OpCreate, ID: "other", Data: json.RawMessage(`{}`)},
				},
				NextCursor: since + 1,
				HasMore:    false,
			}, nil
		},
	}
	orch := NewOrchestrator(store, transport)

	result, err := orch.PerformFullSync(ctx, []int64{1})
	require.NoError(t, err)
	assert.Equal(t, 0, result.MutationsResolved)
	assert.Equal(t, 1, result.ChangesApplied)

	// the upload self-heals on the next flush
	pending, err := store.PendingEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestPerformFullSyncFailsOnPullFailure(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	transport := &fakeTransport{
		pushFn: allSuccess,
		pullFn: func(babyID, since int64) (*syncapi.Page, error) {
			if babyID == 2 {
				return nil, errors.New("server error")
			}
			return &syncapi.Page{NextCursor: since, HasMore: false}, nil
		},
	}
	orch := NewOrchestrator(store, transport)

	_, err := orch.PerformFullSync(ctx, []int64{1, 2, 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error")

	// baby 3 was still pulled after baby 2 failed
	assert.Equal(t, 3, transport.pullCalls)
}
