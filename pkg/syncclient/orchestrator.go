package syncclient

import (
	"context"

	syncapi "github.com/nestlogapp/nestlog/pkg/sync"
	"github.com/pkg/errors"
)

// Orchestrator drives the sync cycle for one device: flush the outbox, then
// pull each baby's changes. It runs as a single logical sequence per cycle;
// different babies' logs are independent and need no ordering between them.
type Orchestrator struct {
	store     *Store
	transport Transport
}

// NewOrchestrator creates a new orchestrator over an open store.
func NewOrchestrator(store *Store, transport Transport) *Orchestrator {
	return &Orchestrator{
		store:     store,
		transport: transport,
	}
}

// FlushOutbox pushes all pending outbox entries in one batch and applies the
// per-mutation results. An empty outbox is a no-op success. On transport
// failure every entry reverts to pending for the next flush; failed is
// reserved for server-confirmed rejections. Returns the number of entries
// that reached synced, either accepted outright or reconciled after a
// conflict; rejected entries are not counted.
func (o *Orchestrator) FlushOutbox(ctx context.Context) (int, error) {
	entries, err := o.store.PendingEntries(ctx)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(entries))
	mutations := make([]syncapi.MutationPayload, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
		mutations = append(mutations, syncapi.MutationPayload{
			MutationID: entry.MutationID,
			EntityType: entry.EntityType,
			EntityID:   entry.EntityID,
			Op:         entry.Op,
			Payload:    entry.Payload,
		})
	}

	if err := o.store.MarkSyncing(ctx, ids); err != nil {
		return 0, err
	}

	resp, err := o.transport.Push(ctx, mutations)
	if err != nil {
		if revertErr := o.store.RevertToPending(ctx, ids); revertErr != nil {
			return 0, revertErr
		}
		return 0, errors.Wrap(err, "push transport failure")
	}

	results := make(map[string]syncapi.MutationResult, len(resp.Results))
	for _, r := range resp.Results {
		results[r.MutationID] = r
	}

	resolved := 0
	for _, entry := range entries {
		result, ok := results[entry.MutationID]
		if !ok {
			// The server never answered this mutation; retry next flush.
			if err := o.store.RevertToPending(ctx, []int64{entry.ID}); err != nil {
				return resolved, err
			}
			continue
		}

		switch result.Status {
		case syncapi.StatusSuccess:
			if err := o.store.MarkSynced(ctx, entry.ID); err != nil {
				return resolved, err
			}
			resolved++

		case syncapi.StatusConflict:
			// The server's value wins; reconcile the local view and consider
			// the mutation's intent resolved. No retry.
			if err := o.store.ApplyServerData(ctx, entry, result.ServerData); err != nil {
				return resolved, err
			}
			if err := o.store.MarkSynced(ctx, entry.ID); err != nil {
				return resolved, err
			}
			resolved++

		default:
			if err := o.store.MarkFailed(ctx, entry.ID, result.Error); err != nil {
				return resolved, err
			}
		}
	}

	if err := o.store.ClearSynced(ctx); err != nil {
		return resolved, err
	}

	return resolved, nil
}

// PullChanges pages through a baby's event log from the local cursor until
// the server reports no more, applying each page to the mirror before
// advancing the cursor. Returns the total number of changes applied.
func (o *Orchestrator) PullChanges(ctx context.Context, babyID int64) (int, error) {
	total := 0

	for {
		cursor, err := o.store.Cursor(ctx, babyID)
		if err != nil {
			return total, err
		}

		page, err := o.transport.Pull(ctx, babyID, cursor, 0)
		if err != nil {
			return total, errors.Wrap(err, "pull transport failure")
		}

		for _, change := range page.Changes {
			if err := o.store.ApplyChange(ctx, babyID, change); err != nil {
				return total, err
			}
		}

		if err := o.store.SetCursor(ctx, babyID, page.NextCursor); err != nil {
			return total, err
		}
		total += len(page.Changes)

		if !page.HasMore {
			return total, nil
		}
	}
}

// SyncResult aggregates one full sync cycle.
type SyncResult struct {
	MutationsResolved int
	ChangesApplied    int
}

// PerformFullSync flushes then pulls for each baby. A flush failure never
// blocks the pulls: downloading others' changes must make forward progress
// independent of this client's upload health, and pending entries self-heal
// on the next flush. Overall failure is reported only for pull failures.
func (o *Orchestrator) PerformFullSync(ctx context.Context, babyIDs []int64) (*SyncResult, error) {
	result := &SyncResult{}
	var pullErr error

	for _, babyID := range babyIDs {
		resolved, err := o.FlushOutbox(ctx)
		if err == nil {
			result.MutationsResolved += resolved
		}

		applied, err := o.PullChanges(ctx, babyID)
		result.ChangesApplied += applied
		if err != nil && pullErr == nil {
			pullErr = err
		}
	}

	return result, pullErr
}
