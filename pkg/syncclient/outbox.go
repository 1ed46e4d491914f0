package syncclient

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nestlogapp/nestlog/pkg/models"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

// QueueOptions describes one local mutation to record.
type QueueOptions struct {
	BabyID     int64
	EntityType string
	EntityID   string
	Op         string
	// Payload is the full serialized record. Nil for deletes.
	Payload json.RawMessage
}

// Queue records a local mutation: the mirror is updated immediately so the
// UI reflects the change, and an outbox entry is queued for the next flush.
// The entry's mutation id is generated here and doubles as the server-side
// idempotency key.
func (s *Store) Queue(ctx context.Context, opts QueueOptions) (*OutboxEntry, error) {
	now := time.Now().UTC()

	// The server reads baby_id from every mutation payload for its access
	// check, so deletes queued without a snapshot get a minimal one.
	payload := opts.Payload
	if opts.Op == models.OpDelete && len(payload) == 0 {
		var err error
		payload, err = json.Marshal(map[string]interface{}{
			"id":      opts.EntityID,
			"baby_id": opts.BabyID,
		})
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}

	entry := &OutboxEntry{
		MutationID: uuid.NewString(),
		BabyID:     opts.BabyID,
		EntityType: opts.EntityType,
		EntityID:   opts.EntityID,
		Op:         opts.Op,
		Payload:    payload,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
			return errors.WithStack(err)
		}

		if opts.Op == models.OpDelete {
			_, err := tx.NewDelete().
				Model((*CachedRecord)(nil)).
				Where("entity_type = ?", opts.EntityType).
				Where("entity_id = ?", opts.EntityID).
				Exec(ctx)
			return errors.WithStack(err)
		}

		record := &CachedRecord{
			EntityType: opts.EntityType,
			EntityID:   opts.EntityID,
			BabyID:     opts.BabyID,
			Data:       opts.Payload,
			UpdatedAt:  now,
		}
		_, err := tx.NewInsert().
			Model(record).
			On("CONFLICT (entity_type, entity_id) DO UPDATE").
			Set("baby_id = EXCLUDED.baby_id").
			Set("data = EXCLUDED.data").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// PendingEntries returns the pending outbox entries in queue order.
func (s *Store) PendingEntries(ctx context.Context) ([]*OutboxEntry, error) {
	entries := []*OutboxEntry{}
	err := s.db.NewSelect().
		Model(&entries).
		Where("status = ?", StatusPending).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return entries, nil
}

// Entry returns one outbox entry by mutation id, for inspection.
func (s *Store) Entry(ctx context.Context, mutationID string) (*OutboxEntry, error) {
	entry := &OutboxEntry{}
	err := s.db.NewSelect().
		Model(entry).
		Where("mutation_id = ?", mutationID).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return entry, nil
}

// MarkSyncing transitions the given entries to syncing and bumps their
// attempt count.
func (s *Store) MarkSyncing(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.NewUpdate().
		Model((*OutboxEntry)(nil)).
		Set("status = ?", StatusSyncing).
		Set("attempts = attempts + 1").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	return errors.WithStack(err)
}

// RevertToPending puts syncing entries back to pending after a transport
// failure so the next flush retries them. Never used for business-rule
// rejections; those become failed.
func (s *Store) RevertToPending(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.NewUpdate().
		Model((*OutboxEntry)(nil)).
		Set("status = ?", StatusPending).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	return errors.WithStack(err)
}

// MarkSynced records server confirmation for one entry.
func (s *Store) MarkSynced(ctx context.Context, id int64) error {
	_, err := s.db.NewUpdate().
		Model((*OutboxEntry)(nil)).
		Set("status = ?", StatusSynced).
		Set("last_error = ''").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	return errors.WithStack(err)
}

// MarkFailed records a server business-rule rejection. Failed entries are
// not retried automatically.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	_, err := s.db.NewUpdate().
		Model((*OutboxEntry)(nil)).
		Set("status = ?", StatusFailed).
		Set("last_error = ?", message).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	return errors.WithStack(err)
}

// ClearSynced removes confirmed entries from the outbox.
func (s *Store) ClearSynced(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*OutboxEntry)(nil)).
		Where("status = ?", StatusSynced).
		Exec(ctx)
	return errors.WithStack(err)
}
