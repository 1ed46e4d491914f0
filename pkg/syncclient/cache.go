package syncclient

import (
	"context"
	"database/sql"
	"time"

	"github.com/nestlogapp/nestlog/pkg/models"
	syncapi "github.com/nestlogapp/nestlog/pkg/sync"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// Cursor returns the pull cursor for a baby, 0 when the baby has never been
// synced.
func (s *Store) Cursor(ctx context.Context, babyID int64) (int64, error) {
	cursor := &SyncCursor{}
	err := s.db.NewSelect().
		Model(cursor).
		Where("baby_id = ?", babyID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, errors.WithStack(err)
	}
	return cursor.Cursor, nil
}

// SetCursor advances the pull cursor for a baby. Called only after the
// page's changes are durably applied to the mirror.
func (s *Store) SetCursor(ctx context.Context, babyID, value int64) error {
	cursor := &SyncCursor{
		BabyID:    babyID,
		Cursor:    value,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.db.NewInsert().
		Model(cursor).
		On("CONFLICT (baby_id) DO UPDATE").
		Set("cursor = EXCLUDED.cursor").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return errors.WithStack(err)
}

// ApplyChange writes one pulled change into the mirror: creates and updates
// upsert the record, deletes remove it.
func (s *Store) ApplyChange(ctx context.Context, babyID int64, change syncapi.Change) error {
	if change.Op == models.OpDelete {
		_, err := s.db.NewDelete().
			Model((*CachedRecord)(nil)).
			Where("entity_type = ?", change.Type).
			Where("entity_id = ?", change.ID).
			Exec(ctx)
		return errors.WithStack(err)
	}

	return s.upsertRecord(ctx, babyID, change.Type, change.ID, change.Data)
}

// ApplyServerData overwrites the mirror with the authoritative server record
// after a conflict. The mutation's intent is considered resolved; the
// server's value wins.
func (s *Store) ApplyServerData(ctx context.Context, entry *OutboxEntry, data json.RawMessage) error {
	return s.upsertRecord(ctx, entry.BabyID, entry.EntityType, entry.EntityID, data)
}

func (s *Store) upsertRecord(ctx context.Context, babyID int64, entityType, entityID string, data json.RawMessage) error {
	record := &CachedRecord{
		EntityType: entityType,
		EntityID:   entityID,
		BabyID:     babyID,
		Data:       data,
		UpdatedAt:  time.Now().UTC(),
	}
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (entity_type, entity_id) DO UPDATE").
		Set("baby_id = EXCLUDED.baby_id").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return errors.WithStack(err)
}

// Record returns one mirrored record, or nil when it is not cached.
func (s *Store) Record(ctx context.Context, entityType, entityID string) (*CachedRecord, error) {
	record := &CachedRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("entity_type = ?", entityType).
		Where("entity_id = ?", entityID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}
	return record, nil
}

// Records returns all mirrored records for a baby, newest first.
func (s *Store) Records(ctx context.Context, babyID int64) ([]*CachedRecord, error) {
	records := []*CachedRecord{}
	err := s.db.NewSelect().
		Model(&records).
		Where("baby_id = ?", babyID).
		Order("updated_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return records, nil
}
