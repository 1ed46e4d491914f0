package entities

import (
	"context"
	"database/sql"
	"time"

	"github.com/nestlogapp/nestlog/pkg/models"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

// recordPtr constrains PT to be a pointer to T that satisfies
// models.Record, so one generic handler serves every activity-log table.
type recordPtr[T any] interface {
	*T
	models.Record
}

type logHandler[T any, PT recordPtr[T]] struct {
	name string
}

func newLogHandler[T any, PT recordPtr[T]](name string) *logHandler[T, PT] {
	return &logHandler[T, PT]{name: name}
}

func (h *logHandler[T, PT]) Type() string {
	return h.name
}

func (h *logHandler[T, PT]) decode(payload json.RawMessage) (PT, error) {
	var v T
	rec := PT(&v)
	if err := json.Unmarshal(payload, rec); err != nil {
		return nil, errors.Wrap(err, "invalid payload")
	}
	return rec, nil
}

func (h *logHandler[T, PT]) load(ctx context.Context, db bun.IDB, entityID string) (PT, error) {
	var v T
	rec := PT(&v)
	err := db.NewSelect().Model(rec).Where("id = ?", entityID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.WithStack(err)
	}
	return rec, nil
}

func (h *logHandler[T, PT]) Create(ctx context.Context, db bun.IDB, authorID int64, entityID string, payload json.RawMessage) (json.RawMessage, error) {
	rec, err := h.decode(payload)
	if err != nil {
		return nil, err
	}

	rec.SetRecordID(entityID)
	rec.Stamp(authorID, time.Now().UTC())

	if _, err := db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return nil, errors.WithStack(err)
	}

	data, err := json.Marshal(rec)
	return data, errors.WithStack(err)
}

func (h *logHandler[T, PT]) Update(ctx context.Context, db bun.IDB, entityID string, payload json.RawMessage) (int64, json.RawMessage, *Conflict, error) {
	existing, err := h.load(ctx, db, entityID)
	if err != nil {
		return 0, nil, nil, err
	}

	incoming, err := h.decode(payload)
	if err != nil {
		return 0, nil, nil, err
	}

	// The access check ran against the payload's baby_id; a payload that
	// claims a different baby than the stored row would let a caller edit a
	// row they were never authorized for, and would file the event under
	// the wrong partition.
	babyID := existing.RecordBabyID()
	if incoming.RecordBabyID() != babyID {
		return 0, nil, nil, errors.New("payload baby_id does not match the record")
	}

	// Last-writer-wins: the server row wins only when strictly newer than
	// the client-observed timestamp, so simultaneous writes favor the
	// incoming one. A client that never saw the row sends a zero timestamp
	// and always loses.
	if existing.RecordUpdatedAt().After(incoming.RecordUpdatedAt()) {
		serverData, err := json.Marshal(existing)
		if err != nil {
			return 0, nil, nil, errors.WithStack(err)
		}
		return babyID, nil, &Conflict{ServerData: serverData}, nil
	}

	incoming.SetRecordID(entityID)
	incoming.Touch(time.Now().UTC())

	// Provenance and partition columns stay server-owned.
	_, err = db.NewUpdate().
		Model(incoming).
		ExcludeColumn("baby_id", "created_by_id", "created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return 0, nil, nil, errors.WithStack(err)
	}

	// Reload so the event snapshot carries the preserved columns.
	updated, err := h.load(ctx, db, entityID)
	if err != nil {
		return 0, nil, nil, err
	}

	data, err := json.Marshal(updated)
	return babyID, data, nil, errors.WithStack(err)
}

func (h *logHandler[T, PT]) Delete(ctx context.Context, db bun.IDB, entityID string) (int64, bool, error) {
	existing, err := h.load(ctx, db, entityID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Idempotent: deleting a missing row succeeds without effect.
			return 0, false, nil
		}
		return 0, false, err
	}

	_, err = db.NewDelete().Model(existing).WherePK().Exec(ctx)
	if err != nil {
		return 0, false, errors.WithStack(err)
	}

	return existing.RecordBabyID(), true, nil
}
