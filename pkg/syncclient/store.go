// Package syncclient is the device-side half of the sync protocol: a local
// sqlite store holding the outbox, per-baby cursors, and a mirror of the
// server's records, plus the orchestrator that flushes and pulls against the
// server. All state is held by an explicitly opened Store handle; there are
// no package-level globals.
package syncclient

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Outbox entry statuses.
const (
	StatusPending = "pending"
	StatusSyncing = "syncing"
	StatusSynced  = "synced"
	StatusFailed  = "failed"
)

// OutboxEntry is one queued local mutation awaiting server confirmation.
type OutboxEntry struct {
	bun.BaseModel `bun:"table:outbox,alias:ob"`

	ID         int64           `bun:",pk,autoincrement"`
	MutationID string          `bun:",unique"`
	BabyID     int64
	EntityType string
	EntityID   string
	Op         string
	Payload    json.RawMessage `bun:",nullzero"`
	Status     string
	Attempts   int
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SyncCursor is the highest sync-event id durably applied for one baby.
// Advanced only after a pull page's changes are written to the mirror; never
// decreases.
type SyncCursor struct {
	bun.BaseModel `bun:"table:sync_cursors,alias:sc"`

	BabyID    int64 `bun:",pk"`
	Cursor    int64
	UpdatedAt time.Time
}

// CachedRecord mirrors one server record locally so the app can render
// offline.
type CachedRecord struct {
	bun.BaseModel `bun:"table:records,alias:r"`

	EntityType string `bun:",pk"`
	EntityID   string `bun:",pk"`
	BabyID     int64
	Data       json.RawMessage
	UpdatedAt  time.Time
}

// Store is the client-local database. Open it once per app lifetime and
// pass the handle around.
type Store struct {
	db *bun.DB
}

// Open opens (creating if necessary) the local store at path. ":memory:"
// works for tests.
func Open(path string) (*Store, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	// The store is single-owner; one connection avoids ":memory:" handing
	// each pooled connection its own empty database.
	db.SetMaxOpenConns(1)

	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}

	s := &Store{db: db}
	if err := s.createTables(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return errors.WithStack(s.db.Close())
}

func (s *Store) createTables(ctx context.Context) error {
	models := []interface{}{
		(*OutboxEntry)(nil),
		(*SyncCursor)(nil),
		(*CachedRecord)(nil),
	}
	for _, model := range models {
		_, err := s.db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
