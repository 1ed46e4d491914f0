package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		// Append-only event log. AUTOINCREMENT guarantees ids are never
		// reused, which the cursor protocol depends on.
		_, err := db.Exec(`
			CREATE TABLE sync_events (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				baby_id INTEGER NOT NULL REFERENCES babies(id) ON DELETE CASCADE,
				entity_type TEXT NOT NULL,
				entity_id TEXT NOT NULL,
				op TEXT NOT NULL,
				payload TEXT,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`CREATE INDEX idx_sync_events_baby_id ON sync_events(baby_id, id)`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`CREATE INDEX idx_sync_events_entity ON sync_events(entity_type, entity_id)`)
		if err != nil {
			return errors.WithStack(err)
		}

		// Server-side mutation dedupe: resubmitting an applied mutation id
		// acks instead of double-applying.
		_, err = db.Exec(`
			CREATE TABLE sync_mutations (
				mutation_id TEXT PRIMARY KEY,
				event_id INTEGER REFERENCES sync_events(id),
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`DROP TABLE IF EXISTS sync_mutations`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`DROP TABLE IF EXISTS sync_events`)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
