package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				identity TEXT NOT NULL UNIQUE,
				display_name TEXT NOT NULL DEFAULT ''
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`
			CREATE TABLE babies (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL,
				birthdate TEXT NOT NULL DEFAULT '',
				created_by_id INTEGER NOT NULL REFERENCES users(id)
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`
			CREATE TABLE baby_caregivers (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				baby_id INTEGER NOT NULL REFERENCES babies(id) ON DELETE CASCADE,
				user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				role TEXT NOT NULL,
				UNIQUE(baby_id, user_id)
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`CREATE INDEX idx_baby_caregivers_user ON baby_caregivers(user_id)`)
		if err != nil {
			return errors.WithStack(err)
		}

		// One table per activity-log entity type. All share the same
		// provenance columns; primary keys are client-assigned UUIDs.
		logTables := map[string]string{
			"feed_logs": `
				feed_type TEXT NOT NULL,
				side TEXT NOT NULL DEFAULT '',
				duration_seconds INTEGER NOT NULL DEFAULT 0,
				amount_ml REAL NOT NULL DEFAULT 0,
				started_at DATETIME NOT NULL,
				note TEXT NOT NULL DEFAULT ''`,
			"sleep_logs": `
				started_at DATETIME NOT NULL,
				ended_at DATETIME,
				location TEXT NOT NULL DEFAULT '',
				note TEXT NOT NULL DEFAULT ''`,
			"nappy_logs": `
				nappy_type TEXT NOT NULL,
				occurred_at DATETIME NOT NULL,
				note TEXT NOT NULL DEFAULT ''`,
			"solids_logs": `
				food TEXT NOT NULL,
				amount_grams REAL NOT NULL DEFAULT 0,
				reaction TEXT NOT NULL DEFAULT '',
				occurred_at DATETIME NOT NULL,
				note TEXT NOT NULL DEFAULT ''`,
			"pumping_logs": `
				side TEXT NOT NULL DEFAULT '',
				amount_ml REAL NOT NULL DEFAULT 0,
				duration_seconds INTEGER NOT NULL DEFAULT 0,
				started_at DATETIME NOT NULL,
				note TEXT NOT NULL DEFAULT ''`,
			"growth_logs": `
				weight_kg REAL NOT NULL DEFAULT 0,
				height_cm REAL NOT NULL DEFAULT 0,
				head_circumference_cm REAL NOT NULL DEFAULT 0,
				measured_at DATETIME NOT NULL,
				note TEXT NOT NULL DEFAULT ''`,
		}

		for table, columns := range logTables {
			_, err = db.Exec(`
				CREATE TABLE ` + table + ` (
					id TEXT PRIMARY KEY,
					baby_id INTEGER NOT NULL REFERENCES babies(id) ON DELETE CASCADE,
					created_by_id INTEGER NOT NULL REFERENCES users(id),
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL,` + columns + `
				)
			`)
			if err != nil {
				return errors.WithStack(err)
			}

			_, err = db.Exec(`CREATE INDEX idx_` + table + `_baby ON ` + table + `(baby_id)`)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		return nil
	}

	down := func(_ context.Context, db *bun.DB) error {
		tables := []string{
			"growth_logs", "pumping_logs", "solids_logs", "nappy_logs",
			"sleep_logs", "feed_logs", "baby_caregivers", "babies", "users",
		}
		for _, table := range tables {
			_, err := db.Exec(`DROP TABLE IF EXISTS ` + table)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
