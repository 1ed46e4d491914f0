package models

import (
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

// Mutation operations.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// SyncEvent is one accepted mutation's effect, recorded append-only. Events
// are immutable and totally ordered by ID within a baby; the pull endpoint
// serves them and nothing else, so a canonical write and its event append
// always happen in the same transaction.
type SyncEvent struct {
	bun.BaseModel `bun:"table:sync_events,alias:se"`

	ID         int64           `bun:",pk,autoincrement" json:"id"`
	BabyID     int64           `json:"baby_id"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Op         string          `json:"op"`
	Payload    json.RawMessage `bun:",nullzero" json:"payload"` // null for deletes
	CreatedAt  time.Time       `json:"created_at"`
}

// SyncMutation records a durably applied mutation id so a resubmitted batch
// (client crashed between server apply and ack) replays as success instead
// of double-applying.
type SyncMutation struct {
	bun.BaseModel `bun:"table:sync_mutations,alias:sm"`

	MutationID string    `bun:",pk" json:"mutation_id"`
	EventID    *int64    `json:"event_id"` // nil when no event was appended (idempotent delete)
	CreatedAt  time.Time `json:"created_at"`
}
