// Package entities maps sync entity types to their canonical-store
// handlers. The closed registry replaces per-type string switches: adding an
// entity type means adding a model and one line here, and every consumer
// (push dispatch, pull replay tooling, tests) picks it up.
package entities

import (
	"context"

	"github.com/nestlogapp/nestlog/pkg/models"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

// Entity type names as they travel on the wire.
const (
	TypeFeedLog    = "feed_log"
	TypeSleepLog   = "sleep_log"
	TypeNappyLog   = "nappy_log"
	TypeSolidsLog  = "solids_log"
	TypePumpingLog = "pumping_log"
	TypeGrowthLog  = "growth_log"
)

// ErrNotFound is returned by Update when the target row does not exist.
// Deletes never return it: deleting a missing row is an idempotent no-op.
var ErrNotFound = errors.New("entity not found")

// Conflict reports a rejected update whose target row carries a strictly
// newer server timestamp. ServerData is the authoritative row, serialized,
// for the losing client to reconcile against.
type Conflict struct {
	ServerData json.RawMessage
}

// Handler applies one entity type's mutations against the canonical store.
// Implementations must not append sync events; the caller owns the event
// log and the transaction.
type Handler interface {
	Type() string
	// Create inserts a new row under the client-assigned entity id, stamped
	// with the author, and returns the serialized inserted row.
	Create(ctx context.Context, db bun.IDB, authorID int64, entityID string, payload json.RawMessage) (json.RawMessage, error)
	// Update applies a full-snapshot update under last-writer-wins
	// arbitration. babyID is the stored row's partition, which the caller
	// must use for the event append; a payload claiming a different baby_id
	// than the row's is rejected. Exactly one of data, conflict, and err is
	// meaningful (ErrNotFound when the row is missing).
	Update(ctx context.Context, db bun.IDB, entityID string, payload json.RawMessage) (babyID int64, data json.RawMessage, conflict *Conflict, err error)
	// Delete removes the row if present. deleted reports whether a row was
	// removed; babyID is only valid when deleted is true.
	Delete(ctx context.Context, db bun.IDB, entityID string) (babyID int64, deleted bool, err error)
}

// Registry is the closed set of syncable entity types.
type Registry struct {
	handlers map[string]Handler
	types    []string
}

// NewRegistry builds the registry over all known entity types.
func NewRegistry() *Registry {
	handlers := []Handler{
		newLogHandler[models.FeedLog](TypeFeedLog),
		newLogHandler[models.SleepLog](TypeSleepLog),
		newLogHandler[models.NappyLog](TypeNappyLog),
		newLogHandler[models.SolidsLog](TypeSolidsLog),
		newLogHandler[models.PumpingLog](TypePumpingLog),
		newLogHandler[models.GrowthLog](TypeGrowthLog),
	}

	r := &Registry{handlers: make(map[string]Handler, len(handlers))}
	for _, h := range handlers {
		r.handlers[h.Type()] = h
		r.types = append(r.types, h.Type())
	}
	return r
}

// Lookup returns the handler for an entity type.
func (r *Registry) Lookup(entityType string) (Handler, bool) {
	h, ok := r.handlers[entityType]
	return h, ok
}

// Types returns all registered entity type names.
func (r *Registry) Types() []string {
	return r.types
}
