// Package sync implements the delta-sync protocol: the push endpoint the
// client outbox flushes to, the cursor-paginated pull endpoint, and a status
// probe. All state lives in the canonical tables and the append-only
// sync_events log; handlers are stateless and rely on sqlite transactions
// rather than in-process locking.
package sync

import (
	"context"
	"database/sql"
	"time"

	"github.com/nestlogapp/nestlog/pkg/babies"
	"github.com/nestlogapp/nestlog/pkg/entities"
	"github.com/nestlogapp/nestlog/pkg/errcodes"
	"github.com/nestlogapp/nestlog/pkg/models"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

// Mutation result statuses.
const (
	StatusSuccess  = "success"
	StatusConflict = "conflict"
	StatusError    = "error"
)

// Pull pagination bounds.
const (
	DefaultPullLimit = 100
	MaxPullLimit     = 500
)

// Service implements push, pull, and status over the sync-event log.
type Service struct {
	db          *bun.DB
	registry    *entities.Registry
	babyService *babies.Service
}

// NewService creates a new sync service.
func NewService(db *bun.DB, babyService *babies.Service) *Service {
	return &Service{
		db:          db,
		registry:    entities.NewRegistry(),
		babyService: babyService,
	}
}

// Mutation is one outbox entry submitted by a client.
type Mutation struct {
	MutationID string
	EntityType string
	EntityID   string
	Op         string
	Payload    json.RawMessage
}

// MutationResult is the per-mutation outcome, returned in input order.
type MutationResult struct {
	MutationID string          `json:"mutationId"`
	Status     string          `json:"status"`
	ServerData json.RawMessage `json:"serverData,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Change is one replayable sync event as served by pull.
type Change struct {
	Type      string          `json:"type"`
	Op        string          `json:"op"`
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Page is one pull response page.
type Page struct {
	Changes    []Change `json:"changes"`
	NextCursor int64    `json:"nextCursor"`
	HasMore    bool     `json:"hasMore"`
}

// Status summarizes a baby's event log so clients can decide whether a pull
// is worthwhile.
type Status struct {
	BabyID        int64  `json:"babyId"`
	EventCount    int    `json:"eventCount"`
	LatestEventID *int64 `json:"latestEventId"`
}

// Push applies a batch of mutations for the user. One bad mutation never
// fails the batch: every mutation gets a result, in input order. The second
// return value is the new pull cursor, the highest event id in the log, or
// nil when the log is empty.
func (s *Service) Push(ctx context.Context, user *models.User, mutations []Mutation) ([]MutationResult, *int64, error) {
	editable, err := s.babyService.EditableBabyIDs(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	// Sequential on purpose: later mutations in a batch may depend on rows
	// earlier ones just wrote (two updates to the same entity).
	results := make([]MutationResult, 0, len(mutations))
	for _, m := range mutations {
		results = append(results, s.apply(ctx, user, editable, m))
	}

	newCursor, err := s.latestEventID(ctx)
	if err != nil {
		return nil, nil, err
	}

	return results, newCursor, nil
}

func errorResult(m Mutation, msg string) MutationResult {
	return MutationResult{MutationID: m.MutationID, Status: StatusError, Error: msg}
}

// apply processes one mutation. Panics are recovered into a per-mutation
// error result so a malformed mutation cannot take down its siblings.
func (s *Service) apply(ctx context.Context, user *models.User, editable map[int64]struct{}, m Mutation) (result MutationResult) {
	defer func() {
		if r := recover(); r != nil {
			msg := "Unknown error"
			if err, ok := r.(error); ok {
				msg = err.Error()
			}
			result = errorResult(m, msg)
		}
	}()

	applied, err := s.alreadyApplied(ctx, m.MutationID)
	if err != nil {
		return errorResult(m, err.Error())
	}
	if applied {
		// The client resubmitted a batch it never got the ack for. The
		// mutation was durably applied, so replay the success instead of
		// double-applying it. Conflicts and errors are never recorded, so
		// they re-evaluate on resubmission.
		return MutationResult{MutationID: m.MutationID, Status: StatusSuccess}
	}

	switch m.Op {
	case models.OpCreate, models.OpUpdate, models.OpDelete:
	default:
		return errorResult(m, "Unknown operation: "+m.Op)
	}

	babyID, err := payloadBabyID(m.Payload)
	if err != nil {
		return errorResult(m, err.Error())
	}
	if _, ok := editable[babyID]; !ok {
		return errorResult(m, "Access denied to this baby")
	}

	handler, ok := s.registry.Lookup(m.EntityType)
	if !ok {
		return errorResult(m, "Unknown entity type: "+m.EntityType)
	}

	// Canonical write, event append, and dedupe record commit atomically.
	var res MutationResult
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		res, txErr = s.applyOp(ctx, tx, handler, user, babyID, m)
		return txErr
	})
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			return errorResult(m, "Entity not found")
		}
		return errorResult(m, err.Error())
	}

	return res
}

func (s *Service) applyOp(ctx context.Context, tx bun.Tx, h entities.Handler, user *models.User, babyID int64, m Mutation) (MutationResult, error) {
	now := time.Now().UTC()

	switch m.Op {
	case models.OpCreate:
		data, err := h.Create(ctx, tx, user.ID, m.EntityID, m.Payload)
		if err != nil {
			return MutationResult{}, err
		}
		eventID, err := s.appendEvent(ctx, tx, babyID, m, data, now)
		if err != nil {
			return MutationResult{}, err
		}
		if err := s.recordMutation(ctx, tx, m.MutationID, &eventID, now); err != nil {
			return MutationResult{}, err
		}
		return MutationResult{MutationID: m.MutationID, Status: StatusSuccess}, nil

	case models.OpUpdate:
		// The event goes in the stored row's partition, not the payload's
		// claimed one.
		rowBabyID, data, conflict, err := h.Update(ctx, tx, m.EntityID, m.Payload)
		if err != nil {
			return MutationResult{}, err
		}
		if conflict != nil {
			// The server row is newer. Surface it to the losing client and
			// leave the canonical record untouched.
			return MutationResult{
				MutationID: m.MutationID,
				Status:     StatusConflict,
				ServerData: conflict.ServerData,
			}, nil
		}
		eventID, err := s.appendEvent(ctx, tx, rowBabyID, m, data, now)
		if err != nil {
			return MutationResult{}, err
		}
		if err := s.recordMutation(ctx, tx, m.MutationID, &eventID, now); err != nil {
			return MutationResult{}, err
		}
		return MutationResult{MutationID: m.MutationID, Status: StatusSuccess}, nil

	default:
		rowBabyID, deleted, err := h.Delete(ctx, tx, m.EntityID)
		if err != nil {
			return MutationResult{}, err
		}
		var eventID *int64
		if deleted {
			id, err := s.appendEvent(ctx, tx, rowBabyID, m, nil, now)
			if err != nil {
				return MutationResult{}, err
			}
			eventID = &id
		}
		if err := s.recordMutation(ctx, tx, m.MutationID, eventID, now); err != nil {
			return MutationResult{}, err
		}
		return MutationResult{MutationID: m.MutationID, Status: StatusSuccess}, nil
	}
}

// payloadBabyID extracts the partition key used for the access check. It is
// type-independent: every syncable payload carries baby_id.
func payloadBabyID(payload json.RawMessage) (int64, error) {
	var probe struct {
		BabyID int64 `json:"baby_id"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return 0, errors.Wrap(err, "invalid payload")
	}
	if probe.BabyID == 0 {
		return 0, errors.New("payload is missing baby_id")
	}
	return probe.BabyID, nil
}

func (s *Service) alreadyApplied(ctx context.Context, mutationID string) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*models.SyncMutation)(nil)).
		Where("mutation_id = ?", mutationID).
		Exists(ctx)
	return exists, errors.WithStack(err)
}

func (s *Service) appendEvent(ctx context.Context, tx bun.Tx, babyID int64, m Mutation, payload json.RawMessage, now time.Time) (int64, error) {
	event := &models.SyncEvent{
		BabyID:     babyID,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		Op:         m.Op,
		Payload:    payload,
		CreatedAt:  now,
	}
	_, err := tx.NewInsert().Model(event).Exec(ctx)
	return event.ID, errors.WithStack(err)
}

func (s *Service) recordMutation(ctx context.Context, tx bun.Tx, mutationID string, eventID *int64, now time.Time) error {
	mutation := &models.SyncMutation{
		MutationID: mutationID,
		EventID:    eventID,
		CreatedAt:  now,
	}
	_, err := tx.NewInsert().Model(mutation).Exec(ctx)
	return errors.WithStack(err)
}

func (s *Service) latestEventID(ctx context.Context) (*int64, error) {
	var id sql.NullInt64
	err := s.db.NewSelect().
		Model((*models.SyncEvent)(nil)).
		ColumnExpr("max(id)").
		Scan(ctx, &id)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !id.Valid {
		return nil, nil
	}
	return &id.Int64, nil
}

// Pull returns one page of the baby's event log after the given cursor. Any
// access level is enough to pull; limit is clamped to MaxPullLimit. One row
// beyond the limit is fetched as the has-more probe and never returned.
func (s *Service) Pull(ctx context.Context, user *models.User, babyID, since int64, limit int) (*Page, error) {
	role, err := s.babyService.AccessLevel(ctx, user.ID, babyID)
	if err != nil {
		return nil, err
	}
	if role == "" {
		return nil, errcodes.Forbidden("Access denied to this baby")
	}

	if limit <= 0 {
		limit = DefaultPullLimit
	}
	if limit > MaxPullLimit {
		limit = MaxPullLimit
	}

	events := []*models.SyncEvent{}
	err = s.db.NewSelect().
		Model(&events).
		Where("baby_id = ?", babyID).
		Where("id > ?", since).
		Order("id ASC").
		Limit(limit + 1).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	hasMore := len(events) > limit
	if hasMore {
		events = events[:limit]
	}

	changes := make([]Change, 0, len(events))
	nextCursor := since
	for _, e := range events {
		changes = append(changes, Change{
			Type:      e.EntityType,
			Op:        e.Op,
			ID:        e.EntityID,
			Data:      e.Payload,
			CreatedAt: e.CreatedAt,
		})
		nextCursor = e.ID
	}

	return &Page{Changes: changes, NextCursor: nextCursor, HasMore: hasMore}, nil
}

// Status reports the event count and latest event id for a baby the user
// can read.
func (s *Service) Status(ctx context.Context, user *models.User, babyID int64) (*Status, error) {
	role, err := s.babyService.AccessLevel(ctx, user.ID, babyID)
	if err != nil {
		return nil, err
	}
	if role == "" {
		return nil, errcodes.Forbidden("Access denied to this baby")
	}

	count, err := s.db.NewSelect().
		Model((*models.SyncEvent)(nil)).
		Where("baby_id = ?", babyID).
		Count(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var latest sql.NullInt64
	err = s.db.NewSelect().
		Model((*models.SyncEvent)(nil)).
		ColumnExpr("max(id)").
		Where("baby_id = ?", babyID).
		Scan(ctx, &latest)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	status := &Status{BabyID: babyID, EventCount: count}
	if latest.Valid {
		status.LatestEventID = &latest.Int64
	}
	return status, nil
}
