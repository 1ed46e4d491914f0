package sync

import "github.com/segmentio/encoding/json"

// MutationPayload is one mutation in a push batch.
type MutationPayload struct {
	MutationID string          `json:"mutationId" mod:"trim" validate:"required"`
	EntityType string          `json:"entityType" mod:"trim" validate:"required"`
	EntityID   string          `json:"entityId" mod:"trim" validate:"required"`
	Op         string          `json:"op" mod:"trim" validate:"required"`
	Payload    json.RawMessage `json:"payload"`
}

// PushPayload represents the request body for the push endpoint. Presence
// of mutations is checked in the handler: a missing batch is a 400, not a
// validation 422.
type PushPayload struct {
	Mutations []MutationPayload `json:"mutations" validate:"dive"`
}
