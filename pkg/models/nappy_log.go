package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Nappy types.
const (
	NappyTypeWet   = "wet"
	NappyTypeDirty = "dirty"
	NappyTypeMixed = "mixed"
)

type NappyLog struct {
	bun.BaseModel `bun:"table:nappy_logs,alias:nl"`

	ID          string    `bun:",pk" json:"id"`
	BabyID      int64     `json:"baby_id"`
	CreatedByID int64     `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	NappyType  string    `json:"nappy_type"`
	OccurredAt time.Time `json:"occurred_at"`
	Note       string    `json:"note,omitempty"`
}

func (l *NappyLog) RecordID() string           { return l.ID }
func (l *NappyLog) RecordBabyID() int64        { return l.BabyID }
func (l *NappyLog) RecordUpdatedAt() time.Time { return l.UpdatedAt }
func (l *NappyLog) SetRecordID(id string)      { l.ID = id }
func (l *NappyLog) Touch(now time.Time)        { l.UpdatedAt = now }

func (l *NappyLog) Stamp(authorID int64, now time.Time) {
	l.CreatedByID = authorID
	l.CreatedAt = now
	l.UpdatedAt = now
}
