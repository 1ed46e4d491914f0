package models

import (
	"time"

	"github.com/uptrace/bun"
)

type SolidsLog struct {
	bun.BaseModel `bun:"table:solids_logs,alias:sol"`

	ID          string    `bun:",pk" json:"id"`
	BabyID      int64     `json:"baby_id"`
	CreatedByID int64     `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Food        string    `json:"food"`
	AmountGrams float64   `json:"amount_grams,omitempty"`
	Reaction    string    `json:"reaction,omitempty"` // liked|disliked|allergic|neutral
	OccurredAt  time.Time `json:"occurred_at"`
	Note        string    `json:"note,omitempty"`
}

func (l *SolidsLog) RecordID() string           { return l.ID }
func (l *SolidsLog) RecordBabyID() int64        { return l.BabyID }
func (l *SolidsLog) RecordUpdatedAt() time.Time { return l.UpdatedAt }
func (l *SolidsLog) SetRecordID(id string)      { l.ID = id }
func (l *SolidsLog) Touch(now time.Time)        { l.UpdatedAt = now }

func (l *SolidsLog) Stamp(authorID int64, now time.Time) {
	l.CreatedByID = authorID
	l.CreatedAt = now
	l.UpdatedAt = now
}
