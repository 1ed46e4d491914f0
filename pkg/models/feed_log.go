package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Feed types.
const (
	FeedTypeBreast = "breast"
	FeedTypeBottle = "bottle"
)

type FeedLog struct {
	bun.BaseModel `bun:"table:feed_logs,alias:fl"`

	ID          string    `bun:",pk" json:"id"`
	BabyID      int64     `json:"baby_id"`
	CreatedByID int64     `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	FeedType        string    `json:"feed_type"`
	Side            string    `json:"side,omitempty"` // left|right|both for breast feeds
	DurationSeconds int       `json:"duration_seconds,omitempty"`
	AmountML        float64   `json:"amount_ml,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	Note            string    `json:"note,omitempty"`
}

func (l *FeedLog) RecordID() string           { return l.ID }
func (l *FeedLog) RecordBabyID() int64        { return l.BabyID }
func (l *FeedLog) RecordUpdatedAt() time.Time { return l.UpdatedAt }
func (l *FeedLog) SetRecordID(id string)      { l.ID = id }
func (l *FeedLog) Touch(now time.Time)        { l.UpdatedAt = now }

func (l *FeedLog) Stamp(authorID int64, now time.Time) {
	l.CreatedByID = authorID
	l.CreatedAt = now
	l.UpdatedAt = now
}
