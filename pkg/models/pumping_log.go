package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PumpingLog struct {
	bun.BaseModel `bun:"table:pumping_logs,alias:pl"`

	ID          string    `bun:",pk" json:"id"`
	BabyID      int64     `json:"baby_id"`
	CreatedByID int64     `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Side            string    `json:"side,omitempty"` // left|right|both
	AmountML        float64   `json:"amount_ml,omitempty"`
	DurationSeconds int       `json:"duration_seconds,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	Note            string    `json:"note,omitempty"`
}

func (l *PumpingLog) RecordID() string           { return l.ID }
func (l *PumpingLog) RecordBabyID() int64        { return l.BabyID }
func (l *PumpingLog) RecordUpdatedAt() time.Time { return l.UpdatedAt }
func (l *PumpingLog) SetRecordID(id string)      { l.ID = id }
func (l *PumpingLog) Touch(now time.Time)        { l.UpdatedAt = now }

func (l *PumpingLog) Stamp(authorID int64, now time.Time) {
	l.CreatedByID = authorID
	l.CreatedAt = now
	l.UpdatedAt = now
}
