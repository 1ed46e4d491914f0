package models

import (
	"time"

	"github.com/uptrace/bun"
)

type SleepLog struct {
	bun.BaseModel `bun:"table:sleep_logs,alias:sl"`

	ID          string    `bun:",pk" json:"id"`
	BabyID      int64     `json:"baby_id"`
	CreatedByID int64     `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"` // nil while the nap is ongoing
	Location  string     `json:"location,omitempty"`
	Note      string     `json:"note,omitempty"`
}

func (l *SleepLog) RecordID() string           { return l.ID }
func (l *SleepLog) RecordBabyID() int64        { return l.BabyID }
func (l *SleepLog) RecordUpdatedAt() time.Time { return l.UpdatedAt }
func (l *SleepLog) SetRecordID(id string)      { l.ID = id }
func (l *SleepLog) Touch(now time.Time)        { l.UpdatedAt = now }

func (l *SleepLog) Stamp(authorID int64, now time.Time) {
	l.CreatedByID = authorID
	l.CreatedAt = now
	l.UpdatedAt = now
}
