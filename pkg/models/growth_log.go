package models

import (
	"time"

	"github.com/uptrace/bun"
)

type GrowthLog struct {
	bun.BaseModel `bun:"table:growth_logs,alias:gl"`

	ID          string    `bun:",pk" json:"id"`
	BabyID      int64     `json:"baby_id"`
	CreatedByID int64     `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	WeightKG            float64   `json:"weight_kg,omitempty"`
	HeightCM            float64   `json:"height_cm,omitempty"`
	HeadCircumferenceCM float64   `json:"head_circumference_cm,omitempty"`
	MeasuredAt          time.Time `json:"measured_at"`
	Note                string    `json:"note,omitempty"`
}

func (l *GrowthLog) RecordID() string           { return l.ID }
func (l *GrowthLog) RecordBabyID() int64        { return l.BabyID }
func (l *GrowthLog) RecordUpdatedAt() time.Time { return l.UpdatedAt }
func (l *GrowthLog) SetRecordID(id string)      { l.ID = id }
func (l *GrowthLog) Touch(now time.Time)        { l.UpdatedAt = now }

func (l *GrowthLog) Stamp(authorID int64, now time.Time) {
	l.CreatedByID = authorID
	l.CreatedAt = now
	l.UpdatedAt = now
}
