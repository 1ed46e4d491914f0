package models

import "time"

// Record is implemented by every syncable activity-log model. The sync
// engine goes through this interface so one generic handler can serve all
// entity types.
//
// Activity-log primary keys are client-assigned UUID strings. This is what
// lets a create, its later updates, and its delete share one id space no
// matter which device issued them.
type Record interface {
	RecordID() string
	RecordBabyID() int64
	// RecordUpdatedAt is the last-writer-wins arbitration timestamp. On a
	// decoded client payload it holds the client-observed value; a zero time
	// means the client never saw the row and loses to any server write.
	RecordUpdatedAt() time.Time
	SetRecordID(id string)
	// Stamp marks a freshly created row with its author and server times.
	Stamp(authorID int64, now time.Time)
	// Touch advances the arbitration timestamp.
	Touch(now time.Time)
}
