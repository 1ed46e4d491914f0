package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is the local record for an externally-authenticated caller. Identity
// is the opaque subject from the auth provider's token; nestlog never sees
// credentials.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID          int64     `bun:",pk,autoincrement" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Identity    string    `bun:",nullzero,unique" json:"-"`
	DisplayName string    `json:"display_name"`
}
