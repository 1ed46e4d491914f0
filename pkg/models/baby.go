package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Caregiver roles, in decreasing order of capability. Owners and editors may
// push mutations; any role may pull.
const (
	RoleOwner  = "owner"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// CanEdit reports whether the given caregiver role allows writes.
func CanEdit(role string) bool {
	return role == RoleOwner || role == RoleEditor
}

type Baby struct {
	bun.BaseModel `bun:"table:babies,alias:b"`

	ID          int64     `bun:",pk,autoincrement" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `bun:",nullzero" json:"name"`
	Birthdate   string    `json:"birthdate"` // YYYY-MM-DD
	CreatedByID int64     `json:"created_by_id"`

	// Relations
	Caregivers []*BabyCaregiver `bun:"rel:has-many,join:id=baby_id" json:"caregivers,omitempty"`
}

// BabyCaregiver grants one user one role on one baby.
type BabyCaregiver struct {
	bun.BaseModel `bun:"table:baby_caregivers,alias:bc"`

	ID        int64     `bun:",pk,autoincrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	BabyID    int64     `json:"baby_id"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`

	// Relations
	User *User `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
}
