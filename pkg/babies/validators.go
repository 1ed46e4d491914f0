package babies

// CreateBabyPayload represents the request body for creating a baby.
type CreateBabyPayload struct {
	Name      string `json:"name" mod:"trim" validate:"required,max=100"`
	Birthdate string `json:"birthdate" validate:"omitempty,date"`
}

// GrantAccessPayload represents the request body for granting a caregiver
// role on a baby.
type GrantAccessPayload struct {
	UserID int64  `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=owner editor viewer"`
}
