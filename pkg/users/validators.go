package users

// RegisterPayload represents the request body for registering the caller's
// local user record.
type RegisterPayload struct {
	DisplayName string `json:"display_name" mod:"trim" validate:"omitempty,max=100"`
}
