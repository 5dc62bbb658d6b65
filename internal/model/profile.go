package model

import "time"

// User types for profiles.
const (
	UserTypeParent = "parent"
	UserTypeChild  = "child"
)

type Profile struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	UserType    string    `json:"user_type"`
	HasPIN      bool      `json:"has_pin"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
