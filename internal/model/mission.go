package model

import "time"

// SpecialMission is a one-off bonus challenge outside the recurring task
// system. Completing one credits the child through the ledger like any
// other reward.
type SpecialMission struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Points      int        `json:"points"`
	Prize       string     `json:"prize"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
