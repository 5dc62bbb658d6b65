package model

import "time"

type Child struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	BirthDate        *time.Time `json:"birth_date"`
	Gender           string     `json:"gender"`
	AvatarURL        string     `json:"avatar_url"`
	Level            int        `json:"level"`
	ExperiencePoints int        `json:"experience_points"`
	// CoinBalance is owned by the ledger package. Nothing else writes it.
	CoinBalance int       `json:"coin_balance"`
	ParentID    string    `json:"parent_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
