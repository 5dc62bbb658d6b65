package model

import "time"

type StoreItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       int       `json:"price"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url"`
	IsAvailable bool      `json:"is_available"`
	IsVisible   bool      `json:"is_visible"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Purchase records a redemption. PricePaid is a snapshot: later price
// edits do not rewrite history.
type Purchase struct {
	ID          string    `json:"id"`
	ChildID     string    `json:"child_id"`
	StoreItemID string    `json:"store_item_id"`
	PricePaid   int       `json:"price_paid"`
	PurchasedAt time.Time `json:"purchased_at"`
}
