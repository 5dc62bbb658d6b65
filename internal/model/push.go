package model

import "time"

// Notification type constants
const (
	NotifTypeQuestsDue     = "quests_due"
	NotifTypeTaskCompleted = "task_completed"
	NotifTypePurchaseMade  = "purchase_made"
)

type PushSubscription struct {
	ID         string    `json:"id"`
	ProfileID  string    `json:"profile_id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}
