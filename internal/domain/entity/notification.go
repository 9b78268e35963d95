package entity

import "time"

// Notification is an in-app message addressed to one user
type Notification struct {
	ID           string                 `json:"id"`
	ProductionID string                 `json:"production_id"`
	UserID       string                 `json:"user_id"`
	Type         string                 `json:"type"`
	Payload      map[string]interface{} `json:"payload"`
	IsRead       bool                   `json:"is_read"`
	CreatedAt    time.Time              `json:"created_at"`
}

// Notification types
const (
	NotificationStatusChanged     = "expense.status_changed"
	NotificationBudgetOverride    = "budget.override"
	NotificationThresholdBreached = "budget.threshold_breached"
)
