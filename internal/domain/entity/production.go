package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/cineexpense/internal/domain/workflow"
)

// Production is the tenant that owns departments, expenses and users
type Production struct {
	ID                      string                    `json:"id"`
	Name                    string                    `json:"name"`
	Status                  workflow.ProductionStatus `json:"status"`
	BaseCurrency            string                    `json:"base_currency"`
	BudgetAlertThreshold    decimal.Decimal           `json:"budget_alert_threshold"`
	ProducerOverrideEnabled bool                      `json:"producer_override_enabled"`
	CreatedAt               time.Time                 `json:"created_at"`
}

// Department is a budget holder inside a production
type Department struct {
	ID              string          `json:"id"`
	ProductionID    string          `json:"production_id"`
	Name            string          `json:"name"`
	AllocatedBudget decimal.Decimal `json:"allocated_budget"`
	CreatedAt       time.Time       `json:"created_at"`
}

// User is a member of a production's directory
type User struct {
	ID           string    `json:"id"`
	ProductionID string    `json:"production_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	LarkOpenID   string    `json:"lark_open_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
