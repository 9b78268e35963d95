package event

// Type identifies the type of domain event
type Type string

const (
	TypeExpenseCreated       Type = "expense.created"
	TypeExpenseStatusChanged Type = "expense.status_changed"
	TypeBudgetOverride       Type = "budget.producer_override"
	TypePaymentRecorded      Type = "payment.recorded"
	TypeProductionStatus     Type = "production.status_changed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeExpenseCreated,
		TypeExpenseStatusChanged,
		TypeBudgetOverride,
		TypePaymentRecorded,
		TypeProductionStatus:
		return true
	default:
		return false
	}
}
