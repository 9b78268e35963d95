package workflow

// State is implemented by the status enums driven by a Machine.
type State interface {
	~string
	IsValid() bool
}

// ExpenseStatus is the lifecycle status of an expense
type ExpenseStatus string

const (
	StatusDraft            ExpenseStatus = "Draft"
	StatusSubmitted        ExpenseStatus = "Submitted"
	StatusManagerReturned  ExpenseStatus = "ManagerReturned"
	StatusManagerRejected  ExpenseStatus = "ManagerRejected"
	StatusManagerApproved  ExpenseStatus = "ManagerApproved"
	StatusAccountsReturned ExpenseStatus = "AccountsReturned"
	StatusAccountsApproved ExpenseStatus = "AccountsApproved"
	StatusPaid             ExpenseStatus = "Paid"
)

// ExpenseStatuses lists every expense status in pipeline order.
var ExpenseStatuses = []ExpenseStatus{
	StatusDraft,
	StatusSubmitted,
	StatusManagerReturned,
	StatusManagerRejected,
	StatusManagerApproved,
	StatusAccountsReturned,
	StatusAccountsApproved,
	StatusPaid,
}

var validExpenseStatuses = map[ExpenseStatus]bool{
	StatusDraft:            true,
	StatusSubmitted:        true,
	StatusManagerReturned:  true,
	StatusManagerRejected:  true,
	StatusManagerApproved:  true,
	StatusAccountsReturned: true,
	StatusAccountsApproved: true,
	StatusPaid:             true,
}

var editableExpenseStatuses = map[ExpenseStatus]bool{
	StatusDraft:            true,
	StatusManagerReturned:  true,
	StatusManagerRejected:  true,
	StatusAccountsReturned: true,
}

// committed statuses count against a department budget
var committedExpenseStatuses = map[ExpenseStatus]bool{
	StatusAccountsApproved: true,
	StatusPaid:             true,
}

// IsValid returns true if the status is one of the eight expense statuses
func (s ExpenseStatus) IsValid() bool {
	return validExpenseStatuses[s]
}

// IsEditable returns true while the submitter may still change fields and receipts
func (s ExpenseStatus) IsEditable() bool {
	return editableExpenseStatuses[s]
}

// IsCommitted returns true once the amount is financially committed
func (s ExpenseStatus) IsCommitted() bool {
	return committedExpenseStatuses[s]
}

// String returns the string representation of the status
func (s ExpenseStatus) String() string {
	return string(s)
}

// CommittedExpenseStatuses returns the statuses summed by budget utilization.
func CommittedExpenseStatuses() []ExpenseStatus {
	return []ExpenseStatus{StatusAccountsApproved, StatusPaid}
}

// ProductionStatus is the lifecycle status of a production
type ProductionStatus string

const (
	ProductionActive   ProductionStatus = "active"
	ProductionLocked   ProductionStatus = "locked"
	ProductionArchived ProductionStatus = "archived"
)

var validProductionStatuses = map[ProductionStatus]bool{
	ProductionActive:   true,
	ProductionLocked:   true,
	ProductionArchived: true,
}

// IsValid returns true if the status is active, locked or archived
func (s ProductionStatus) IsValid() bool {
	return validProductionStatuses[s]
}

// IsMutable reports whether expenses of a production in this status may change
func (s ProductionStatus) IsMutable() bool {
	return s == ProductionActive
}

// String returns the string representation of the status
func (s ProductionStatus) String() string {
	return string(s)
}
