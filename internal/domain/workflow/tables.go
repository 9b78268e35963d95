package workflow

// ExpenseTable is the expense approval pipeline. Paid is terminal.
var ExpenseTable = buildExpenseTable()

// ProductionTable is the production lifecycle. Archived is terminal.
var ProductionTable = buildProductionTable()

func buildExpenseTable() *Table[ExpenseStatus] {
	b := NewBuilder[ExpenseStatus]()

	b.Configure(StatusDraft).
		Permit(StatusSubmitted)

	b.Configure(StatusSubmitted).
		Permit(StatusManagerApproved, StatusManagerRejected, StatusManagerReturned)

	// returned and rejected expenses re-enter the pipeline by resubmission
	b.Configure(StatusManagerReturned).
		Permit(StatusSubmitted)
	b.Configure(StatusManagerRejected).
		Permit(StatusSubmitted)
	b.Configure(StatusAccountsReturned).
		Permit(StatusSubmitted)

	b.Configure(StatusManagerApproved).
		Permit(StatusAccountsApproved, StatusAccountsReturned)

	b.Configure(StatusAccountsApproved).
		Permit(StatusPaid)

	b.Configure(StatusPaid)

	return b.Build()
}

func buildProductionTable() *Table[ProductionStatus] {
	b := NewBuilder[ProductionStatus]()

	b.Configure(ProductionActive).
		Permit(ProductionLocked, ProductionArchived)

	b.Configure(ProductionLocked).
		Permit(ProductionActive, ProductionArchived)

	b.Configure(ProductionArchived)

	return b.Build()
}

// NewExpenseMachine returns a machine over ExpenseTable at the given status
func NewExpenseMachine(current ExpenseStatus) (*Machine[ExpenseStatus], error) {
	return NewMachine(ExpenseTable, current)
}

// NewProductionMachine returns a machine over ProductionTable at the given status
func NewProductionMachine(current ProductionStatus) (*Machine[ProductionStatus], error) {
	return NewMachine(ProductionTable, current)
}
