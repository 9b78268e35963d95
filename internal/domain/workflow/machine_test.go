package workflow

import (
	"errors"
	"testing"
)

func TestExpenseStatus_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		status   ExpenseStatus
		expected bool
	}{
		{"draft", StatusDraft, true},
		{"paid", StatusPaid, true},
		{"lowercase is not a status", ExpenseStatus("draft"), false},
		{"empty status", ExpenseStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.expected {
				t.Errorf("ExpenseStatus.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestExpenseStatus_IsEditable(t *testing.T) {
	tests := []struct {
		status   ExpenseStatus
		expected bool
	}{
		{StatusDraft, true},
		{StatusSubmitted, false},
		{StatusManagerReturned, true},
		{StatusManagerRejected, true},
		{StatusManagerApproved, false},
		{StatusAccountsReturned, true},
		{StatusAccountsApproved, false},
		{StatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsEditable(); got != tt.expected {
				t.Errorf("ExpenseStatus.IsEditable() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestExpenseStatus_IsCommitted(t *testing.T) {
	for _, s := range ExpenseStatuses {
		want := s == StatusAccountsApproved || s == StatusPaid
		if got := s.IsCommitted(); got != want {
			t.Errorf("%s.IsCommitted() = %v, want %v", s, got, want)
		}
	}
}

func TestExpenseTable_Edges(t *testing.T) {
	allowed := map[ExpenseStatus][]ExpenseStatus{
		StatusDraft:            {StatusSubmitted},
		StatusSubmitted:        {StatusManagerApproved, StatusManagerRejected, StatusManagerReturned},
		StatusManagerReturned:  {StatusSubmitted},
		StatusManagerRejected:  {StatusSubmitted},
		StatusManagerApproved:  {StatusAccountsApproved, StatusAccountsReturned},
		StatusAccountsReturned: {StatusSubmitted},
		StatusAccountsApproved: {StatusPaid},
		StatusPaid:             {},
	}

	for _, from := range ExpenseStatuses {
		for _, to := range ExpenseStatuses {
			want := containsState(allowed[from], to)
			if got := ExpenseTable.Allows(from, to); got != want {
				t.Errorf("Allows(%s, %s) = %v, want %v", from, to, got, want)
			}

			err := ExpenseTable.Validate(from, to)
			if want && err != nil {
				t.Errorf("Validate(%s, %s) unexpected error: %v", from, to, err)
			}
			if !want && err == nil {
				t.Errorf("Validate(%s, %s) expected error", from, to)
			}
		}
	}
}

func TestExpenseTable_Terminal(t *testing.T) {
	for _, s := range ExpenseStatuses {
		want := s == StatusPaid
		if got := ExpenseTable.IsTerminal(s); got != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", s, got, want)
		}
	}

	err := ExpenseTable.Validate(StatusPaid, StatusSubmitted)
	if !errors.Is(err, ErrTerminalState) {
		t.Errorf("expected ErrTerminalState, got %v", err)
	}
}

func TestProductionTable(t *testing.T) {
	tests := []struct {
		from    ProductionStatus
		to      ProductionStatus
		wantErr error
	}{
		{ProductionActive, ProductionLocked, nil},
		{ProductionActive, ProductionArchived, nil},
		{ProductionLocked, ProductionActive, nil},
		{ProductionLocked, ProductionArchived, nil},
		{ProductionActive, ProductionActive, ErrInvalidTransition},
		{ProductionArchived, ProductionActive, ErrTerminalState},
		{ProductionArchived, ProductionLocked, ErrTerminalState},
		{ProductionActive, ProductionStatus("paused"), ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := ProductionTable.Validate(tt.from, tt.to)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBuilder_ConfigureTwiceMerges(t *testing.T) {
	b := NewBuilder[ProductionStatus]()
	b.Configure(ProductionActive).Permit(ProductionLocked)
	b.Configure(ProductionActive).Permit(ProductionArchived, ProductionLocked)

	table := b.Build()
	targets := table.Targets(ProductionActive)
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %v", targets)
	}
	if targets[0] != ProductionLocked || targets[1] != ProductionArchived {
		t.Errorf("unexpected target order: %v", targets)
	}
}

func TestBuilder_BuildIsImmutable(t *testing.T) {
	b := NewBuilder[ProductionStatus]()
	b.Configure(ProductionActive).Permit(ProductionLocked)
	table := b.Build()

	b.Configure(ProductionActive).Permit(ProductionArchived)

	if table.Allows(ProductionActive, ProductionArchived) {
		t.Error("table changed after Build")
	}
}

func TestBuilder_PanicsOnInvalidState(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid state")
		}
	}()
	NewBuilder[ExpenseStatus]().Configure(ExpenseStatus("Cancelled"))
}

func TestMachine_Transition(t *testing.T) {
	m, err := NewExpenseMachine(StatusDraft)
	if err != nil {
		t.Fatalf("NewExpenseMachine() error = %v", err)
	}

	path := []ExpenseStatus{
		StatusSubmitted,
		StatusManagerApproved,
		StatusAccountsApproved,
		StatusPaid,
	}
	for _, next := range path {
		if err := m.Transition(next); err != nil {
			t.Fatalf("Transition(%s) error = %v", next, err)
		}
	}
	if m.State() != StatusPaid {
		t.Errorf("State() = %s, want Paid", m.State())
	}
	if len(m.PermittedTargets()) != 0 {
		t.Errorf("expected no targets from Paid, got %v", m.PermittedTargets())
	}
}

func TestMachine_RejectedTransitionKeepsState(t *testing.T) {
	m, _ := NewExpenseMachine(StatusSubmitted)

	err := m.Transition(StatusPaid)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if m.State() != StatusSubmitted {
		t.Errorf("state changed to %s after rejected transition", m.State())
	}
	if !m.CanTransition(StatusManagerReturned) {
		t.Error("expected Submitted -> ManagerReturned to be permitted")
	}
}

func TestNewMachine_InvalidInitialState(t *testing.T) {
	if _, err := NewProductionMachine(ProductionStatus("")); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}
