package workflow

import "fmt"

// Table is an immutable transition table keyed by source state
type Table[S State] struct {
	states []S
	edges  map[S][]S
}

// Allows reports whether to is reachable from from in one step
func (t *Table[S]) Allows(from, to S) bool {
	return containsState(t.edges[from], to)
}

// Targets returns the states reachable from the given state, in configured order
func (t *Table[S]) Targets(from S) []S {
	return append([]S{}, t.edges[from]...)
}

// IsTerminal returns true if the state has no outgoing transitions
func (t *Table[S]) IsTerminal(state S) bool {
	return len(t.edges[state]) == 0
}

// States returns every configured source state
func (t *Table[S]) States() []S {
	return append([]S{}, t.states...)
}

// Validate returns nil when from -> to is a permitted edge
func (t *Table[S]) Validate(from, to S) error {
	if !from.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidState, string(from))
	}
	if !to.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidState, string(to))
	}
	if t.IsTerminal(from) {
		return fmt.Errorf("%w: %s has no outgoing transitions", ErrTerminalState, string(from))
	}
	if !t.Allows(from, to) {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidTransition, string(from), string(to))
	}
	return nil
}

// Machine tracks the current state of one entity against a Table
type Machine[S State] struct {
	currentState S
	table        *Table[S]
}

// NewMachine creates a machine positioned at the initial state
func NewMachine[S State](table *Table[S], initialState S) (*Machine[S], error) {
	if !initialState.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, string(initialState))
	}
	return &Machine[S]{currentState: initialState, table: table}, nil
}

// State returns the current state
func (m *Machine[S]) State() S {
	return m.currentState
}

// CanTransition returns true if to is reachable from the current state
func (m *Machine[S]) CanTransition(to S) bool {
	return m.table.Allows(m.currentState, to)
}

// Transition moves the machine to the target state if the table permits it
func (m *Machine[S]) Transition(to S) error {
	if err := m.table.Validate(m.currentState, to); err != nil {
		return err
	}
	m.currentState = to
	return nil
}

// PermittedTargets returns all states reachable from the current state
func (m *Machine[S]) PermittedTargets() []S {
	return m.table.Targets(m.currentState)
}
