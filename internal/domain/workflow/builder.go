package workflow

import (
	"fmt"
)

// TableBuilder collects the permitted edges of a transition table
type TableBuilder[S State] interface {
	// Configure returns the configuration for transitions leaving state
	Configure(state S) StateConfiguration[S]

	// Build freezes the configured edges into an immutable Table
	Build() *Table[S]
}

// StateConfiguration configures transitions for a specific state
type StateConfiguration[S State] interface {
	// Permit allows a transition to each of the target states
	Permit(targets ...S) StateConfiguration[S]
}

type stateConfig[S State] struct {
	fromState S
	targets   []S
}

type tableBuilder[S State] struct {
	order          []S
	configurations map[S]*stateConfig[S]
}

// NewBuilder creates a new transition table builder
func NewBuilder[S State]() TableBuilder[S] {
	return &tableBuilder[S]{
		configurations: make(map[S]*stateConfig[S]),
	}
}

// Configure returns the configuration for the given state, creating it on first use
func (b *tableBuilder[S]) Configure(state S) StateConfiguration[S] {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", string(state)))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig[S]{fromState: state}
		b.configurations[state] = config
		b.order = append(b.order, state)
	}

	return config
}

// Permit adds target states, ignoring duplicates
func (c *stateConfig[S]) Permit(targets ...S) StateConfiguration[S] {
	for _, to := range targets {
		if !to.IsValid() {
			panic(fmt.Sprintf("invalid target state: %s", string(to)))
		}
		if !containsState(c.targets, to) {
			c.targets = append(c.targets, to)
		}
	}
	return c
}

// Build copies the configuration so later Configure calls do not leak into the table
func (b *tableBuilder[S]) Build() *Table[S] {
	edges := make(map[S][]S, len(b.configurations))
	for state, config := range b.configurations {
		edges[state] = append([]S{}, config.targets...)
	}

	return &Table[S]{
		states: append([]S{}, b.order...),
		edges:  edges,
	}
}

func containsState[S State](states []S, s S) bool {
	for _, candidate := range states {
		if candidate == s {
			return true
		}
	}
	return false
}
