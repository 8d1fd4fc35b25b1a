// Package fsm implements the finite state machine that tracks whether a monitored process is in statistical control
package fsm

import (
	"fmt"
	"sync"
)

// State represents a possible state of the machine
type State string

// Hook is called after every successful transition, outside the machine lock
type Hook func(from, to State)

// Machine is a basic finite state machine that is safe for concurrent use
type Machine struct {
	mu        sync.Mutex
	current   State
	initial   State
	allowable map[State][]State
	hooks     []Hook
}

// NewMachine returns a new Machine with configured options.  Without options the machine has no transitions.
func NewMachine(initial State, opts ...MachineOption) (*Machine, error) {
	machine := &Machine{
		current:   initial,
		initial:   initial,
		allowable: map[State][]State{},
	}
	for _, opt := range opts {
		if err := opt(machine); err != nil {
			return nil, err
		}
	}
	return machine, nil
}

// State returns the current state of the Machine
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Allowable checks whether a transition between two states is allowable
func (m *Machine) Allowable(from, to State) bool {
	return contains(to, m.allowable[from])
}

// Transition changes the current state if the edge exists.  Transitioning to the current state is a no-op and does
// not call hooks.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	from := m.current
	if from == to {
		m.mu.Unlock()
		return nil
	}
	if !m.Allowable(from, to) {
		m.mu.Unlock()
		return TransitionNotAllowed{From: from, To: to}
	}
	m.current = to
	hooks := append([]Hook{}, m.hooks...)
	m.mu.Unlock()

	for _, h := range hooks {
		h(from, to)
	}
	return nil
}

// Reset puts the machine back in its initial state.  Hooks are called if the state changed.
func (m *Machine) Reset() {
	m.mu.Lock()
	from := m.current
	m.current = m.initial
	hooks := append([]Hook{}, m.hooks...)
	m.mu.Unlock()

	if from == m.initial {
		return
	}
	for _, h := range hooks {
		h(from, m.initial)
	}
}

func contains(s State, all []State) bool {
	for _, a := range all {
		if s == a {
			return true
		}
	}
	return false
}

// TransitionNotAllowed is returned when the machine has no edge between two states
type TransitionNotAllowed struct {
	From State
	To   State
}

func (e TransitionNotAllowed) Error() string {
	return fmt.Sprintf("cannot transition from state %s to %s", e.From, e.To)
}
