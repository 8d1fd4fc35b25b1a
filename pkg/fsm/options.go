package fsm

import "fmt"

// MachineOption represents options to initially set up a machine
type MachineOption func(m *Machine) error

// WithTransitions adds edges built with T(from, to...), e.g.
// NewMachine(Collecting, WithTransitions(T(Collecting, InControl, OutOfControl), T(InControl, OutOfControl)))
func WithTransitions(transitions ...[]Transition) MachineOption {
	return func(m *Machine) error {
		for _, t := range flatten(transitions) {
			if t.From == "" || t.To == "" {
				return fmt.Errorf("transition from %q to %q has an empty state", t.From, t.To)
			}
			if !contains(t.To, m.allowable[t.From]) {
				m.allowable[t.From] = append(m.allowable[t.From], t.To)
			}
		}
		return nil
	}
}

// OnTransition registers a hook called after each successful transition
func OnTransition(h Hook) MachineOption {
	return func(m *Machine) error {
		if h == nil {
			return fmt.Errorf("transition hook must not be nil")
		}
		m.hooks = append(m.hooks, h)
		return nil
	}
}

// Transition represents an allowable transition from one state to another
type Transition struct {
	From State
	To   State
}

// T is a shorthand for declaring allowable transitions during machine creation
func T(from State, tos ...State) []Transition {
	var transitions []Transition
	for _, to := range tos {
		transitions = append(transitions, Transition{From: from, To: to})
	}
	return transitions
}

func flatten(t [][]Transition) []Transition {
	var transitions []Transition
	for _, t1 := range t {
		transitions = append(transitions, t1...)
	}
	return transitions
}
