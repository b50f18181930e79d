package auth

import (
	"fmt"
)

// State is a stage of the PKCE login.
type State string

const (
	Unauthenticated  State = "unauthenticated"
	AwaitingRedirect State = "awaiting_redirect"
	CodeReceived     State = "code_received"
	TokenCached      State = "token_cached"
)

var transitions = map[State][]State{
	Unauthenticated:  {AwaitingRedirect},
	AwaitingRedirect: {CodeReceived},
	CodeReceived:     {TokenCached},
	TokenCached:      {Unauthenticated},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Step is one recorded transition.
type Step struct {
	From State
	To   State
}

// Machine tracks the current state and the steps taken in one resolution.
type Machine struct {
	current State
	steps   []Step
	onStep  func(Step)
}

// NewMachine starts in the given state. onStep may be nil.
func NewMachine(start State, onStep func(Step)) *Machine {
	return &Machine{current: start, onStep: onStep}
}

// Current returns the current state.
func (m *Machine) Current() State { return m.current }

// Steps returns the transitions taken so far.
func (m *Machine) Steps() []Step { return m.steps }

// To moves to next or fails with ErrInvalidTransition.
func (m *Machine) To(next State) error {
	if !CanTransition(m.current, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.current, next)
	}
	step := Step{From: m.current, To: next}
	m.current = next
	m.steps = append(m.steps, step)
	if m.onStep != nil {
		m.onStep(step)
	}
	return nil
}

// Assume sets the current state without recording a step. It resumes a
// flow whose earlier stage ran in a previous request.
func (m *Machine) Assume(s State) { m.current = s }
