package loginpage

import (
	"fmt"
	"sync"
)

// Step is the view state exposed to the rendering boundary
type Step string

const (
	StepLogin         Step = "login"
	StepTwoFactor     Step = "twoFactor"
	StepAuthenticated Step = "authenticated"
)

// IsTerminal reports whether no transition leaves the step
func (s Step) IsTerminal() bool {
	return s == StepAuthenticated
}

// StepTransition describes a change of step
type StepTransition struct {
	From Step
	To   Step
}

// StepMachine guards the step graph of the flow:
// login -> twoFactor -> authenticated, and twoFactor -> login.
type StepMachine struct {
	mu          sync.Mutex
	current     Step
	transitions map[Step]map[Step]struct{}
}

// NewStepMachine returns a machine positioned at StepLogin
func NewStepMachine() *StepMachine {
	return &StepMachine{
		current: StepLogin,
		transitions: map[Step]map[Step]struct{}{
			StepLogin: {
				StepTwoFactor: {},
			},
			StepTwoFactor: {
				StepLogin:         {},
				StepAuthenticated: {},
			},
		},
	}
}

// Current returns the active step
func (sm *StepMachine) Current() Step {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.current
}

// CanTransition reports whether the graph allows from -> to
func (sm *StepMachine) CanTransition(from, to Step) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// Transition moves to target. It fails with ErrInvalidTransition when the
// active step is not from or the graph has no such edge.
func (sm *StepMachine) Transition(from, target Step) (StepTransition, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.current != from {
		return StepTransition{}, fmt.Errorf("%w: expected %s, at %s", ErrInvalidTransition, from, sm.current)
	}

	if !sm.CanTransition(from, target) {
		return StepTransition{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, target)
	}

	sm.current = target
	return StepTransition{From: from, To: target}, nil
}
