// File: internal/nav/state.go
package nav

import (
	"sync"

	"github.com/tinkertool/tinker/internal/errs"
)

// StateKind enumerates the page-load states a tab can be in.
type StateKind string

const (
	StateIdle    StateKind = "idle"
	StateLoading StateKind = "loading"
	StateError   StateKind = "error"
)

// State is the load state plus the error message when Kind is StateError.
type State struct {
	Kind    StateKind
	Message string
}

// Idle, Loading and ErrorState are the canonical constructors.
func Idle() State                 { return State{Kind: StateIdle} }
func Loading() State              { return State{Kind: StateLoading} }
func ErrorState(msg string) State { return State{Kind: StateError, Message: msg} }

// StateMachine enforces legal load-state transitions for one tab:
//
//	Idle    -> Loading
//	Loading -> Idle
//	Error   -> Loading
//	any     -> Error
//
// Anything else is a programmer error and is rejected.
type StateMachine struct {
	mu    sync.RWMutex
	state State
}

// NewStateMachine starts in Idle.
func NewStateMachine() *StateMachine {
	return &StateMachine{state: Idle()}
}

// Current returns the present state.
func (m *StateMachine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// TransitionTo moves to next, failing with InvalidTransitionError when the
// edge is not legal.
func (m *StateMachine) TransitionTo(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !legalTransition(m.state.Kind, next.Kind) {
		return &errs.InvalidTransitionError{
			From: string(m.state.Kind),
			To:   string(next.Kind),
		}
	}
	m.state = next
	return nil
}

func legalTransition(from, to StateKind) bool {
	if to == StateError {
		return true
	}
	switch from {
	case StateIdle:
		return to == StateLoading
	case StateLoading:
		return to == StateIdle
	case StateError:
		return to == StateLoading
	}
	return false
}
