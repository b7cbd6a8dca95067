// Package contract executes named, pre-registered state transitions.
//
// An Engine exclusively owns one ContractState. The state only changes
// when a registered Transition returns successfully, in which case the
// result replaces the whole state; a failing transition leaves it as it was.
package contract

import (
	"sync"

	"github.com/pkg/errors"

	"fractal-ledger/fault"
	"fractal-ledger/models"
)

// Transition maps a state and arguments to the next state. Implementations
// must not modify the state they are given.
type Transition interface {
	Apply(state models.ContractState, args ...any) (models.ContractState, error)
}

// TransitionFunc adapts an ordinary function to a Transition
type TransitionFunc func(state models.ContractState, args ...any) (models.ContractState, error)

func (f TransitionFunc) Apply(state models.ContractState, args ...any) (models.ContractState, error) {
	return f(state, args...)
}

type Engine struct {
	mux sync.Mutex

	state       models.ContractState
	transitions map[string]Transition
}

// NewEngine takes ownership of a copy of initial
func NewEngine(initial models.ContractState) *Engine {
	if initial == nil {
		initial = models.ContractState{}
	}
	return &Engine{
		state:       initial.Clone(),
		transitions: make(map[string]Transition),
	}
}

// Register stores t under name, replacing any earlier registration
func (e *Engine) Register(name string, t Transition) {
	e.mux.Lock()
	defer e.mux.Unlock()
	e.transitions[name] = t
}

// RegisterFunc is Register for a plain function
func (e *Engine) RegisterFunc(name string, f func(models.ContractState, ...any) (models.ContractState, error)) {
	e.Register(name, TransitionFunc(f))
}

// Registered reports whether name has a transition
func (e *Engine) Registered(name string) bool {
	e.mux.Lock()
	defer e.mux.Unlock()
	_, ok := e.transitions[name]
	return ok
}

// Execute runs the named transition against the current state
func (e *Engine) Execute(name string, args ...any) (models.ContractState, error) {
	e.mux.Lock()
	defer e.mux.Unlock()

	t, ok := e.transitions[name]
	if !ok {
		return nil, errors.Wrapf(fault.ErrFunctionNotFound, "function: %q", name)
	}

	// transitions work on a copy; e.state is only replaced on success
	next, err := t.Apply(e.state.Clone(), args...)
	if err != nil {
		return nil, err
	}
	if next == nil {
		next = models.ContractState{}
	}
	e.state = next
	return e.state.Clone(), nil
}

// State returns a snapshot of the current state
func (e *Engine) State() models.ContractState {
	e.mux.Lock()
	defer e.mux.Unlock()
	return e.state.Clone()
}
