package contract

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"fractal-ledger/fault"
	"fractal-ledger/logger"
	"fractal-ledger/models"
)

// Machine hosts several engines, one per deployed contract id
type Machine struct {
	mux       sync.RWMutex
	contracts map[string]*Engine
}

func NewMachine() *Machine {
	return &Machine{contracts: make(map[string]*Engine)}
}

// Deploy creates a contract with the given initial state
func (m *Machine) Deploy(id string, initial models.ContractState) (*Engine, error) {
	m.mux.Lock()
	defer m.mux.Unlock()

	e := NewEngine(initial)
	if err := m.attach(id, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Attach hosts an engine created elsewhere under id
func (m *Machine) Attach(id string, e *Engine) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	return m.attach(id, e)
}

func (m *Machine) attach(id string, e *Engine) error {
	if id == "" {
		return errors.Wrap(fault.ErrInvalidArgument, "contract id is required")
	}
	if _, ok := m.contracts[id]; ok {
		return errors.Wrapf(fault.ErrContractExists, "contract: %q", id)
	}
	m.contracts[id] = e

	logger.Logger.Info("Deployed contract", zap.String("contract_id", id))
	return nil
}

func (m *Machine) engine(id string) (*Engine, error) {
	m.mux.RLock()
	defer m.mux.RUnlock()

	e, ok := m.contracts[id]
	if !ok {
		return nil, errors.Wrapf(fault.ErrContractNotFound, "contract: %q", id)
	}
	return e, nil
}

// Register adds a transition to a deployed contract
func (m *Machine) Register(id string, name string, t Transition) error {
	e, err := m.engine(id)
	if err != nil {
		return err
	}
	e.Register(name, t)
	return nil
}

// Execute runs a transition on a deployed contract
func (m *Machine) Execute(id string, name string, args ...any) (models.ContractState, error) {
	e, err := m.engine(id)
	if err != nil {
		return nil, err
	}
	state, err := e.Execute(name, args...)
	if err != nil {
		return nil, errors.WithMessagef(err, "contract: %q", id)
	}
	return state, nil
}

// State returns a snapshot of a contract's state
func (m *Machine) State(id string) (models.ContractState, error) {
	e, err := m.engine(id)
	if err != nil {
		return nil, err
	}
	return e.State(), nil
}

// List returns the deployed ids in sorted order
func (m *Machine) List() []string {
	m.mux.RLock()
	defer m.mux.RUnlock()

	ids := make([]string, 0, len(m.contracts))
	for id := range m.contracts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
