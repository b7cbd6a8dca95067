package contract_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"fractal-ledger/contract"
	"fractal-ledger/fault"
	"fractal-ledger/models"
)

func TestMachineLifecycle(t *testing.T) {
	m := contract.NewMachine()

	_, err := m.Deploy("treasury", models.ContractState{"balance": 1000.0})
	require.NoError(t, err)
	_, err = m.Deploy("archive", nil)
	require.NoError(t, err)

	_, err = m.Deploy("treasury", nil)
	require.True(t, errors.Is(err, fault.ErrContractExists))

	require.NoError(t, m.Register("treasury", contract.Transfer, contract.TransitionFunc(
		func(s models.ContractState, args ...any) (models.ContractState, error) {
			return s.WithBalance(s.Balance() - 500), nil
		})))

	state, err := m.Execute("treasury", contract.Transfer)
	require.NoError(t, err)
	require.Equal(t, 500.0, state.Balance())

	stored, err := m.State("treasury")
	require.NoError(t, err)
	require.Equal(t, 500.0, stored.Balance())

	require.Equal(t, []string{"archive", "treasury"}, m.List())
}

func TestMachineUnknownContract(t *testing.T) {
	m := contract.NewMachine()

	_, err := m.Execute("ghost", contract.Transfer, 1)
	require.True(t, errors.Is(err, fault.ErrContractNotFound))

	err = m.Register("ghost", "noop", contract.TransitionFunc(nil))
	require.True(t, errors.Is(err, fault.ErrContractNotFound))

	_, err = m.State("ghost")
	require.True(t, fault.IsErrNotFound(err))
}

func TestMachineExecuteAddsContractContext(t *testing.T) {
	m := contract.NewMachine()
	_, err := m.Deploy("treasury", models.ContractState{"balance": 1.0})
	require.NoError(t, err)

	_, err = m.Execute("treasury", "mint")
	require.True(t, errors.Is(err, fault.ErrFunctionNotFound))
	require.Contains(t, err.Error(), `contract: "treasury"`)
	require.Contains(t, err.Error(), `function: "mint"`)
}

func TestMachineAttach(t *testing.T) {
	m := contract.NewMachine()
	e := contract.NewEngine(models.ContractState{"balance": 10.0})
	e.RegisterTransfer()

	require.NoError(t, m.Attach("treasury", e))
	require.True(t, errors.Is(m.Attach("treasury", e), fault.ErrContractExists))
	require.True(t, fault.IsErrInvalid(m.Attach("", e)))

	// the machine drives the same engine the caller holds
	_, err := m.Execute("treasury", contract.Transfer, 4)
	require.NoError(t, err)
	require.Equal(t, 6.0, e.State().Balance())
}

func TestDividendPayoutAcceptsDecodedJSON(t *testing.T) {
	e := contract.NewEngine(models.ContractState{"balance": 10.0})
	e.RegisterDividendPayout()

	state, err := e.Execute(contract.DistributeDividends, []any{1.5, 2.5})
	require.NoError(t, err)
	require.Equal(t, 6.0, state.Balance())

	_, err = e.Execute(contract.DistributeDividends, []any{"one"})
	require.True(t, errors.Is(err, fault.ErrInvalidArgument))
	require.Equal(t, 6.0, e.State().Balance())
}
