package contract

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"fractal-ledger/fault"
	"fractal-ledger/logger"
	"fractal-ledger/models"
)

// names of the built-in transitions
const (
	Transfer            = "transfer"
	DistributeDividends = "distributeDividends"
)

// RegisterTransfer installs transfer(amount): debit the balance
func (e *Engine) RegisterTransfer() {
	e.Register(Transfer, TransitionFunc(transfer))
}

// RegisterDividendPayout installs distributeDividends(amounts): debit the
// sum of all payouts in one step
func (e *Engine) RegisterDividendPayout() {
	e.Register(DistributeDividends, TransitionFunc(distributeDividends))
}

func transfer(state models.ContractState, args ...any) (models.ContractState, error) {
	amount, err := numberArg(Transfer, args, 0)
	if err != nil {
		return nil, err
	}
	if amount < 0 {
		return nil, errors.Wrapf(fault.ErrInvalidArgument, "function: %q negative amount: %v", Transfer, amount)
	}
	balance := state.Balance()
	if amount > balance {
		return nil, errors.Wrapf(fault.ErrInsufficientBalance, "function: %q amount: %v balance: %v", Transfer, amount, balance)
	}

	logger.Logger.Debug("Transfer",
		zap.Float64("amount", amount), zap.Float64("balance", balance-amount))
	return state.WithBalance(balance - amount), nil
}

func distributeDividends(state models.ContractState, args ...any) (models.ContractState, error) {
	if len(args) < 1 {
		return nil, errors.Wrapf(fault.ErrInvalidArgument, "function: %q missing payouts", DistributeDividends)
	}
	amounts, err := payoutsArg(args[0])
	if err != nil {
		return nil, err
	}

	total := 0.0
	for _, a := range amounts {
		if a < 0 {
			return nil, errors.Wrapf(fault.ErrInvalidArgument, "function: %q negative payout: %v", DistributeDividends, a)
		}
		total += a
	}
	balance := state.Balance()
	if total > balance {
		return nil, errors.Wrapf(fault.ErrInsufficientBalance, "function: %q amount: %v balance: %v", DistributeDividends, total, balance)
	}
	return state.WithBalance(balance - total), nil
}

func numberArg(name string, args []any, i int) (float64, error) {
	if i >= len(args) {
		return 0, errors.Wrapf(fault.ErrInvalidArgument, "function: %q missing argument %d", name, i)
	}
	switch v := args[i].(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	}
	return 0, errors.Wrapf(fault.ErrInvalidArgument, "function: %q argument %d: %T", name, i, args[i])
}

// payoutsArg accepts []float64 or a decoded JSON array of numbers
func payoutsArg(arg any) ([]float64, error) {
	switch v := arg.(type) {
	case []float64:
		return v, nil
	case []any:
		amounts := make([]float64, len(v))
		for i := range v {
			a, err := numberArg(DistributeDividends, v, i)
			if err != nil {
				return nil, err
			}
			amounts[i] = a
		}
		return amounts, nil
	}
	return nil, errors.Wrapf(fault.ErrInvalidArgument, "function: %q payouts: %T", DistributeDividends, arg)
}
