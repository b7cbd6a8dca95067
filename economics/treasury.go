package economics

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"fractal-ledger/contract"
	"fractal-ledger/fault"
	"fractal-ledger/logger"
	"fractal-ledger/models"
)

// Policy holds the supply parameters of the ledger
type Policy struct {
	TotalSupply   float64
	OuterFraction float64
	InnerFraction float64
	DecayFactor   float64
}

// DefaultPolicy is the 21M supply with 35% per outer partition and 30% burned
func DefaultPolicy() Policy {
	return Policy{
		TotalSupply:   21000000,
		OuterFraction: 0.35,
		InnerFraction: 0.30,
		DecayFactor:   DefaultDecayFactor,
	}
}

// GenesisReport describes the outcome of the genesis allocation
type GenesisReport struct {
	models.Allocation
	ContractBalance float64 `json:"contract_balance"`
	TotalBurned     float64 `json:"total_burned"`
}

// Treasury drives the policy through a transition engine whose balance
// starts at the total supply
type Treasury struct {
	mux       sync.Mutex
	policy    Policy
	engine    *contract.Engine
	burn      *BurnProtocol
	dividends *DividendSystem
	genesis   *GenesisReport
}

func NewTreasury(policy Policy, burn *BurnProtocol, dividends *DividendSystem) *Treasury {
	if burn == nil {
		burn = NewBurnProtocol()
	}
	if dividends == nil {
		dividends = NewDividendSystem(policy.DecayFactor)
	}
	engine := contract.NewEngine(models.ContractState{models.BalanceKey: policy.TotalSupply})
	engine.RegisterTransfer()
	engine.RegisterDividendPayout()

	return &Treasury{
		policy:    policy,
		engine:    engine,
		burn:      burn,
		dividends: dividends,
	}
}

// Genesis moves the community mineable supply out of the treasury and
// triple burns the inner partition, if any. It runs once; later calls
// return the first report. A failed call leaves the treasury untouched.
func (t *Treasury) Genesis() (GenesisReport, error) {
	t.mux.Lock()
	defer t.mux.Unlock()

	if t.genesis != nil {
		return *t.genesis, nil
	}

	alloc, err := Allocate(t.policy.TotalSupply, t.policy.OuterFraction, t.policy.InnerFraction)
	if err != nil {
		return GenesisReport{}, err
	}
	// the transfer is the only step that can fail; once it commits the
	// burn must not, so an empty inner partition is skipped
	state, err := t.engine.Execute(contract.Transfer, alloc.CommunityMineable)
	if err != nil {
		return GenesisReport{}, err
	}
	if alloc.Burned > 0 {
		if err := t.burn.TripleBurn(alloc.Burned); err != nil {
			return GenesisReport{}, err
		}
	}

	report := GenesisReport{
		Allocation:      alloc,
		ContractBalance: state.Balance(),
		TotalBurned:     t.burn.TotalBurned(),
	}
	t.genesis = &report

	logger.Logger.Info("Genesis allocation",
		zap.Float64("community_mineable", alloc.CommunityMineable),
		zap.Float64("burned", alloc.Burned),
		zap.Float64("contract_balance", report.ContractBalance))
	return report, nil
}

// Burn triple burns amount from the treasury balance
func (t *Treasury) Burn(amount float64) (models.ContractState, error) {
	if amount <= 0 {
		return nil, errors.Wrapf(fault.ErrNonPositiveAmount, "burn amount: %v", amount)
	}

	t.mux.Lock()
	defer t.mux.Unlock()

	state, err := t.engine.Execute(contract.Transfer, amount)
	if err != nil {
		return nil, err
	}
	if err := t.burn.TripleBurn(amount); err != nil {
		return nil, err
	}
	return state, nil
}

// PayDividends debits the decayed dividends of holders from the treasury
// and records them; nothing is recorded when the debit fails
func (t *Treasury) PayDividends(holders []models.Holder) (float64, error) {
	t.mux.Lock()
	defer t.mux.Unlock()

	payouts, err := t.dividends.Dividends(holders)
	if err != nil {
		return 0, err
	}
	if _, err := t.engine.Execute(contract.DistributeDividends, payouts); err != nil {
		return 0, err
	}
	return t.dividends.record(payouts), nil
}

// Engine is the transition engine holding the treasury balance
func (t *Treasury) Engine() *contract.Engine {
	return t.engine
}

// State returns the treasury contract state
func (t *Treasury) State() models.ContractState {
	return t.engine.State()
}

func (t *Treasury) TotalBurned() float64 {
	return t.burn.TotalBurned()
}

func (t *Treasury) TotalDistributed() float64 {
	return t.dividends.TotalDistributed()
}
