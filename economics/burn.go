package economics

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"fractal-ledger/fault"
	"fractal-ledger/logger"
)

const burnStages = 3

// BurnProtocol keeps the running total of retired tokens
type BurnProtocol struct {
	mux sync.Mutex

	totalBurned float64
}

func NewBurnProtocol() *BurnProtocol {
	return &BurnProtocol{}
}

// Burn retires amount in a single step
func (b *BurnProtocol) Burn(amount float64) error {
	if amount <= 0 {
		return errors.Wrapf(fault.ErrNonPositiveAmount, "burn amount: %v", amount)
	}
	b.mux.Lock()
	defer b.mux.Unlock()
	b.burn(amount)
	return nil
}

// TripleBurn retires amount in three equal stages of amount/3. The stage
// sum can differ from amount in the last binary digit; that drift is
// recorded as is.
func (b *BurnProtocol) TripleBurn(amount float64) error {
	if amount <= 0 {
		return errors.Wrapf(fault.ErrNonPositiveAmount, "burn amount: %v", amount)
	}
	stage := amount / burnStages

	b.mux.Lock()
	defer b.mux.Unlock()
	for i := 0; i < burnStages; i++ {
		b.burn(stage)
	}
	return nil
}

// ensure locked before calling this
func (b *BurnProtocol) burn(amount float64) {
	b.totalBurned += amount
	logger.Logger.Info("Burned tokens",
		zap.Float64("amount", amount), zap.Float64("total_burned", b.totalBurned))
}

func (b *BurnProtocol) TotalBurned() float64 {
	b.mux.Lock()
	defer b.mux.Unlock()
	return b.totalBurned
}
