package economics

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"fractal-ledger/fault"
	"fractal-ledger/logger"
	"fractal-ledger/models"
)

// DefaultDecayFactor halves a dividend per ancestral level
const DefaultDecayFactor = 0.5

// DividendSystem pays shares decayed by ancestry and keeps the lifetime total
type DividendSystem struct {
	mux sync.Mutex

	decay            float64
	totalDistributed float64
}

// NewDividendSystem uses DefaultDecayFactor when decay is outside (0,1]
func NewDividendSystem(decay float64) *DividendSystem {
	if decay <= 0 || decay > 1 {
		decay = DefaultDecayFactor
	}
	return &DividendSystem{decay: decay}
}

// CalculateDividend returns share * decay^ancestralLevel
func (d *DividendSystem) CalculateDividend(share float64, ancestralLevel int) (float64, error) {
	if share <= 0 || ancestralLevel < 0 {
		return 0, errors.Wrapf(fault.ErrInvalidHolder, "share: %v ancestral level: %d", share, ancestralLevel)
	}
	return share * math.Pow(d.decay, float64(ancestralLevel)), nil
}

// Dividends computes every holder's payout; any invalid holder fails the batch
func (d *DividendSystem) Dividends(holders []models.Holder) ([]float64, error) {
	payouts := make([]float64, len(holders))
	for i, h := range holders {
		p, err := d.CalculateDividend(h.Share, h.AncestralLevel)
		if err != nil {
			return nil, errors.WithMessagef(err, "holder %d", i)
		}
		payouts[i] = p
	}
	return payouts, nil
}

// DistributeDividends validates the whole batch, then adds its total to the
// lifetime total and returns it
func (d *DividendSystem) DistributeDividends(holders []models.Holder) (float64, error) {
	payouts, err := d.Dividends(holders)
	if err != nil {
		return 0, err
	}
	return d.record(payouts), nil
}

func (d *DividendSystem) record(payouts []float64) float64 {
	total := 0.0
	for _, p := range payouts {
		total += p
	}

	d.mux.Lock()
	defer d.mux.Unlock()
	d.totalDistributed += total

	logger.Logger.Info("Distributed dividends",
		zap.Int("holders", len(payouts)),
		zap.Float64("batch_total", total),
		zap.Float64("lifetime_total", d.totalDistributed))
	return total
}

func (d *DividendSystem) TotalDistributed() float64 {
	d.mux.Lock()
	defer d.mux.Unlock()
	return d.totalDistributed
}
