package economics

import (
	"math/rand"
	"sync"
	"time"
)

const (
	DefaultInitialState     = 100.0
	DefaultVolatility       = 0.05
	DefaultAdjustmentFactor = 0.1
)

// Economy is a single step exponential smoother with multiplicative noise:
//
//	state += k*(input - state) + (r - 0.5)*volatility*state,  r in [0,1)
type Economy struct {
	mux sync.Mutex

	state      float64
	volatility float64
	adjustment float64
	rnd        *rand.Rand
}

// EconomyOption customises an Economy
type EconomyOption func(*Economy)

// WithVolatility sets the noise scale; zero removes the noise
func WithVolatility(v float64) EconomyOption {
	return func(e *Economy) { e.volatility = v }
}

// WithAdjustmentFactor sets k
func WithAdjustmentFactor(k float64) EconomyOption {
	return func(e *Economy) { e.adjustment = k }
}

// WithRand replaces the noise source, for reproducible runs
func WithRand(r *rand.Rand) EconomyOption {
	return func(e *Economy) { e.rnd = r }
}

func NewEconomy(initialState float64, opts ...EconomyOption) *Economy {
	e := &Economy{
		state:      initialState,
		volatility: DefaultVolatility,
		adjustment: DefaultAdjustmentFactor,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rnd == nil {
		e.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return e
}

// FeedbackStep moves the state towards input and returns the new state
func (e *Economy) FeedbackStep(input float64) float64 {
	e.mux.Lock()
	defer e.mux.Unlock()

	noise := (e.rnd.Float64() - 0.5) * e.volatility * e.state
	e.state += e.adjustment*(input-e.state) + noise
	return e.state
}

func (e *Economy) State() float64 {
	e.mux.Lock()
	defer e.mux.Unlock()
	return e.state
}
