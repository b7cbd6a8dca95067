// Package mining searches for proof-of-work nonces.
//
// A proof for data at difficulty d is a nonce such that the hex SHA-256
// digest of data followed by the nonce in decimal starts with at least d
// zeros. The search is bounded by an attempt budget; running out is a normal
// outcome reported as a proof with Found == false.
//
// When a subdivision level is given the requested difficulty is scaled by
// the scarcity of that level and clamped, so deeper levels mine harder.
package mining

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"

	"fractal-ledger/fault"
	"fractal-ledger/models"
)

// Feedback smooths the raw scarcity; satisfied by *economics.Economy
type Feedback interface {
	FeedbackStep(input float64) float64
}

// Options bound the search
type Options struct {
	MaxAttempts   int    // total hashes per Mine call
	NonceModulus  uint64 // nonces wrap around at this value
	Workers       int    // parallel workers, 1 = sequential
	MinDifficulty int    // clamp applied when a level is given
	MaxDifficulty int
}

// Validate rejects bounds that cannot be used as a difficulty clamp.
// NewProtocol repairs them instead, Validate is for configuration input.
func (o Options) Validate() error {
	if o.MinDifficulty < 1 {
		return errors.Wrapf(fault.ErrInvalidArgument, "min difficulty: %d is below 1", o.MinDifficulty)
	}
	if o.MaxDifficulty < o.MinDifficulty {
		return errors.Wrapf(fault.ErrInvalidArgument, "max difficulty: %d is below min difficulty: %d", o.MaxDifficulty, o.MinDifficulty)
	}
	if o.Workers < 1 || o.MaxAttempts < 1 || o.NonceModulus == 0 {
		return errors.Wrapf(fault.ErrInvalidArgument, "workers: %d max attempts: %d nonce modulus: %d", o.Workers, o.MaxAttempts, o.NonceModulus)
	}
	return nil
}

func DefaultOptions() Options {
	return Options{
		MaxAttempts:   1000000,
		NonceModulus:  1000000,
		Workers:       1,
		MinDifficulty: 1,
		MaxDifficulty: 10,
	}
}

type Protocol struct {
	opts     Options
	feedback Feedback

	rndMux sync.Mutex
	rnd    *rand.Rand
}

// NewProtocol builds a protocol; a nil feedback passes scarcity through
// unchanged and a nil rnd is seeded from the clock
func NewProtocol(opts Options, feedback Feedback, rnd *rand.Rand) *Protocol {
	def := DefaultOptions()
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.NonceModulus == 0 {
		opts.NonceModulus = def.NonceModulus
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.MinDifficulty < 1 {
		opts.MinDifficulty = def.MinDifficulty
	}
	if opts.MaxDifficulty < opts.MinDifficulty {
		opts.MaxDifficulty = max(def.MaxDifficulty, opts.MinDifficulty)
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Protocol{
		opts:     opts,
		feedback: feedback,
		rnd:      rnd,
	}
}

func (p *Protocol) Options() Options {
	return p.opts
}

// Scarcity returns a value in [0,100] that grows with level. Each call
// advances the feedback state.
func (p *Protocol) Scarcity(level models.Level) (int, error) {
	if level < 0 {
		return 0, errors.Wrapf(fault.ErrInvalidLevel, "level: %d", level)
	}
	base := math.Floor(100 * (1 - math.Exp(-0.1*float64(level))))
	adjusted := base
	if p.feedback != nil {
		adjusted = p.feedback.FeedbackStep(base)
	}
	return int(math.Floor(clampFloat(adjusted, 0, 100))), nil
}

// RequiredDifficulty is the effective difficulty when no level is given
func (p *Protocol) RequiredDifficulty(target int) int {
	return target
}

// RequiredDifficultyAt scales target by the scarcity of level and clamps
// the result into [MinDifficulty, MaxDifficulty]
func (p *Protocol) RequiredDifficultyAt(target int, level models.Level) (int, error) {
	scarcity, err := p.Scarcity(level)
	if err != nil {
		return 0, err
	}
	scaled := int(math.Floor(float64(target) * float64(scarcity) / 100))
	return clampInt(scaled, p.opts.MinDifficulty, p.opts.MaxDifficulty), nil
}

// Mine searches at target difficulty
func (p *Protocol) Mine(ctx context.Context, data string, target int) (Proof, error) {
	return p.search(ctx, data, p.RequiredDifficulty(target))
}

// MineAtLevel searches at the scarcity adjusted difficulty of level
func (p *Protocol) MineAtLevel(ctx context.Context, data string, target int, level models.Level) (Proof, error) {
	difficulty, err := p.RequiredDifficultyAt(target, level)
	if err != nil {
		return Proof{}, err
	}
	return p.search(ctx, data, difficulty)
}

func (p *Protocol) startNonce() uint64 {
	p.rndMux.Lock()
	defer p.rndMux.Unlock()
	return uint64(p.rnd.Int63n(int64(p.opts.NonceModulus)))
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
