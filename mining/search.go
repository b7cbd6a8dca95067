package mining

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"fractal-ledger/logger"
)

// Proof is the outcome of one Mine call
type Proof struct {
	ID         string `json:"id"`
	Data       string `json:"data"`
	Difficulty int    `json:"difficulty"`
	Found      bool   `json:"found"`
	Nonce      uint64 `json:"nonce"`
	Hash       string `json:"hash,omitempty"`
	Attempts   int    `json:"attempts"`
}

// Hash returns the hex digest of data with nonce appended in decimal
func Hash(data string, nonce uint64) string {
	sum := sha256.Sum256([]byte(data + strconv.FormatUint(nonce, 10)))
	return hex.EncodeToString(sum[:])
}

// LeadingZeros counts the leading '0' digits of a hex digest
func LeadingZeros(digest string) int {
	n := 0
	for n < len(digest) && digest[n] == '0' {
		n++
	}
	return n
}

// Verify checks a nonce against a difficulty
func Verify(data string, nonce uint64, difficulty int) bool {
	return LeadingZeros(Hash(data, nonce)) >= difficulty
}

// job is one worker's slice of the nonce space: start, start+stride, ...
// (mod modulus), at most budget attempts. Inputs are read only.
type job struct {
	data       string
	difficulty int
	start      uint64
	stride     uint64
	modulus    uint64
	budget     int
}

// run returns the winning nonce and digest, the attempts spent and the
// context error if the search was interrupted
func (j job) run(ctx context.Context) (bool, uint64, string, int, error) {
	done := ctx.Done()
	nonce := j.start % j.modulus
	for attempts := 1; attempts <= j.budget; attempts++ {
		select {
		case <-done:
			return false, 0, "", attempts - 1, ctx.Err()
		default:
		}

		digest := Hash(j.data, nonce)
		if LeadingZeros(digest) >= j.difficulty {
			return true, nonce, digest, attempts, nil
		}
		nonce = (nonce + j.stride) % j.modulus
	}
	return false, 0, "", j.budget, nil
}

func (p *Protocol) search(ctx context.Context, data string, difficulty int) (Proof, error) {
	proof := Proof{
		ID:         uuid.New().String(),
		Data:       data,
		Difficulty: difficulty,
	}
	start := p.startNonce()

	var err error
	if p.opts.Workers <= 1 {
		j := job{
			data:       data,
			difficulty: difficulty,
			start:      start,
			stride:     1,
			modulus:    p.opts.NonceModulus,
			budget:     p.opts.MaxAttempts,
		}
		proof.Found, proof.Nonce, proof.Hash, proof.Attempts, err = j.run(ctx)
	} else {
		err = p.searchParallel(ctx, &proof, start)
	}
	if err != nil {
		logger.Logger.Warn("Mining interrupted",
			zap.String("proof_id", proof.ID), zap.Int("attempts", proof.Attempts), zap.Error(err))
		return proof, errors.Wrapf(err, "mining interrupted after %d attempts", proof.Attempts)
	}

	if proof.Found {
		logger.Logger.Info("Proof found",
			zap.String("proof_id", proof.ID),
			zap.Uint64("nonce", proof.Nonce),
			zap.Int("difficulty", difficulty),
			zap.Int("attempts", proof.Attempts))
	} else {
		logger.Logger.Warn("Proof not found",
			zap.String("proof_id", proof.ID),
			zap.Int("difficulty", difficulty),
			zap.Int("attempts", proof.Attempts))
	}
	return proof, nil
}

type result struct {
	nonce  uint64
	digest string
}

// searchParallel gives worker w the nonces start+w, start+w+W, ... and an
// equal share of the attempt budget. The first worker to succeed writes the
// single result slot and cancels the others.
func (p *Protocol) searchParallel(ctx context.Context, proof *Proof, start uint64) error {
	workers := p.opts.Workers
	if workers > p.opts.MaxAttempts {
		workers = p.opts.MaxAttempts
	}

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	found := make(chan result, 1)
	var attempts atomic.Int64

	wp := pool.New().WithMaxGoroutines(workers).WithContext(searchCtx)
	for w := 0; w < workers; w++ {
		budget := p.opts.MaxAttempts / workers
		if w < p.opts.MaxAttempts%workers {
			budget++
		}
		j := job{
			data:       proof.Data,
			difficulty: proof.Difficulty,
			start:      start + uint64(w),
			stride:     uint64(workers),
			modulus:    p.opts.NonceModulus,
			budget:     budget,
		}
		wp.Go(func(ctx context.Context) error {
			ok, nonce, digest, n, _ := j.run(ctx)
			attempts.Add(int64(n))
			if ok {
				select {
				case found <- result{nonce: nonce, digest: digest}:
					cancel()
				default:
				}
			}
			return nil
		})
	}
	_ = wp.Wait()

	proof.Attempts = int(attempts.Load())
	select {
	case r := <-found:
		proof.Found, proof.Nonce, proof.Hash = true, r.nonce, r.digest
		return nil
	default:
	}
	return ctx.Err()
}
