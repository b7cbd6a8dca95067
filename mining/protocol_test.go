package mining_test

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"fractal-ledger/economics"
	"fractal-ledger/fault"
	"fractal-ledger/mining"
	"fractal-ledger/models"
)

// fixedFeedback returns a constant, or the input when value is nil
type fixedFeedback struct {
	value *float64
	calls int
}

func (f *fixedFeedback) FeedbackStep(input float64) float64 {
	f.calls++
	if f.value == nil {
		return input
	}
	return *f.value
}

// ProtocolSuite exercises difficulty policy and the nonce search.
type ProtocolSuite struct {
	suite.Suite
	feedback *fixedFeedback
	protocol *mining.Protocol
}

func (s *ProtocolSuite) SetupTest() {
	s.feedback = &fixedFeedback{}
	opts := mining.DefaultOptions()
	opts.MaxAttempts = 5000
	s.protocol = mining.NewProtocol(opts, s.feedback, rand.New(rand.NewSource(1)))
}

func (s *ProtocolSuite) TestScarcityCurve() {
	for level, expected := range map[models.Level]int{0: 0, 1: 9, 10: 63, 50: 99} {
		got, err := s.protocol.Scarcity(level)
		require.NoError(s.T(), err)
		require.Equal(s.T(), expected, got, "level %d", level)
	}
	require.Equal(s.T(), 4, s.feedback.calls)
}

func (s *ProtocolSuite) TestScarcityInvalidLevel() {
	_, err := s.protocol.Scarcity(-1)
	require.True(s.T(), errors.Is(err, fault.ErrInvalidLevel))
	require.Zero(s.T(), s.feedback.calls)
}

func (s *ProtocolSuite) TestScarcityClampsFeedback() {
	high, low := 250.7, -3.0

	s.feedback.value = &high
	got, err := s.protocol.Scarcity(5)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 100, got)

	s.feedback.value = &low
	got, err = s.protocol.Scarcity(5)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 0, got)
}

func (s *ProtocolSuite) TestRequiredDifficulty() {
	require.Equal(s.T(), 42, s.protocol.RequiredDifficulty(42))
	require.Equal(s.T(), -1, s.protocol.RequiredDifficulty(-1))

	for _, tc := range []struct {
		target   int
		level    models.Level
		expected int
	}{
		{5, 10, 3},     // 5 * 63 / 100
		{100, 0, 1},    // scarcity 0 clamps up
		{1000, 50, 10}, // clamps down
		{-5, 10, 1},
		{16, 10, 10},
	} {
		got, err := s.protocol.RequiredDifficultyAt(tc.target, tc.level)
		require.NoError(s.T(), err)
		require.Equal(s.T(), tc.expected, got, "target %d level %d", tc.target, tc.level)
	}

	_, err := s.protocol.RequiredDifficultyAt(5, -2)
	require.True(s.T(), errors.Is(err, fault.ErrInvalidLevel))
}

func (s *ProtocolSuite) TestZeroDifficultySucceedsFirstAttempt() {
	for _, data := range []string{"", "genesis", "root0121"} {
		proof, err := s.protocol.Mine(context.Background(), data, 0)
		require.NoError(s.T(), err)
		require.True(s.T(), proof.Found)
		require.Equal(s.T(), 1, proof.Attempts)
		require.True(s.T(), mining.Verify(data, proof.Nonce, 0))
	}
}

func (s *ProtocolSuite) TestEasyDifficultyFindsValidProof() {
	proof, err := s.protocol.Mine(context.Background(), "easy data", 1)
	require.NoError(s.T(), err)
	require.True(s.T(), proof.Found)
	require.True(s.T(), strings.HasPrefix(proof.Hash, "0"))
	require.Equal(s.T(), mining.Hash("easy data", proof.Nonce), proof.Hash)
	require.NotEmpty(s.T(), proof.ID)
}

func (s *ProtocolSuite) TestUnreachableDifficultyExhausts() {
	proof, err := s.protocol.Mine(context.Background(), "hard data", 65)
	require.NoError(s.T(), err)
	require.False(s.T(), proof.Found)
	require.Equal(s.T(), 5000, proof.Attempts)
	require.Empty(s.T(), proof.Hash)
}

func (s *ProtocolSuite) TestMineAtLevelClampsDifficulty() {
	proof, err := s.protocol.MineAtLevel(context.Background(), "level data", 0, 3)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 1, proof.Difficulty)
	require.True(s.T(), proof.Found)

	_, err = s.protocol.MineAtLevel(context.Background(), "level data", 1, -1)
	require.True(s.T(), errors.Is(err, fault.ErrInvalidLevel))
}

func (s *ProtocolSuite) TestCancelledContextStopsSearch() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	proof, err := s.protocol.Mine(ctx, "cancelled", 64)
	require.True(s.T(), errors.Is(err, context.Canceled))
	require.False(s.T(), proof.Found)
	require.Zero(s.T(), proof.Attempts)
}

func TestProtocolSuite(t *testing.T) {
	suite.Run(t, new(ProtocolSuite))
}

func TestParallelSearch(t *testing.T) {
	opts := mining.DefaultOptions()
	opts.MaxAttempts = 4000
	opts.Workers = 4
	p := mining.NewProtocol(opts, nil, rand.New(rand.NewSource(3)))

	proof, err := p.Mine(context.Background(), "parallel", 1)
	require.NoError(t, err)
	require.True(t, proof.Found)
	require.True(t, mining.Verify("parallel", proof.Nonce, 1))
	require.LessOrEqual(t, proof.Attempts, 4000)

	proof, err = p.Mine(context.Background(), "parallel", 65)
	require.NoError(t, err)
	require.False(t, proof.Found)
	require.Equal(t, 4000, proof.Attempts)
}

func TestParallelSearchHonoursDeadline(t *testing.T) {
	opts := mining.DefaultOptions()
	opts.MaxAttempts = 1 << 30
	opts.Workers = 2
	p := mining.NewProtocol(opts, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Mine(ctx, "forever", 65)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestLeadingZeros(t *testing.T) {
	require.Equal(t, 0, mining.LeadingZeros("a0"))
	require.Equal(t, 3, mining.LeadingZeros("000f"))
	require.Equal(t, 4, mining.LeadingZeros("0000"))
	require.Equal(t, 0, mining.LeadingZeros(""))
}

// the economy satisfies the feedback interface and keeps scarcity in range
func TestScarcityWithEconomy(t *testing.T) {
	economy := economics.NewEconomy(economics.DefaultInitialState,
		economics.WithRand(rand.New(rand.NewSource(11))))
	p := mining.NewProtocol(mining.DefaultOptions(), economy, nil)

	for level := models.Level(0); level <= 40; level++ {
		v, err := p.Scarcity(level)
		require.NoError(t, err)
		require.GreaterOrEqual(t, v, 0)
		require.LessOrEqual(t, v, 100)
	}
}

func TestDifficultyBoundsRepaired(t *testing.T) {
	opts := mining.DefaultOptions()
	opts.MinDifficulty = 0
	p := mining.NewProtocol(opts, nil, rand.New(rand.NewSource(1)))
	require.Equal(t, 1, p.Options().MinDifficulty)
	require.Equal(t, 10, p.Options().MaxDifficulty)

	// scarcity 0 at level 0 would scale any target to 0 without the lower bound
	d, err := p.RequiredDifficultyAt(7, 0)
	require.NoError(t, err)
	require.Equal(t, 1, d)

	opts = mining.DefaultOptions()
	opts.MinDifficulty, opts.MaxDifficulty = 4, 2
	p = mining.NewProtocol(opts, nil, nil)
	require.Equal(t, 4, p.Options().MinDifficulty)
	require.Equal(t, 10, p.Options().MaxDifficulty)
}

func TestOptionsValidate(t *testing.T) {
	require.NoError(t, mining.DefaultOptions().Validate())

	opts := mining.DefaultOptions()
	opts.MinDifficulty = 0
	require.True(t, errors.Is(opts.Validate(), fault.ErrInvalidArgument))

	opts = mining.DefaultOptions()
	opts.MinDifficulty, opts.MaxDifficulty = 5, 3
	require.True(t, fault.IsErrInvalid(opts.Validate()))

	opts = mining.DefaultOptions()
	opts.Workers = 0
	require.Error(t, opts.Validate())
}

func TestProofKeepsZeroNonce(t *testing.T) {
	data, err := json.Marshal(mining.Proof{ID: "p", Found: true, Nonce: 0, Hash: "0abc"})
	require.NoError(t, err)
	require.Contains(t, string(data), `"nonce":0`)
}
