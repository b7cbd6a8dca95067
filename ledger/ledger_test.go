package ledger_test

import (
	"bytes"
	"context"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"fractal-ledger/contract"
	"fractal-ledger/db"
	"fractal-ledger/economics"
	"fractal-ledger/fault"
	"fractal-ledger/ledger"
	"fractal-ledger/mining"
	"fractal-ledger/models"
	"fractal-ledger/oracle"
	"fractal-ledger/repository"
	"fractal-ledger/snapshot"
)

func newLedger(t *testing.T) *ledger.Ledger {
	ldb, err := db.NewLevelDB("")
	require.NoError(t, err)
	t.Cleanup(func() { ldb.Close() })
	repo, err := repository.NewSegmentRepository(ldb)
	require.NoError(t, err)

	economy := economics.NewEconomy(economics.DefaultInitialState, economics.WithVolatility(0))
	opts := mining.DefaultOptions()
	opts.MaxAttempts = 5000
	return ledger.New(ledger.Params{
		Repo:     repo,
		Economy:  economy,
		Mining:   mining.NewProtocol(opts, economy, rand.New(rand.NewSource(5))),
		Oracle:   oracle.NewMockFeed(99.5, 0),
		MaxLevel: 6,
	})
}

func TestLevelBounds(t *testing.T) {
	l := newLedger(t)

	_, err := l.Segments(-1)
	require.True(t, errors.Is(err, fault.ErrInvalidLevel))
	_, err = l.Segments(7)
	require.True(t, errors.Is(err, fault.ErrInvalidArgument))
	_, err = l.InitializeLevel(7)
	require.True(t, fault.IsErrInvalid(err))

	segments, err := l.Segments(4)
	require.NoError(t, err)
	require.Len(t, segments, 81)
}

func TestInitializeResolveFlow(t *testing.T) {
	l := newLedger(t)

	_, err := l.Resolve("root1", "early")
	require.True(t, errors.Is(err, fault.ErrSegmentNotFound))

	count, err := l.InitializeLevel(1)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	state, err := l.ResolveFromOracle(context.Background(), "root1", "btc-usd")
	require.NoError(t, err)
	require.Equal(t, models.Resolved, state.Phase)
	require.Contains(t, string(state.Payload), `"price":99.5`)

	_, err = l.ResolveFromOracle(context.Background(), "root12", "btc-usd")
	require.True(t, errors.Is(err, fault.ErrSegmentNotFound))

	stats, err := l.SegmentStats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.Resolved)
	require.Equal(t, 2, stats.Unresolved)

	var buf bytes.Buffer
	require.NoError(t, l.Export(&buf))
	header, states, err := snapshot.Read(&buf)
	require.NoError(t, err)
	require.Equal(t, 3, header.Count)
	require.Equal(t, models.SegmentID("root1"), states[1].SegmentID)
}

func TestMineSegmentResolvesWithProof(t *testing.T) {
	l := newLedger(t)
	_, err := l.InitializeLevel(2)
	require.NoError(t, err)

	proof, err := l.MineSegment(context.Background(), "root20", 1)
	require.NoError(t, err)
	require.True(t, proof.Found)
	require.Equal(t, 1, proof.Difficulty)

	state, found, err := l.Segment("root20")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, models.Resolved, state.Phase)
	require.Contains(t, string(state.Payload), proof.ID)

	_, err = l.MineSegment(context.Background(), "nowhere", 1)
	require.True(t, errors.Is(err, fault.ErrInvalidArgument))
	_, err = l.MineSegment(context.Background(), "root222", 1)
	require.True(t, errors.Is(err, fault.ErrSegmentNotFound))
}

func TestMineOptionalLevel(t *testing.T) {
	l := newLedger(t)

	proof, err := l.Mine(context.Background(), "data", 0, nil)
	require.NoError(t, err)
	require.True(t, proof.Found)
	require.Equal(t, 0, proof.Difficulty)

	level := models.Level(2)
	proof, err = l.Mine(context.Background(), "data", 0, &level)
	require.NoError(t, err)
	require.Equal(t, 1, proof.Difficulty)
}

func TestEconomicsThroughLedger(t *testing.T) {
	l := newLedger(t)

	report, err := l.Genesis()
	require.NoError(t, err)
	require.InDelta(t, 14700000, report.CommunityMineable, 1e-6)

	total, err := l.PayDividends([]models.Holder{{Share: 100, AncestralLevel: 1}})
	require.NoError(t, err)
	require.Equal(t, 50.0, total)

	_, err = l.Burn(9000)
	require.NoError(t, err)

	summary := l.Treasury()
	require.InDelta(t, 6300000+9000, summary.TotalBurned, 1e-6)
	require.Equal(t, 50.0, summary.TotalDistributed)
	require.InDelta(t, 6300000-50-9000, summary.Contract.Balance(), 1e-6)
	require.Equal(t, 100.0, summary.EconomicState)
}

func TestContractsThroughLedger(t *testing.T) {
	l := newLedger(t)
	require.Equal(t, []string{ledger.TreasuryContractID}, l.Contracts())

	_, err := l.Genesis()
	require.NoError(t, err)
	state, err := l.Contract(ledger.TreasuryContractID)
	require.NoError(t, err)
	require.InDelta(t, 6300000, state.Balance(), 1e-6)

	_, err = l.ExecuteContract(ledger.TreasuryContractID, contract.Transfer, 1.0)
	require.True(t, fault.IsErrInvalid(err))

	state, err = l.DeployContract("pool", 100)
	require.NoError(t, err)
	require.Equal(t, 100.0, state.Balance())
	_, err = l.DeployContract("pool", 5)
	require.True(t, errors.Is(err, fault.ErrContractExists))
	_, err = l.DeployContract("debt", -1)
	require.True(t, errors.Is(err, fault.ErrInvalidArgument))

	state, err = l.ExecuteContract("pool", contract.Transfer, 40.0)
	require.NoError(t, err)
	require.Equal(t, 60.0, state.Balance())
	_, err = l.ExecuteContract("pool", contract.Transfer, 61.0)
	require.True(t, errors.Is(err, fault.ErrInsufficientBalance))

	_, err = l.Contract("ghost")
	require.True(t, errors.Is(err, fault.ErrContractNotFound))
	require.Equal(t, []string{"pool", ledger.TreasuryContractID}, l.Contracts())
}
