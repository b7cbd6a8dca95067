// Package ledger wires the coordinate system, segment store, mining
// protocol and economics into the single service behind the HTTP API.
package ledger

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"fractal-ledger/contract"
	"fractal-ledger/economics"
	"fractal-ledger/fault"
	"fractal-ledger/fractal"
	"fractal-ledger/logger"
	"fractal-ledger/mining"
	"fractal-ledger/models"
	"fractal-ledger/oracle"
	"fractal-ledger/repository"
	"fractal-ledger/segment"
	"fractal-ledger/snapshot"
)

// DefaultMaxLevel caps the levels served; 3^12 is already 531441 segments
const DefaultMaxLevel models.Level = 12

// TreasuryContractID is the id the treasury engine is hosted under
const TreasuryContractID = "treasury"

// Ledger is the node's in-process core
type Ledger struct {
	maxLevel models.Level
	segments *fractal.Cache
	store    *segment.Store
	mining   *mining.Protocol
	economy  *economics.Economy
	treasury *economics.Treasury
	machine  *contract.Machine
	oracle   oracle.Source
}

// Params collects the collaborators of a Ledger
type Params struct {
	Repo     repository.SegmentRepositoryInterface
	Cache    *fractal.Cache
	Mining   *mining.Protocol
	Economy  *economics.Economy
	Treasury *economics.Treasury
	Oracle   oracle.Source
	MaxLevel models.Level
}

func New(p Params) *Ledger {
	if p.Cache == nil {
		p.Cache = fractal.NewCache(0)
	}
	if p.Economy == nil {
		p.Economy = economics.NewEconomy(economics.DefaultInitialState)
	}
	if p.Mining == nil {
		p.Mining = mining.NewProtocol(mining.DefaultOptions(), p.Economy, nil)
	}
	if p.Treasury == nil {
		p.Treasury = economics.NewTreasury(economics.DefaultPolicy(), nil, nil)
	}
	if p.Oracle == nil {
		p.Oracle = oracle.NewMockFeed(123.45, 0)
	}
	if p.MaxLevel <= 0 {
		p.MaxLevel = DefaultMaxLevel
	}
	machine := contract.NewMachine()
	// a fresh machine is empty, attaching cannot collide
	_ = machine.Attach(TreasuryContractID, p.Treasury.Engine())

	return &Ledger{
		maxLevel: p.MaxLevel,
		segments: p.Cache,
		store:    segment.NewStore(p.Repo, p.Cache),
		mining:   p.Mining,
		economy:  p.Economy,
		treasury: p.Treasury,
		machine:  machine,
		oracle:   p.Oracle,
	}
}

func (l *Ledger) checkLevel(level models.Level) error {
	if level < 0 {
		return errors.Wrapf(fault.ErrInvalidLevel, "level: %d", level)
	}
	if level > l.maxLevel {
		return errors.Wrapf(fault.ErrInvalidArgument, "level: %d exceeds maximum %d", level, l.maxLevel)
	}
	return nil
}

// Segments returns the ids and coordinates of a level
func (l *Ledger) Segments(level models.Level) ([]models.Segment, error) {
	if err := l.checkLevel(level); err != nil {
		return nil, err
	}
	return l.segments.Segments(level)
}

// InitializeLevel registers every segment of level as unresolved
func (l *Ledger) InitializeLevel(level models.Level) (int, error) {
	if err := l.checkLevel(level); err != nil {
		return 0, err
	}
	return l.store.Initialize(level)
}

func (l *Ledger) Resolve(id models.SegmentID, payload any) (models.SegmentState, error) {
	return l.store.Resolve(id, payload)
}

// ResolveFromOracle fetches a reading and stores it as the segment payload
func (l *Ledger) ResolveFromOracle(ctx context.Context, id models.SegmentID, source string) (models.SegmentState, error) {
	if _, found, err := l.store.Get(id); err != nil {
		return models.SegmentState{}, err
	} else if !found {
		return models.SegmentState{}, errors.Wrapf(fault.ErrSegmentNotFound, "segment: %q", id)
	}

	reading, err := l.oracle.Fetch(ctx, source)
	if err != nil {
		return models.SegmentState{}, err
	}
	return l.store.Resolve(id, reading)
}

func (l *Ledger) Segment(id models.SegmentID) (models.SegmentState, bool, error) {
	return l.store.Get(id)
}

func (l *Ledger) SegmentStates() ([]models.SegmentState, error) {
	return l.store.GetAll()
}

func (l *Ledger) SegmentStats() (segment.Stats, error) {
	return l.store.Stats()
}

// Export writes a compressed snapshot of every segment state
func (l *Ledger) Export(w io.Writer) error {
	states, err := l.store.GetAll()
	if err != nil {
		return err
	}
	return snapshot.Write(w, states, time.Now())
}

func (l *Ledger) Scarcity(level models.Level) (int, error) {
	return l.mining.Scarcity(level)
}

// Mine runs a proof search; level is optional
func (l *Ledger) Mine(ctx context.Context, data string, target int, level *models.Level) (mining.Proof, error) {
	if level == nil {
		return l.mining.Mine(ctx, data, target)
	}
	return l.mining.MineAtLevel(ctx, data, target, *level)
}

// MineSegment mines a proof for a segment id at its own depth and resolves
// the segment with the proof when one is found
func (l *Ledger) MineSegment(ctx context.Context, id models.SegmentID, target int) (mining.Proof, error) {
	depth, ok := fractal.Depth(id)
	if !ok {
		return mining.Proof{}, errors.Wrapf(fault.ErrInvalidArgument, "segment: %q is not a segment path", id)
	}
	if _, found, err := l.store.Get(id); err != nil {
		return mining.Proof{}, err
	} else if !found {
		return mining.Proof{}, errors.Wrapf(fault.ErrSegmentNotFound, "segment: %q", id)
	}

	proof, err := l.mining.MineAtLevel(ctx, string(id), target, depth)
	if err != nil || !proof.Found {
		return proof, err
	}
	if _, err := l.store.Resolve(id, proof); err != nil {
		return proof, err
	}
	logger.Logger.Info("Segment mined", zap.String("segment_id", string(id)), zap.String("proof_id", proof.ID))
	return proof, nil
}

func (l *Ledger) Genesis() (economics.GenesisReport, error) {
	return l.treasury.Genesis()
}

func (l *Ledger) Burn(amount float64) (models.ContractState, error) {
	return l.treasury.Burn(amount)
}

func (l *Ledger) PayDividends(holders []models.Holder) (float64, error) {
	return l.treasury.PayDividends(holders)
}

// Treasury summarises the economic state
type Treasury struct {
	Contract         models.ContractState `json:"contract"`
	TotalBurned      float64              `json:"total_burned"`
	TotalDistributed float64              `json:"total_distributed"`
	EconomicState    float64              `json:"economic_state"`
}

func (l *Ledger) Treasury() Treasury {
	return Treasury{
		Contract:         l.treasury.State(),
		TotalBurned:      l.treasury.TotalBurned(),
		TotalDistributed: l.treasury.TotalDistributed(),
		EconomicState:    l.economy.State(),
	}
}

// Contracts lists the deployed contract ids, the treasury included
func (l *Ledger) Contracts() []string {
	return l.machine.List()
}

func (l *Ledger) Contract(id string) (models.ContractState, error) {
	return l.machine.State(id)
}

// DeployContract deploys a contract holding balance with the built-in
// transfer and dividend payout transitions
func (l *Ledger) DeployContract(id string, balance float64) (models.ContractState, error) {
	if balance < 0 {
		return nil, errors.Wrapf(fault.ErrInvalidArgument, "contract: %q negative balance: %v", id, balance)
	}
	e, err := l.machine.Deploy(id, models.ContractState{models.BalanceKey: balance})
	if err != nil {
		return nil, err
	}
	e.RegisterTransfer()
	e.RegisterDividendPayout()
	return e.State(), nil
}

// ExecuteContract runs a transition on a deployed contract. The treasury
// only moves through Genesis, Burn and PayDividends so that the burn and
// dividend totals stay consistent with its balance.
func (l *Ledger) ExecuteContract(id, function string, args ...any) (models.ContractState, error) {
	if id == TreasuryContractID {
		return nil, errors.Wrapf(fault.ErrInvalidArgument, "contract: %q is driven by the economics operations", id)
	}
	return l.machine.Execute(id, function, args...)
}
