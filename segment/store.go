package segment

import (
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"fractal-ledger/fault"
	"fractal-ledger/logger"
	"fractal-ledger/models"
	"fractal-ledger/repository"
)

// SegmentSource produces the segments of a level; satisfied by *fractal.Cache
type SegmentSource interface {
	Segments(level models.Level) ([]models.Segment, error)
}

// SourceFunc adapts a plain function such as fractal.ComputeSegments
type SourceFunc func(level models.Level) ([]models.Segment, error)

func (f SourceFunc) Segments(level models.Level) ([]models.Segment, error) { return f(level) }

// Store tracks the lifecycle of every initialised segment.
// Initialisation must finish before segments of that level are resolved;
// the store does not enforce it, a premature Resolve simply fails with
// fault.ErrSegmentNotFound.
type Store struct {
	repo   repository.SegmentRepositoryInterface
	source SegmentSource
	mux    sync.Mutex
}

func NewStore(repo repository.SegmentRepositoryInterface, source SegmentSource) *Store {
	return &Store{repo: repo, source: source}
}

// Initialize registers every segment of level as unresolved, overwriting
// any state those ids already had. The level is written as one batch. It
// returns the number of segments.
func (s *Store) Initialize(level models.Level) (int, error) {
	segments, err := s.source.Segments(level)
	if err != nil {
		return 0, err
	}
	if len(segments) == 0 {
		return 0, errors.Wrapf(fault.ErrEmptyLevel, "level: %d", level)
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	states := make([]*models.SegmentState, len(segments))
	for i, seg := range segments {
		states[i] = &models.SegmentState{
			SegmentID: seg.ID,
			Phase:     models.Unresolved,
		}
	}
	if err := s.repo.PutSegments(states); err != nil {
		return 0, errors.Wrapf(err, "initialise level: %d", level)
	}

	logger.Logger.Info("Initialised segments",
		zap.Int("level", int(level)), zap.Int("count", len(segments)))
	return len(segments), nil
}

// Resolve assigns a payload and marks the segment resolved. A resolved
// segment can be resolved again; only the phase is one-way.
func (s *Store) Resolve(id models.SegmentID, payload any) (models.SegmentState, error) {
	raw, err := encodePayload(payload)
	if err != nil {
		return models.SegmentState{}, errors.Wrapf(fault.ErrInvalidArgument, "segment: %q payload: %v", id, err)
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	state, err := s.repo.GetSegment(id)
	if err != nil {
		return models.SegmentState{}, err
	}
	if state == nil {
		return models.SegmentState{}, errors.Wrapf(fault.ErrSegmentNotFound, "segment: %q", id)
	}

	state.Phase = models.Resolved
	state.Payload = raw
	if err := s.repo.PutSegment(state); err != nil {
		return models.SegmentState{}, err
	}

	logger.Logger.Debug("Resolved segment", zap.String("segment_id", string(id)))
	return *state, nil
}

// Get returns the state of id and whether it exists
func (s *Store) Get(id models.SegmentID) (models.SegmentState, bool, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	state, err := s.repo.GetSegment(id)
	if err != nil || state == nil {
		return models.SegmentState{}, false, err
	}
	return *state, true, nil
}

// GetAll returns every state in insertion order
func (s *Store) GetAll() ([]models.SegmentState, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	states, err := s.repo.GetAllSegments()
	if err != nil {
		return nil, err
	}
	out := make([]models.SegmentState, 0, len(states))
	for _, st := range states {
		out = append(out, *st)
	}
	return out, nil
}

// Stats counts segments per phase
type Stats struct {
	Total      int `json:"total"`
	Unresolved int `json:"unresolved"`
	Resolved   int `json:"resolved"`
}

func (s *Store) Stats() (Stats, error) {
	states, err := s.GetAll()
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Total: len(states)}
	for _, state := range states {
		if state.Phase == models.Resolved {
			st.Resolved++
		} else {
			st.Unresolved++
		}
	}
	return st, nil
}

// raw JSON passes through untouched, anything else is marshalled
func encodePayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case json.RawMessage:
		if !json.Valid(p) {
			return nil, errors.New("payload is not valid JSON")
		}
		return p, nil
	}
	return json.Marshal(payload)
}
