package repository

import (
	"encoding/binary"
	"encoding/json"

	"github.com/syndtr/goleveldb/leveldb"

	"fractal-ledger/db"
	"fractal-ledger/models"
)

const (
	segmentPrefix = "segment:"
	orderPrefix   = "order:"
	counterKey    = "meta:sequence"
)

// It abstracts the storage layer from the segment store logic
type SegmentRepositoryInterface interface {
	// PutSegment inserts or replaces a state; a new id is appended to the
	// insertion order, an existing id keeps its position
	PutSegment(state *models.SegmentState) error
	// PutSegments applies PutSegment to every state atomically
	PutSegments(states []*models.SegmentState) error
	// GetSegment returns nil, nil when the id is unknown
	GetSegment(id models.SegmentID) (*models.SegmentState, error)
	HasSegment(id models.SegmentID) (bool, error)
	// GetAllSegments returns states in insertion order
	GetAllSegments() ([]*models.SegmentState, error)
}

// SegmentRepository implements the SegmentRepositoryInterface using LevelDB as the storage backend.
// Writers must be serialised by the caller.
type SegmentRepository struct {
	db       *db.LevelDB
	sequence uint64
}

// NewSegmentRepository creates and returns a new SegmentRepository instance
func NewSegmentRepository(ldb *db.LevelDB) (*SegmentRepository, error) {
	r := &SegmentRepository{db: ldb}
	data, err := ldb.Get([]byte(counterKey))
	switch {
	case err == nil && len(data) == 8:
		r.sequence = binary.BigEndian.Uint64(data)
	case err != nil && !db.IsNotFound(err):
		return nil, err
	}
	return r, nil
}

func segmentKey(id models.SegmentID) []byte {
	return []byte(segmentPrefix + string(id))
}

// big endian keeps the order keys sorted by sequence
func orderKey(seq uint64) []byte {
	key := make([]byte, len(orderPrefix)+8)
	copy(key, orderPrefix)
	binary.BigEndian.PutUint64(key[len(orderPrefix):], seq)
	return key
}

// PutSegment stores a segment state in the LevelDB storage
func (r *SegmentRepository) PutSegment(state *models.SegmentState) error {
	return r.PutSegments([]*models.SegmentState{state})
}

// PutSegments stores all states in one atomic batch; either every state is
// written or none is
func (r *SegmentRepository) PutSegments(states []*models.SegmentState) error {
	batch := new(leveldb.Batch)
	seq := r.sequence
	added := make(map[models.SegmentID]bool)

	for _, state := range states {
		data, err := json.Marshal(state)
		if err != nil {
			return err
		}
		key := segmentKey(state.SegmentID)
		if !added[state.SegmentID] {
			exists, err := r.db.Has(key)
			if err != nil {
				return err
			}
			if !exists {
				seq++
				batch.Put(orderKey(seq), []byte(state.SegmentID))
				added[state.SegmentID] = true
			}
		}
		batch.Put(key, data)
	}
	if batch.Len() == 0 {
		return nil
	}

	if seq != r.sequence {
		counter := make([]byte, 8)
		binary.BigEndian.PutUint64(counter, seq)
		batch.Put([]byte(counterKey), counter)
	}
	if err := r.db.Write(batch); err != nil {
		return err
	}
	r.sequence = seq
	return nil
}

// GetSegment retrieves a segment state from LevelDB storage by its ID
func (r *SegmentRepository) GetSegment(id models.SegmentID) (*models.SegmentState, error) {
	data, err := r.db.Get(segmentKey(id))
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state models.SegmentState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// HasSegment reports whether a segment was ever stored
func (r *SegmentRepository) HasSegment(id models.SegmentID) (bool, error) {
	return r.db.Has(segmentKey(id))
}

// GetAllSegments walks the insertion order and loads each state
func (r *SegmentRepository) GetAllSegments() ([]*models.SegmentState, error) {
	iter := r.db.NewIterator([]byte(orderPrefix))
	defer iter.Release()

	var states []*models.SegmentState
	for iter.Next() {
		id := models.SegmentID(iter.Value())
		state, err := r.GetSegment(id)
		if err != nil {
			return nil, err
		}
		if state == nil {
			continue
		}
		states = append(states, state)
	}
	return states, iter.Error()
}
