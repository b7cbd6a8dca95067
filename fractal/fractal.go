// Package fractal names and positions the ledger partitions.
//
// Level 0 is the single root triangle at the origin. Every segment at level
// L-1 splits into three children at level L: bottom-left, bottom-right and
// top, whose ids extend the parent id by '0', '1' and '2'. The output order
// is the concatenation of each parent's children in that order, parents in
// the order of the previous level, and callers rely on it positionally.
package fractal

import (
	"math"

	"github.com/pkg/errors"

	"fractal-ledger/fault"
	"fractal-ledger/models"
)

var sqrt3Half = math.Sqrt(3) / 2

// ComputeSegments returns the 3^level segments of a level.
// The whole tree is derived again on every call; see Cache for reuse.
func ComputeSegments(level models.Level) ([]models.Segment, error) {
	if level < 0 {
		return nil, errors.Wrapf(fault.ErrInvalidLevel, "level: %d", level)
	}
	if level == 0 {
		return root(), nil
	}
	prev, err := ComputeSegments(level - 1)
	if err != nil {
		return nil, err
	}
	return subdivide(prev, level), nil
}

func root() []models.Segment {
	return []models.Segment{{ID: models.RootSegmentID}}
}

// subdivide expands the segments of level-1 into those of level
func subdivide(prev []models.Segment, level models.Level) []models.Segment {
	size := math.Pow(2, float64(level-1))
	next := make([]models.Segment, 0, len(prev)*3)
	for _, p := range prev {
		x, y := p.Coordinate.X, p.Coordinate.Y
		next = append(next,
			models.Segment{ID: p.ID.Child(models.BottomLeft), Coordinate: models.Coordinate{X: x, Y: y}},
			models.Segment{ID: p.ID.Child(models.BottomRight), Coordinate: models.Coordinate{X: x + size, Y: y}},
			models.Segment{ID: p.ID.Child(models.Top), Coordinate: models.Coordinate{X: x + size/2, Y: y + size*sqrt3Half}},
		)
	}
	return next
}

// Lookup finds the coordinate of id; absence is not an error
func Lookup(segments []models.Segment, id models.SegmentID) (models.Coordinate, bool) {
	for _, s := range segments {
		if s.ID == id {
			return s.Coordinate, true
		}
	}
	return models.Coordinate{}, false
}

// Depth returns the level an id belongs to, or false if the id is not a
// well formed path (root label followed only by rank symbols)
func Depth(id models.SegmentID) (models.Level, bool) {
	s := string(id)
	prefix := string(models.RootSegmentID)
	if len(s) < len(prefix) || s[:len(prefix)] != prefix {
		return 0, false
	}
	for i := len(prefix); i < len(s); i++ {
		switch s[i] {
		case models.BottomLeft, models.BottomRight, models.Top:
		default:
			return 0, false
		}
	}
	return models.Level(len(s) - len(prefix)), true
}

// Parent returns the id one level up; the root has no parent
func Parent(id models.SegmentID) (models.SegmentID, bool) {
	depth, ok := Depth(id)
	if !ok || depth == 0 {
		return "", false
	}
	return id[:len(id)-1], true
}
