package models

import (
	"encoding/json"
	"fmt"
)

// RootSegmentID labels the single segment at level 0
const RootSegmentID SegmentID = "root"

// child rank symbols appended to a parent id
const (
	BottomLeft  = '0'
	BottomRight = '1'
	Top         = '2'
)

// Level is a subdivision depth; level L holds 3^L segments
type Level int

// SegmentID is a path encoding: the root label followed by one rank symbol per level
type SegmentID string

// Child returns the id of the child with the given rank symbol
func (id SegmentID) Child(rank byte) SegmentID {
	return id + SegmentID(rank)
}

type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Segment is one addressable partition produced by the coordinate system
type Segment struct {
	ID         SegmentID  `json:"segment_id"`
	Coordinate Coordinate `json:"coordinate"`
}

// Phase is the two-state lifecycle of a segment
type Phase int

const (
	Unresolved Phase = iota
	Resolved
)

func (p Phase) String() string {
	switch p {
	case Unresolved:
		return "unresolved"
	case Resolved:
		return "resolved"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "unresolved":
		*p = Unresolved
	case "resolved":
		*p = Resolved
	default:
		return fmt.Errorf("unknown phase: %q", text)
	}
	return nil
}

// SegmentState is the stored lifecycle and payload of one segment
type SegmentState struct {
	SegmentID SegmentID       `json:"segment_id"`
	Phase     Phase           `json:"phase"`
	Payload   json.RawMessage `json:"payload,omitempty"` // opaque, nil until resolved
}
