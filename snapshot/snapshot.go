// Package snapshot exports segment states as a zstd compressed stream.
//
// The stream is a JSON header line followed by one JSON SegmentState per
// line. It is a diagnostic export; nothing reloads it into a store.
package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"fractal-ledger/models"
)

const Version = 1

// upper bound on the slice capacity taken from a header
const maxPrealloc = 4096

type Header struct {
	Version int       `json:"version"`
	Count   int       `json:"count"`
	TakenAt time.Time `json:"taken_at"`
}

// Write encodes states to w
func Write(w io.Writer, states []models.SegmentState, takenAt time.Time) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 256*1024)
	je := json.NewEncoder(bw)

	header := Header{Version: Version, Count: len(states), TakenAt: takenAt.UTC()}
	if err := je.Encode(header); err != nil {
		enc.Close()
		return fmt.Errorf("snapshot header: %w", err)
	}
	for i := range states {
		if err := je.Encode(&states[i]); err != nil {
			enc.Close()
			return fmt.Errorf("snapshot segment %q: %w", states[i].SegmentID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Read decodes a stream produced by Write
func Read(r io.Reader) (Header, []models.SegmentState, error) {
	var header Header
	dec, err := zstd.NewReader(r)
	if err != nil {
		return header, nil, err
	}
	defer dec.Close()

	jd := json.NewDecoder(bufio.NewReaderSize(dec, 256*1024))
	if err := jd.Decode(&header); err != nil {
		return header, nil, fmt.Errorf("snapshot header: %w", err)
	}
	if header.Version != Version {
		return header, nil, fmt.Errorf("snapshot version %d not supported", header.Version)
	}

	if header.Count < 0 {
		return header, nil, fmt.Errorf("snapshot count %d is negative", header.Count)
	}

	// the header is untrusted; grow past this as segments arrive
	states := make([]models.SegmentState, 0, min(header.Count, maxPrealloc))
	for {
		var st models.SegmentState
		err := jd.Decode(&st)
		if err == io.EOF {
			break
		}
		if err != nil {
			return header, nil, fmt.Errorf("snapshot segment %d: %w", len(states), err)
		}
		states = append(states, st)
	}
	if len(states) != header.Count {
		return header, nil, fmt.Errorf("snapshot holds %d segments, header says %d", len(states), header.Count)
	}
	return header, states, nil
}
