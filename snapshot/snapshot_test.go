package snapshot_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"fractal-ledger/models"
	"fractal-ledger/snapshot"
)

func TestWriteRead(t *testing.T) {
	states := []models.SegmentState{
		{SegmentID: "root0", Phase: models.Unresolved},
		{SegmentID: "root1", Phase: models.Resolved, Payload: json.RawMessage(`{"price":123.45}`)},
		{SegmentID: "root2", Phase: models.Unresolved},
	}
	takenAt := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, snapshot.Write(&buf, states, takenAt))

	header, got, err := snapshot.Read(&buf)
	require.NoError(t, err)
	require.Equal(t, snapshot.Header{Version: snapshot.Version, Count: 3, TakenAt: takenAt}, header)
	require.Len(t, got, 3)
	require.Equal(t, states[0], got[0])
	require.Equal(t, models.Resolved, got[1].Phase)
	require.JSONEq(t, `{"price":123.45}`, string(got[1].Payload))
}

func TestReadEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, snapshot.Write(&buf, nil, time.Now()))

	header, got, err := snapshot.Read(&buf)
	require.NoError(t, err)
	require.Zero(t, header.Count)
	require.Empty(t, got)
}

func TestReadRejectsGarbage(t *testing.T) {
	_, _, err := snapshot.Read(bytes.NewReader([]byte("not zstd")))
	require.Error(t, err)
}

func compressed(t *testing.T, lines string) *bytes.Buffer {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write([]byte(lines))
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	return &buf
}

func TestReadHeaderCount(t *testing.T) {
	_, _, err := snapshot.Read(compressed(t, `{"version":1,"count":-1,"taken_at":"2026-10-19T12:00:00Z"}`+"\n"))
	require.Error(t, err)

	// a huge count must not be trusted for allocation, only for the final check
	stream := `{"version":1,"count":1099511627776,"taken_at":"2026-10-19T12:00:00Z"}` + "\n" +
		`{"segment_id":"root","phase":"unresolved"}` + "\n"
	_, _, err = snapshot.Read(compressed(t, stream))
	require.ErrorContains(t, err, "header says 1099511627776")
}
