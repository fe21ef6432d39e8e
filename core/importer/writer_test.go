package importer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"FreeFM/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCommitter records committed chunks; each CommitChunk is all-or-nothing.
type fakeCommitter struct {
	chunks    [][]model.TrackRecord
	failAt    int // fail the n-th commit (1-based), 0 = never
	committed int
}

func (f *fakeCommitter) CommitChunk(_ context.Context, tracks []model.TrackRecord) error {
	if f.failAt > 0 && len(f.chunks)+1 == f.failAt {
		return errors.New("commit failed")
	}
	f.chunks = append(f.chunks, append([]model.TrackRecord(nil), tracks...))
	f.committed += len(tracks)
	return nil
}

func makeTracks(n int) []model.TrackRecord {
	tracks := make([]model.TrackRecord, n)
	for i := range tracks {
		tracks[i] = model.TrackRecord{
			ID:       fmt.Sprintf("jamendo-%d", i),
			Title:    fmt.Sprintf("Track %d", i),
			AudioURL: "https://x/a.mp3",
		}
	}
	return tracks
}

func TestWriteNewChunkCount(t *testing.T) {
	tests := []struct {
		n          int
		wantChunks int
	}{
		{0, 0},
		{1, 1},
		{500, 1},
		{501, 2},
		{1250, 3},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			committer := &fakeCommitter{}
			writer := NewBatchWriter(committer)

			err := writer.WriteNew(context.Background(), makeTracks(tt.n))
			require.NoError(t, err)
			assert.Len(t, committer.chunks, tt.wantChunks)
			assert.Equal(t, tt.n, committer.committed)
		})
	}
}

func TestWriteNewPreservesAllRecords(t *testing.T) {
	committer := &fakeCommitter{}
	writer := NewBatchWriter(committer)

	input := makeTracks(750)
	require.NoError(t, writer.WriteNew(context.Background(), input))

	seen := map[string]bool{}
	for _, chunk := range committer.chunks {
		assert.LessOrEqual(t, len(chunk), WriteChunkSize)
		for _, track := range chunk {
			assert.False(t, seen[track.ID], "duplicate write of %s", track.ID)
			seen[track.ID] = true
		}
	}
	assert.Len(t, seen, 750)
}

// A failed chunk aborts the run; chunks committed before it stay committed.
func TestWriteNewChunkFailure(t *testing.T) {
	committer := &fakeCommitter{failAt: 2}
	writer := NewBatchWriter(committer)

	err := writer.WriteNew(context.Background(), makeTracks(1100))
	require.Error(t, err)

	assert.Len(t, committer.chunks, 1)
	assert.Equal(t, 500, committer.committed)
}
