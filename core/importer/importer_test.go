package importer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"FreeFM/core/source"
	"FreeFM/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	name      string
	tracks    []model.TrackRecord
	errs      []string
	next      json.RawMessage
	fetchErr  error
	gotCursor json.RawMessage
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) Fetch(_ context.Context, cursor json.RawMessage) (*model.SourceResult, json.RawMessage, error) {
	a.gotCursor = cursor
	if a.fetchErr != nil {
		return nil, cursor, a.fetchErr
	}
	return &model.SourceResult{
		Source: a.name,
		Tracks: a.tracks,
		Errors: a.errs,
	}, a.next, nil
}

type fakeCursorRepo struct {
	mu      sync.Mutex
	payload map[string]string
	saves   int
	loadErr error
}

func newFakeCursorRepo() *fakeCursorRepo {
	return &fakeCursorRepo{payload: map[string]string{}}
}

func (r *fakeCursorRepo) Load(src string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return "", false, r.loadErr
	}
	p, ok := r.payload[src]
	return p, ok, nil
}

func (r *fakeCursorRepo) Save(src, payload string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payload[src] = payload
	r.saves++
	return nil
}

func (r *fakeCursorRepo) Delete(src string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.payload, src)
	return nil
}

func sourceTrack(id, audioURL string) model.TrackRecord {
	return model.TrackRecord{
		ID:       id,
		Title:    "Track " + id,
		Artist:   "Artist",
		AudioURL: audioURL,
	}
}

// buildOrchestrator wires an orchestrator entirely out of fakes plus a
// real media server.
func buildOrchestrator(t *testing.T, adapters []source.Adapter, lookup *fakeLookup, cursors *fakeCursorRepo, committer *fakeCommitter, dryRun bool) (*Orchestrator, *fakeUploader) {
	t.Helper()

	registry := source.NewRegistry()
	for _, a := range adapters {
		registry.Register(a)
	}

	uploader := newFakeUploader()
	engine := NewTransferEngine(uploader, 5*time.Second, 5*time.Second, 3)
	dedup := NewDedupChecker(lookup, nil)
	writer := NewBatchWriter(committer)

	return NewOrchestrator(registry, cursors, dedup, engine, writer, dryRun), uploader
}

// Full pipeline: two sources feed the same run, duplicates are dropped,
// media is re-homed, the rest lands in one committed chunk and cursors
// advance.
func TestOrchestratorRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("bytes"))
	}))
	defer server.Close()

	jamendo := &fakeAdapter{
		name: "jamendo",
		tracks: []model.TrackRecord{
			sourceTrack("jamendo-1", server.URL+"/1.mp3"),
			sourceTrack("jamendo-2", server.URL+"/2.mp3"), // already in catalog
			sourceTrack("jamendo-3", ""),                  // fails validation
		},
		next: json.RawMessage(`{"offset":20}`),
	}
	archive := &fakeAdapter{
		name: "ia",
		tracks: []model.TrackRecord{
			sourceTrack("ia-x-t1", server.URL+"/3.mp3"),
		},
		next: json.RawMessage(`{"page":2}`),
	}

	lookup := &fakeLookup{existing: map[string]bool{"jamendo-2": true}}
	cursors := newFakeCursorRepo()
	cursors.payload["jamendo"] = `{"offset":0}`
	committer := &fakeCommitter{}

	orch, uploader := buildOrchestrator(t, []source.Adapter{jamendo, archive}, lookup, cursors, committer, false)

	stats, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "jamendo", stats[0].Source)
	assert.Equal(t, 3, stats[0].Fetched)
	assert.Equal(t, 1, stats[0].New)
	assert.Equal(t, 1, stats[0].Duplicates)
	assert.Equal(t, 1, stats[0].Errors)

	assert.Equal(t, "ia", stats[1].Source)
	assert.Equal(t, 1, stats[1].Fetched)
	assert.Equal(t, 1, stats[1].New)

	// stored cursor was handed to the adapter
	assert.Equal(t, `{"offset":0}`, string(jamendo.gotCursor))
	assert.Nil(t, archive.gotCursor)

	// one chunk with both new records, media pointing at our store
	require.Len(t, committer.chunks, 1)
	require.Len(t, committer.chunks[0], 2)
	written := committer.chunks[0]
	assert.Equal(t, "jamendo-1", written[0].ID)
	assert.Contains(t, written[0].AudioURL, "tracks/audio/jamendo-1.mp3")
	assert.Equal(t, server.URL+"/1.mp3", written[0].OriginalAudioURL)
	assert.Equal(t, "ia-x-t1", written[1].ID)

	assert.Len(t, uploader.objects, 2)

	// cursors advanced for both sources
	assert.Equal(t, `{"offset":20}`, cursors.payload["jamendo"])
	assert.Equal(t, `{"page":2}`, cursors.payload["ia"])
}

// Dry run reports stats but performs no media transfer, no writes and no
// cursor saves.
func TestOrchestratorDryRun(t *testing.T) {
	adapter := &fakeAdapter{
		name:   "jamendo",
		tracks: []model.TrackRecord{sourceTrack("jamendo-1", "https://remote/1.mp3")},
		next:   json.RawMessage(`{"offset":20}`),
	}

	lookup := &fakeLookup{existing: map[string]bool{}}
	cursors := newFakeCursorRepo()
	committer := &fakeCommitter{}

	orch, uploader := buildOrchestrator(t, []source.Adapter{adapter}, lookup, cursors, committer, true)

	stats, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].New)

	assert.Empty(t, committer.chunks)
	assert.Empty(t, uploader.objects)
	assert.Equal(t, 0, cursors.saves)
}

// One source blowing up entirely must not keep the others from importing.
func TestOrchestratorSourceFailureIsolated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("bytes"))
	}))
	defer server.Close()

	broken := &fakeAdapter{name: "jamendo", fetchErr: errors.New("api down")}
	healthy := &fakeAdapter{
		name:   "ia",
		tracks: []model.TrackRecord{sourceTrack("ia-x-t1", server.URL+"/1.mp3")},
		next:   json.RawMessage(`{"page":2}`),
	}

	cursors := newFakeCursorRepo()
	committer := &fakeCommitter{}

	orch, _ := buildOrchestrator(t, []source.Adapter{broken, healthy}, &fakeLookup{}, cursors, committer, false)

	stats, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, 1, stats[0].Errors)
	assert.Equal(t, 0, stats[0].Fetched)
	assert.Equal(t, 1, stats[1].New)

	require.Len(t, committer.chunks, 1)

	// no cursor movement for the failed source
	_, found, _ := cursors.Load("jamendo")
	assert.False(t, found)
	assert.Equal(t, `{"page":2}`, cursors.payload["ia"])
}

// A track whose audio download fails is still written, pointing at its
// original remote URLs.
func TestOrchestratorMediaFailureKeepsRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad.mp3" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("bytes"))
	}))
	defer server.Close()

	adapter := &fakeAdapter{
		name: "jamendo",
		tracks: []model.TrackRecord{
			sourceTrack("jamendo-1", server.URL+"/bad.mp3"),
			sourceTrack("jamendo-2", server.URL+"/good.mp3"),
		},
	}

	committer := &fakeCommitter{}
	orch, _ := buildOrchestrator(t, []source.Adapter{adapter}, &fakeLookup{}, newFakeCursorRepo(), committer, false)

	stats, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats[0].New)

	require.Len(t, committer.chunks, 1)
	require.Len(t, committer.chunks[0], 2)
	written := committer.chunks[0]

	// failed track keeps its remote URL and stays unmigrated
	assert.Equal(t, server.URL+"/bad.mp3", written[0].AudioURL)
	assert.False(t, written[0].Migrated())
	// the other track migrated normally
	assert.Contains(t, written[1].AudioURL, "tracks/audio/jamendo-2.mp3")
	assert.True(t, written[1].Migrated())
}

// Two sources colliding on the same ID within one run keeps the first copy.
func TestOrchestratorCrossSourceCollision(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("bytes"))
	}))
	defer server.Close()

	first := &fakeAdapter{
		name:   "jamendo",
		tracks: []model.TrackRecord{sourceTrack("shared-id", server.URL+"/1.mp3")},
	}
	second := &fakeAdapter{
		name:   "ia",
		tracks: []model.TrackRecord{sourceTrack("shared-id", server.URL+"/2.mp3")},
	}

	committer := &fakeCommitter{}
	orch, _ := buildOrchestrator(t, []source.Adapter{first, second}, &fakeLookup{}, newFakeCursorRepo(), committer, false)

	stats, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats[0].New)
	assert.Equal(t, 1, stats[1].Duplicates)
	require.Len(t, committer.chunks, 1)
	require.Len(t, committer.chunks[0], 1)
	assert.Equal(t, server.URL+"/1.mp3", committer.chunks[0][0].OriginalAudioURL)
}

// A cursor-load failure degrades to a first-run fetch instead of failing
// the source.
func TestOrchestratorCursorLoadFailureFallsBack(t *testing.T) {
	adapter := &fakeAdapter{
		name: "jamendo",
		next: json.RawMessage(`{"offset":20}`),
	}

	cursors := newFakeCursorRepo()
	cursors.loadErr = errors.New("db gone")

	orch, _ := buildOrchestrator(t, []source.Adapter{adapter}, &fakeLookup{}, cursors, &fakeCommitter{}, false)

	_, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, adapter.gotCursor)
}

// Dedup becoming unavailable aborts the run before anything is written.
func TestOrchestratorDedupFailureAbortsRun(t *testing.T) {
	adapter := &fakeAdapter{
		name:   "jamendo",
		tracks: []model.TrackRecord{sourceTrack("jamendo-1", "https://remote/1.mp3")},
	}

	lookup := &fakeLookup{failAt: 1}
	committer := &fakeCommitter{}
	cursors := newFakeCursorRepo()

	orch, _ := buildOrchestrator(t, []source.Adapter{adapter}, lookup, cursors, committer, false)

	_, err := orch.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, committer.chunks)
	assert.Equal(t, 0, cursors.saves)
}
