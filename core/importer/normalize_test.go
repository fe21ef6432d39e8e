package importer

import (
	"strings"
	"testing"

	"FreeFM/model"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFillsDefaults(t *testing.T) {
	rec := Sanitize(model.TrackRecord{
		ID:       "jamendo-1",
		AudioURL: "https://example.com/a.mp3",
	})

	assert.Equal(t, model.UnknownTitle, rec.Title)
	assert.Equal(t, model.UnknownArtist, rec.Artist)
	assert.Equal(t, "unknown-artist", rec.ArtistID)
	assert.Equal(t, model.UnknownAlbum, rec.Album)
	assert.Equal(t, "unknown-album", rec.AlbumID)
	assert.Equal(t, model.PlaceholderArtwork, rec.Artwork)
	assert.Equal(t, "Other", rec.Genre)
	assert.Equal(t, model.DefaultLicense, rec.License)
	assert.Equal(t, model.ImportUploadedBy, rec.UploadedBy)
	assert.Equal(t, model.ImportUploadedByName, rec.UploadedByName)
	assert.False(t, rec.IsLocal)
	assert.Equal(t, 0, rec.Duration)
}

func TestSanitizeDerivesTitleLower(t *testing.T) {
	inputs := []string{"Hello World", "ALL CAPS", "already lower", "MiXeD 123", "Ünïcödé TITLE"}

	for _, title := range inputs {
		rec := Sanitize(model.TrackRecord{ID: "x", Title: title, AudioURL: "http://a/b.mp3"})
		assert.Equal(t, strings.ToLower(rec.Title), rec.TitleLower, "title %q", title)
	}
}

func TestSanitizeKeepsProvidedValues(t *testing.T) {
	rec := Sanitize(model.TrackRecord{
		ID:       "ia-item-track01",
		Title:    "Dark Star",
		Artist:   "Grateful Dead",
		Duration: 1383,
		Genre:    "Rock",
		AudioURL: "https://archive.org/download/item/track01.mp3",
	})

	assert.Equal(t, "Dark Star", rec.Title)
	assert.Equal(t, "dark star", rec.TitleLower)
	assert.Equal(t, "Grateful Dead", rec.Artist)
	assert.Equal(t, 1383, rec.Duration)
	assert.Equal(t, "Rock", rec.Genre)
}

func TestSanitizeForcesImportAttribution(t *testing.T) {
	// 上游伪造的归属字段必须被覆盖
	rec := Sanitize(model.TrackRecord{
		ID:         "jamendo-2",
		AudioURL:   "http://a/b.mp3",
		IsLocal:    true,
		UploadedBy: "someone-else",
	})

	assert.False(t, rec.IsLocal)
	assert.Equal(t, model.ImportUploadedBy, rec.UploadedBy)
}

func TestValidate(t *testing.T) {
	valid := model.TrackRecord{ID: "jamendo-1", Title: "Song", AudioURL: "https://x/y.mp3"}

	tests := []struct {
		name   string
		mutate func(*model.TrackRecord)
		want   bool
	}{
		{"valid record", func(r *model.TrackRecord) {}, true},
		{"http url accepted", func(r *model.TrackRecord) { r.AudioURL = "http://x/y.mp3" }, true},
		{"empty id", func(r *model.TrackRecord) { r.ID = "" }, false},
		{"overlong id", func(r *model.TrackRecord) { r.ID = strings.Repeat("a", model.MaxTrackIDLength+1) }, false},
		{"id at ceiling", func(r *model.TrackRecord) { r.ID = strings.Repeat("a", model.MaxTrackIDLength) }, true},
		{"empty title", func(r *model.TrackRecord) { r.Title = "" }, false},
		{"empty audio url", func(r *model.TrackRecord) { r.AudioURL = "" }, false},
		{"non-network audio url", func(r *model.TrackRecord) { r.AudioURL = "file:///tmp/a.mp3" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid
			tt.mutate(&rec)
			assert.Equal(t, tt.want, Validate(rec))
		})
	}
}

// Three harvested tracks, one with an empty audio URL: exactly two survive
// sanitize+validate.
func TestSanitizeValidatePipeline(t *testing.T) {
	harvested := []model.TrackRecord{
		{ID: "jamendo-1", Title: "One", AudioURL: "https://x/1.mp3"},
		{ID: "jamendo-2", Title: "Two", AudioURL: ""},
		{ID: "jamendo-3", Title: "Three", AudioURL: "https://x/3.mp3"},
	}

	valid := make([]model.TrackRecord, 0, len(harvested))
	for _, raw := range harvested {
		rec := Sanitize(raw)
		if Validate(rec) {
			valid = append(valid, rec)
		}
	}

	assert.Len(t, valid, 2)
	assert.Equal(t, "jamendo-1", valid[0].ID)
	assert.Equal(t, "jamendo-3", valid[1].ID)
}
