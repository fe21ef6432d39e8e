package model

import "time"

// Default values applied by the sanitizer when a source leaves a field empty.
const (
	UnknownTitle  = "Untitled"
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
	DefaultGenre  = "Other"

	// DefaultLicense is assumed for every imported record; all configured
	// sources serve openly licensed audio only.
	DefaultLicense = "Creative Commons"

	// PlaceholderArtwork is served to clients when a source ships no cover.
	PlaceholderArtwork = "https://static.freefm.app/img/placeholder_cover.png"

	// ImportUploadedBy / ImportUploadedByName are the fixed attribution values
	// for records written by the importer. The importer is the only expected
	// writer of records carrying this uploader id.
	ImportUploadedBy     = "system-import"
	ImportUploadedByName = "FreeFM Import"

	// MaxTrackIDLength is the ceiling enforced by validation; the tracks table
	// primary key column is sized to match.
	MaxTrackIDLength = 128
)

// TrackRecord is the canonical catalog record. The mobile client backend reads
// rows of the tracks table directly, so the column/json shape here is the
// outbound contract of the importer.
//
// ID is immutable once written and deterministically encodes
// (source, external id[, sub-file]), e.g. "jamendo-1776" or
// "ia-grateful_dead-gd73-track01", so repeated harvests of the same external
// item collapse onto the same row.
type TrackRecord struct {
	ID             string `gorm:"primaryKey;size:128" json:"id"`
	Title          string `gorm:"size:512;not null" json:"title"`
	Artist         string `gorm:"size:512" json:"artist"`
	ArtistID       string `gorm:"size:255" json:"artistId"`
	Album          string `gorm:"size:512" json:"album"`
	AlbumID        string `gorm:"size:255" json:"albumId"`
	Duration       int    `gorm:"default:0" json:"duration"` // seconds, 0 if unknown
	Artwork        string `gorm:"size:1024" json:"artwork"`
	AudioURL       string `gorm:"size:1024;not null" json:"audioUrl"`
	IsLocal        bool   `gorm:"default:false" json:"isLocal"` // always false for imports
	Genre          string `gorm:"size:100" json:"genre"`
	License        string `gorm:"size:255" json:"license"`
	UploadedBy     string `gorm:"size:100;index" json:"uploadedBy"`
	UploadedByName string `gorm:"size:255" json:"uploadedByName"`

	// TitleLower is the prefix-search key; always the lowercase of Title,
	// recomputed whenever Title changes.
	TitleLower string `gorm:"size:512;index" json:"titleLower"`

	// OriginalAudioURL / OriginalArtwork hold the pre-migration source URLs.
	// A record is migrated iff OriginalAudioURL is non-empty.
	OriginalAudioURL string `gorm:"size:1024" json:"originalAudioUrl,omitempty"`
	OriginalArtwork  string `gorm:"size:1024" json:"originalArtwork,omitempty"`

	// CreatedAt is assigned by the database at commit time.
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName keeps the table name aligned with the client-facing contract.
func (TrackRecord) TableName() string {
	return "tracks"
}

// Migrated reports whether this record's media has already been relocated into
// our own object storage.
func (t *TrackRecord) Migrated() bool {
	return t.OriginalAudioURL != ""
}
