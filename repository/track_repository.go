package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FreeFM/db"
	"FreeFM/model"
)

// TrackRepository defines the catalog access the import pipeline needs.
type TrackRepository interface {
	// ExistingIDs returns the subset of ids already present in the catalog.
	// Callers are responsible for keeping len(ids) within the per-query
	// ceiling; the dedup checker chunks before calling.
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)
	GetTrackByID(ctx context.Context, id string) (*model.TrackRecord, error)
	// ListTracksAfter returns up to limit imported tracks ordered by id,
	// strictly after afterID (empty afterID starts from the beginning).
	ListTracksAfter(ctx context.Context, afterID string, limit int) ([]*model.TrackRecord, error)
	// UpdateTrackMedia rewrites the media URLs after a storage migration,
	// preserving the pre-migration URLs for auditability.
	UpdateTrackMedia(ctx context.Context, id, audioURL, artwork, originalAudioURL, originalArtwork string) error
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	DB *sql.DB
}

// NewMySQLTrackRepository creates a new instance of mysqlTrackRepository.
func NewMySQLTrackRepository() TrackRepository {
	return &mysqlTrackRepository{DB: db.DB}
}

const trackColumns = `id, title, artist, artist_id, album, album_id, duration, artwork, audio_url,
	is_local, genre, license, uploaded_by, uploaded_by_name, title_lower,
	COALESCE(original_audio_url, ''), COALESCE(original_artwork, ''), created_at, updated_at`

// ExistingIDs checks which of the given ids already exist in the tracks table.
func (r *mysqlTrackRepository) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf(`SELECT id FROM tracks WHERE id IN (%s)`, placeholders)

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing track ids: %w", err)
	}
	defer rows.Close()

	existing := make([]string, 0, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan track id in ExistingIDs: %w", err)
		}
		existing = append(existing, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in ExistingIDs: %w", err)
	}

	return existing, nil
}

// GetTrackByID retrieves a track by its ID, or nil when not found.
func (r *mysqlTrackRepository) GetTrackByID(ctx context.Context, id string) (*model.TrackRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM tracks WHERE id = ?`, trackColumns)
	row := r.DB.QueryRowContext(ctx, query, id)

	track, err := scanTrack(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Track not found
		}
		return nil, fmt.Errorf("failed to scan track by ID %s: %w", id, err)
	}
	return track, nil
}

// ListTracksAfter pages the catalog for the storage migration pass. Only
// imported records are candidates; locally uploaded tracks are handled by the
// upload flow, not the importer.
func (r *mysqlTrackRepository) ListTracksAfter(ctx context.Context, afterID string, limit int) ([]*model.TrackRecord, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM tracks WHERE id > ? AND uploaded_by = ? ORDER BY id ASC LIMIT ?`,
		trackColumns)

	rows, err := r.DB.QueryContext(ctx, query, afterID, model.ImportUploadedBy, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks after %q: %w", afterID, err)
	}
	defer rows.Close()

	tracks := make([]*model.TrackRecord, 0, limit)
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track in ListTracksAfter: %w", err)
		}
		tracks = append(tracks, track)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in ListTracksAfter: %w", err)
	}

	return tracks, nil
}

// UpdateTrackMedia persists relocated media URLs for a single track.
func (r *mysqlTrackRepository) UpdateTrackMedia(ctx context.Context, id, audioURL, artwork, originalAudioURL, originalArtwork string) error {
	query := `UPDATE tracks
	          SET audio_url = ?, artwork = ?, original_audio_url = ?, original_artwork = ?, updated_at = ?
	          WHERE id = ?`

	res, err := r.DB.ExecContext(ctx, query, audioURL, artwork, originalAudioURL, originalArtwork, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to execute UpdateTrackMedia for track %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows for UpdateTrackMedia: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no track found with id %s", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrack(row rowScanner) (*model.TrackRecord, error) {
	track := &model.TrackRecord{}
	err := row.Scan(
		&track.ID, &track.Title, &track.Artist, &track.ArtistID, &track.Album, &track.AlbumID,
		&track.Duration, &track.Artwork, &track.AudioURL, &track.IsLocal, &track.Genre,
		&track.License, &track.UploadedBy, &track.UploadedByName, &track.TitleLower,
		&track.OriginalAudioURL, &track.OriginalArtwork, &track.CreatedAt, &track.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return track, nil
}
