package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

const trackColumns = `t.id, t.sequence, t.remote_id, t.album_id, t.name,
	t.acousticness, t.danceability, t.energy, t.instrumentalness, t."key", t.liveness, t.loudness, t.mode,
	t.speechiness, t.tempo, t.time_signature, t.valence, t.duration_ms,
	t.section_count, t.bar_count, t.beat_count, t.fade_in_ms, t.fade_out_ms,
	t.tempo_confidence, t.key_confidence, t.loudness_range,
	t.genre, t.url, t.popular, t.import_process_id, t.created_at, t.updated_at`

// TrackRepository persists [models.Track] rows keyed by remote_id.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Upsert creates the track attached to albumID and artistID, or overwrites the normalized attributes
// of the existing row. The album and artist links of an existing track are never changed.
func (r *TrackRepository) Upsert(track *models.Track, albumID, artistID string) (bool, error) {
	if err := track.Validate(); err != nil {
		return false, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	now := time.Now()
	f, a := track.Features, track.Analysis

	insert := func(tx *sql.Tx) (bool, error) {
		if albumID == "" || artistID == "" {
			return false, fmt.Errorf("%w: new track %s needs an album and an artist", shared.ErrValidation, track.RemoteID)
		}
		sequence, err := NextSequence(tx, "tracks")
		if err != nil {
			return false, fmt.Errorf("failed to generate sequence: %w", err)
		}
		id := shared.GenerateID()

		result, err := tx.Exec(`
			INSERT INTO tracks (
				id, sequence, remote_id, album_id, name, name_folded,
				acousticness, danceability, energy, instrumentalness, "key", liveness, loudness, mode,
				speechiness, tempo, time_signature, valence, duration_ms,
				section_count, bar_count, beat_count, fade_in_ms, fade_out_ms,
				tempo_confidence, key_confidence, loudness_range,
				genre, url, popular, import_process_id, created_at, updated_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(remote_id) DO NOTHING
		`,
			id, sequence, track.RemoteID, albumID, track.Name, foldName(track.Name),
			f.Acousticness, f.Danceability, f.Energy, f.Instrumentalness, f.Key, f.Liveness, f.Loudness, f.Mode,
			f.Speechiness, f.Tempo, f.TimeSignature, f.Valence, f.DurationMS,
			a.SectionCount, a.BarCount, a.BeatCount, a.FadeInMS, a.FadeOutMS,
			a.TempoConfidence, a.KeyConfidence, a.LoudnessRange,
			track.Genre, track.URL, track.Popular, nullable(track.ImportProcessID), now, now,
		)
		if err != nil {
			return false, fmt.Errorf("failed to insert track: %w", err)
		}
		ok, err := insertedRow(result)
		if !ok || err != nil {
			return ok, err
		}

		if _, err := tx.Exec(`INSERT INTO track_artists (track_id, artist_id) VALUES (?, ?)`, id, artistID); err != nil {
			return false, fmt.Errorf("failed to link track artist: %w", err)
		}
		track.ID, track.Sequence, track.AlbumID, track.CreatedAt, track.UpdatedAt = id, sequence, albumID, now, now
		return true, nil
	}

	update := func(tx *sql.Tx, row *existingRow) error {
		_, err := tx.Exec(`
			UPDATE tracks
			SET name = ?, name_folded = ?,
				acousticness = ?, danceability = ?, energy = ?, instrumentalness = ?, "key" = ?, liveness = ?,
				loudness = ?, mode = ?, speechiness = ?, tempo = ?, time_signature = ?, valence = ?, duration_ms = ?,
				section_count = ?, bar_count = ?, beat_count = ?, fade_in_ms = ?, fade_out_ms = ?,
				tempo_confidence = ?, key_confidence = ?, loudness_range = ?,
				genre = ?, url = ?, popular = ?, import_process_id = COALESCE(?, import_process_id), updated_at = ?
			WHERE id = ?
		`,
			track.Name, foldName(track.Name),
			f.Acousticness, f.Danceability, f.Energy, f.Instrumentalness, f.Key, f.Liveness,
			f.Loudness, f.Mode, f.Speechiness, f.Tempo, f.TimeSignature, f.Valence, f.DurationMS,
			a.SectionCount, a.BarCount, a.BeatCount, a.FadeInMS, a.FadeOutMS,
			a.TempoConfidence, a.KeyConfidence, a.LoudnessRange,
			track.Genre, track.URL, track.Popular, nullable(track.ImportProcessID), now,
			row.id,
		)
		if err != nil {
			return fmt.Errorf("failed to update track: %w", err)
		}
		track.ID, track.Sequence, track.UpdatedAt = row.id, row.sequence, now
		return nil
	}

	return upsert(r.db, "tracks", track.RemoteID, insert, update)
}

// ExistsByRemoteID reports whether a track with remoteID is stored.
func (r *TrackRepository) ExistsByRemoteID(remoteID string) (bool, error) {
	return existsRemote(r.db, "tracks", remoteID)
}

// GetByRemoteID retrieves a track by its catalog id
func (r *TrackRepository) GetByRemoteID(remoteID string) (*models.Track, error) {
	track, err := scanTrack(r.db.QueryRow(`SELECT `+trackColumns+` FROM tracks t WHERE t.remote_id = ?`, remoteID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: track %s", shared.ErrRecordNotFound, remoteID)
	}
	return track, err
}

// FindByArtistAndNameCI returns the tracks linked to artistID whose name equals name ignoring case.
// Names are compared on the stored name_folded column since SQLite's lower() only folds ASCII.
func (r *TrackRepository) FindByArtistAndNameCI(artistID, name string) ([]*models.Track, error) {
	query := `
		SELECT ` + trackColumns + `
		FROM tracks t
		JOIN track_artists ta ON ta.track_id = t.id
		WHERE ta.artist_id = ? AND t.name_folded = ?
		ORDER BY t.sequence ASC
	`
	return r.list(query, artistID, foldName(name))
}

// foldName lowercases every Unicode letter of a track name.
func foldName(name string) string {
	return strings.ToLower(name)
}

// FindByFeatureEquality returns every track whose duplicate-detection features exactly equal f.
func (r *TrackRepository) FindByFeatureEquality(f models.AudioFeatures) ([]*models.Track, error) {
	conditions := make([]string, 0, len(models.DuplicateFeatureColumns))
	for _, column := range models.DuplicateFeatureColumns {
		conditions = append(conditions, "t."+column+" = ?")
	}
	query := `SELECT ` + trackColumns + ` FROM tracks t WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY t.sequence ASC`
	return r.list(query, f.DuplicateFeatureValues()...)
}

// ListByArtist returns the tracks linked to artistID with their album names, in album then track order.
func (r *TrackRepository) ListByArtist(artistID string) ([]models.CatalogTrack, error) {
	rows, err := r.db.Query(`
		SELECT `+trackColumns+`, a.name
		FROM tracks t
		JOIN track_artists ta ON ta.track_id = t.id
		JOIN albums a ON a.id = t.album_id
		WHERE ta.artist_id = ?
		ORDER BY a.sequence ASC, t.sequence ASC
	`, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var out []models.CatalogTrack
	for rows.Next() {
		var albumName string
		track, err := scanTrack(rows, &albumName)
		if err != nil {
			return nil, err
		}
		out = append(out, models.CatalogTrack{Track: track, AlbumName: albumName})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// CountByImportProcess returns the number of tracks tagged with an import process.
func (r *TrackRepository) CountByImportProcess(importProcessID string) (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM tracks WHERE import_process_id = ?`, importProcessID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return n, nil
}

func (r *TrackRepository) list(query string, args ...any) ([]*models.Track, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tracks, nil
}

// scanTrack scans [trackColumns] followed by any extra destinations.
func scanTrack(s scanner, extra ...any) (*models.Track, error) {
	var (
		t               models.Track
		importProcessID sql.NullString
	)
	f, a := &t.Features, &t.Analysis

	dest := []any{
		&t.ID, &t.Sequence, &t.RemoteID, &t.AlbumID, &t.Name,
		&f.Acousticness, &f.Danceability, &f.Energy, &f.Instrumentalness, &f.Key, &f.Liveness, &f.Loudness, &f.Mode,
		&f.Speechiness, &f.Tempo, &f.TimeSignature, &f.Valence, &f.DurationMS,
		&a.SectionCount, &a.BarCount, &a.BeatCount, &a.FadeInMS, &a.FadeOutMS,
		&a.TempoConfidence, &a.KeyConfidence, &a.LoudnessRange,
		&t.Genre, &t.URL, &t.Popular, &importProcessID, &t.CreatedAt, &t.UpdatedAt,
	}
	dest = append(dest, extra...)

	err := s.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}
	t.ImportProcessID = importProcessID.String
	return &t, nil
}
