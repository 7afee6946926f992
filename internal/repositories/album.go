package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

const albumColumns = `id, sequence, remote_id, name, album_type, created_at, updated_at`

// AlbumRepository persists [models.Album] rows keyed by remote_id.
type AlbumRepository struct {
	db *sql.DB
}

// NewAlbumRepository creates a new AlbumRepository with the given database connection
func NewAlbumRepository(db *sql.DB) *AlbumRepository {
	return &AlbumRepository{db: db}
}

// Upsert creates the album linked to artistID, or updates the existing row without touching its artists.
func (r *AlbumRepository) Upsert(album *models.Album, artistID string) (bool, error) {
	if err := album.Validate(); err != nil {
		return false, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if artistID == "" {
		return false, fmt.Errorf("%w: album %s has no artist", shared.ErrValidation, album.RemoteID)
	}

	now := time.Now()

	insert := func(tx *sql.Tx) (bool, error) {
		sequence, err := NextSequence(tx, "albums")
		if err != nil {
			return false, fmt.Errorf("failed to generate sequence: %w", err)
		}
		id := shared.GenerateID()

		result, err := tx.Exec(`
			INSERT INTO albums (`+albumColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(remote_id) DO NOTHING
		`, id, sequence, album.RemoteID, album.Name, album.AlbumType, now, now)
		if err != nil {
			return false, fmt.Errorf("failed to insert album: %w", err)
		}
		ok, err := insertedRow(result)
		if !ok || err != nil {
			return ok, err
		}

		if _, err := tx.Exec(`INSERT INTO album_artists (album_id, artist_id) VALUES (?, ?)`, id, artistID); err != nil {
			return false, fmt.Errorf("failed to link album artist: %w", err)
		}
		album.ID, album.Sequence, album.CreatedAt, album.UpdatedAt = id, sequence, now, now
		return true, nil
	}

	update := func(tx *sql.Tx, row *existingRow) error {
		_, err := tx.Exec(`UPDATE albums SET name = ?, album_type = ?, updated_at = ? WHERE id = ?`,
			album.Name, album.AlbumType, now, row.id)
		if err != nil {
			return fmt.Errorf("failed to update album: %w", err)
		}
		album.ID, album.Sequence, album.UpdatedAt = row.id, row.sequence, now
		return nil
	}

	return upsert(r.db, "albums", album.RemoteID, insert, update)
}

// ExistsByRemoteID reports whether an album with remoteID is stored.
func (r *AlbumRepository) ExistsByRemoteID(remoteID string) (bool, error) {
	return existsRemote(r.db, "albums", remoteID)
}

// GetByRemoteID retrieves an album by its catalog id
func (r *AlbumRepository) GetByRemoteID(remoteID string) (*models.Album, error) {
	var album models.Album
	err := r.db.QueryRow(`SELECT `+albumColumns+` FROM albums WHERE remote_id = ?`, remoteID).Scan(
		&album.ID, &album.Sequence, &album.RemoteID, &album.Name, &album.AlbumType, &album.CreatedAt, &album.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: album %s", shared.ErrRecordNotFound, remoteID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan album: %w", err)
	}
	return &album, nil
}

// ArtistIDs returns the ids of the artists linked to an album.
func (r *AlbumRepository) ArtistIDs(albumID string) ([]string, error) {
	rows, err := r.db.Query(`SELECT artist_id FROM album_artists WHERE album_id = ? ORDER BY artist_id`, albumID)
	if err != nil {
		return nil, fmt.Errorf("failed to query album artists: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan album artist: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return ids, nil
}
