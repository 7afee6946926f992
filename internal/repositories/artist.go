package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

const artistColumns = `id, sequence, remote_id, name, popularity, followers, genres, popular, import_process_id, created_at, updated_at`

// ArtistRepository persists [models.Artist] rows keyed by remote_id.
type ArtistRepository struct {
	db *sql.DB
}

// NewArtistRepository creates a new ArtistRepository with the given database connection
func NewArtistRepository(db *sql.DB) *ArtistRepository {
	return &ArtistRepository{db: db}
}

// Upsert creates the artist or overwrites the mutable fields of the existing row with the same remote_id.
// The artist's ID and Sequence are set from the stored row. An empty ImportProcessID keeps the stored tag.
func (r *ArtistRepository) Upsert(artist *models.Artist) (bool, error) {
	if err := artist.Validate(); err != nil {
		return false, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	genres := artist.Genres
	if genres == nil {
		genres = []string{}
	}
	encoded, err := json.Marshal(genres)
	if err != nil {
		return false, fmt.Errorf("failed to encode genres: %w", err)
	}

	now := time.Now()

	insert := func(tx *sql.Tx) (bool, error) {
		sequence, err := NextSequence(tx, "artists")
		if err != nil {
			return false, fmt.Errorf("failed to generate sequence: %w", err)
		}
		id := shared.GenerateID()

		result, err := tx.Exec(`
			INSERT INTO artists (`+artistColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(remote_id) DO NOTHING
		`,
			id, sequence, artist.RemoteID, artist.Name, artist.Popularity, artist.Followers,
			string(encoded), artist.Popular, nullable(artist.ImportProcessID), now, now,
		)
		if err != nil {
			return false, fmt.Errorf("failed to insert artist: %w", err)
		}
		ok, err := insertedRow(result)
		if ok {
			artist.ID, artist.Sequence, artist.CreatedAt, artist.UpdatedAt = id, sequence, now, now
		}
		return ok, err
	}

	update := func(tx *sql.Tx, row *existingRow) error {
		_, err := tx.Exec(`
			UPDATE artists
			SET name = ?, popularity = ?, followers = ?, genres = ?, popular = ?,
				import_process_id = COALESCE(?, import_process_id), updated_at = ?
			WHERE id = ?
		`,
			artist.Name, artist.Popularity, artist.Followers, string(encoded), artist.Popular,
			nullable(artist.ImportProcessID), now, row.id,
		)
		if err != nil {
			return fmt.Errorf("failed to update artist: %w", err)
		}
		artist.ID, artist.Sequence, artist.UpdatedAt = row.id, row.sequence, now
		return nil
	}

	return upsert(r.db, "artists", artist.RemoteID, insert, update)
}

// Get retrieves an artist by ID
func (r *ArtistRepository) Get(id string) (*models.Artist, error) {
	return r.scanOne(r.db.QueryRow(`SELECT `+artistColumns+` FROM artists WHERE id = ?`, id))
}

// GetByRemoteID retrieves an artist by its catalog id
func (r *ArtistRepository) GetByRemoteID(remoteID string) (*models.Artist, error) {
	return r.scanOne(r.db.QueryRow(`SELECT `+artistColumns+` FROM artists WHERE remote_id = ?`, remoteID))
}

// ExistsByRemoteID reports whether an artist with remoteID is stored.
func (r *ArtistRepository) ExistsByRemoteID(remoteID string) (bool, error) {
	return existsRemote(r.db, "artists", remoteID)
}

// List retrieves artists in sequence order, optionally limited to one import process.
func (r *ArtistRepository) List(importProcessID string) ([]*models.Artist, error) {
	query := `SELECT ` + artistColumns + ` FROM artists`
	args := []any{}
	if importProcessID != "" {
		query += " WHERE import_process_id = ?"
		args = append(args, importProcessID)
	}
	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	var artists []*models.Artist
	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			return nil, err
		}
		artists = append(artists, artist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return artists, nil
}

func (r *ArtistRepository) scanOne(row *sql.Row) (*models.Artist, error) {
	artist, err := scanArtist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: artist", shared.ErrRecordNotFound)
	}
	return artist, err
}

func scanArtist(s scanner) (*models.Artist, error) {
	var (
		artist          models.Artist
		genres          string
		importProcessID sql.NullString
	)

	err := s.Scan(
		&artist.ID, &artist.Sequence, &artist.RemoteID, &artist.Name, &artist.Popularity, &artist.Followers,
		&genres, &artist.Popular, &importProcessID, &artist.CreatedAt, &artist.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan artist: %w", err)
	}

	if err := json.Unmarshal([]byte(genres), &artist.Genres); err != nil {
		return nil, fmt.Errorf("failed to decode genres of artist %s: %w", artist.ID, err)
	}
	artist.ImportProcessID = importProcessID.String
	return &artist, nil
}
