package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/crate/internal/models"
)

// CatalogStore composes the catalog repositories into the persistence gateway used by the importer.
type CatalogStore struct {
	Artists   *ArtistRepository
	Albums    *AlbumRepository
	Tracks    *TrackRepository
	Processes *ImportProcessRepository
}

// NewCatalogStore creates all repositories over db.
func NewCatalogStore(db *sql.DB) *CatalogStore {
	return &CatalogStore{
		Artists:   NewArtistRepository(db),
		Albums:    NewAlbumRepository(db),
		Tracks:    NewTrackRepository(db),
		Processes: NewImportProcessRepository(db),
	}
}

func (s *CatalogStore) UpsertArtist(artist *models.Artist) (bool, error) {
	return s.Artists.Upsert(artist)
}

func (s *CatalogStore) AlbumExists(remoteID string) (bool, error) {
	return s.Albums.ExistsByRemoteID(remoteID)
}

func (s *CatalogStore) UpsertAlbum(album *models.Album, artist *models.Artist) (bool, error) {
	return s.Albums.Upsert(album, artist.ID)
}

func (s *CatalogStore) UpsertTrack(track *models.Track, album *models.Album, artist *models.Artist) (bool, error) {
	return s.Tracks.Upsert(track, album.ID, artist.ID)
}

func (s *CatalogStore) FindTracksByArtistAndNameCI(artist *models.Artist, name string) ([]*models.Track, error) {
	return s.Tracks.FindByArtistAndNameCI(artist.ID, name)
}

func (s *CatalogStore) FindTracksByFeatureEquality(f models.AudioFeatures) ([]*models.Track, error) {
	return s.Tracks.FindByFeatureEquality(f)
}

// Export loads an artist by remote id with every track imported for it.
func (s *CatalogStore) Export(remoteArtistID string) (*models.CatalogExport, error) {
	artist, err := s.Artists.GetByRemoteID(remoteArtistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load artist %s: %w", remoteArtistID, err)
	}

	tracks, err := s.Tracks.ListByArtist(artist.ID)
	if err != nil {
		return nil, err
	}

	return &models.CatalogExport{Artist: artist, Tracks: tracks}, nil
}
