package tasks

import (
	"fmt"
	"strings"

	"github.com/desertthunder/crate/internal/models"
)

// DuplicateStore holds the queries the [DuplicateDetector] runs.
type DuplicateStore interface {
	FindTracksByArtistAndNameCI(artist *models.Artist, name string) ([]*models.Track, error)
	FindTracksByFeatureEquality(features models.AudioFeatures) ([]*models.Track, error)
}

// DuplicateDetector decides whether a candidate track is already in the catalog.
type DuplicateDetector struct {
	store DuplicateStore
}

func NewDuplicateDetector(store DuplicateStore) *DuplicateDetector {
	return &DuplicateDetector{store: store}
}

// IsDuplicate reports whether candidate matches a stored track.
//
// A track of artist named like the candidate (ignoring case) is a duplicate. Otherwise any stored
// track whose ten comparison features exactly equal the candidate's is a duplicate when one name
// contains the other (case-sensitive).
func (d *DuplicateDetector) IsDuplicate(artist *models.Artist, candidate *models.Track) (bool, error) {
	named, err := d.store.FindTracksByArtistAndNameCI(artist, candidate.Name)
	if err != nil {
		return false, fmt.Errorf("failed to look up tracks by name: %w", err)
	}
	if len(named) > 0 {
		return true, nil
	}

	similar, err := d.store.FindTracksByFeatureEquality(candidate.Features)
	if err != nil {
		return false, fmt.Errorf("failed to look up tracks by features: %w", err)
	}
	for _, t := range similar {
		if strings.Contains(t.Name, candidate.Name) || strings.Contains(candidate.Name, t.Name) {
			return true, nil
		}
	}
	return false, nil
}
