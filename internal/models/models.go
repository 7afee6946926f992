// package models defines the data model for the catalog importer
package models

import (
	"fmt"
	"strings"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

// Artist is a persisted catalog artist.
type Artist struct {
	ID              string
	Sequence        int
	RemoteID        string
	Name            string
	Popularity      int
	Followers       int
	Genres          []string
	Popular         bool
	ImportProcessID string // empty when the row was not written by a tracked process
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks the fields required to persist an artist.
func (a *Artist) Validate() error {
	if strings.TrimSpace(a.RemoteID) == "" {
		return fmt.Errorf("artist remote_id is required")
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("artist name is required")
	}
	return nil
}

// Album is a persisted catalog album.
type Album struct {
	ID        string
	Sequence  int
	RemoteID  string
	Name      string
	AlbumType string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AlbumTypeCompilation marks albums that are never imported.
const AlbumTypeCompilation = "compilation"

// Validate checks the fields required to persist an album.
func (a *Album) Validate() error {
	if strings.TrimSpace(a.RemoteID) == "" {
		return fmt.Errorf("album remote_id is required")
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("album name is required")
	}
	return nil
}

// IsCompilation reports whether the album is a compilation.
func (a *Album) IsCompilation() bool {
	return a.AlbumType == AlbumTypeCompilation
}

// AudioFeatures is the normalized numeric feature set of a track.
type AudioFeatures struct {
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Key              int     `json:"key"`
	Liveness         float64 `json:"liveness"`
	Loudness         float64 `json:"loudness"`
	Mode             int     `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Tempo            float64 `json:"tempo"`
	TimeSignature    int     `json:"time_signature"`
	Valence          float64 `json:"valence"`
	DurationMS       int     `json:"duration_ms"`
}

// DuplicateFeatureColumns are the columns compared for exact equality when looking for near-duplicate tracks.
var DuplicateFeatureColumns = []string{
	"acousticness", "danceability", "energy", "instrumentalness", "liveness",
	"loudness", "speechiness", "time_signature", "tempo", "valence",
}

// DuplicateFeatureValues returns the values matching [DuplicateFeatureColumns], in order.
func (f AudioFeatures) DuplicateFeatureValues() []any {
	return []any{
		f.Acousticness, f.Danceability, f.Energy, f.Instrumentalness, f.Liveness,
		f.Loudness, f.Speechiness, f.TimeSignature, f.Tempo, f.Valence,
	}
}

// TrackAnalysis holds attributes derived from a track's audio analysis.
type TrackAnalysis struct {
	SectionCount    int     `json:"section_count"`
	BarCount        int     `json:"bar_count"`
	BeatCount       int     `json:"beat_count"`
	FadeInMS        int     `json:"fade_in_ms"`
	FadeOutMS       int     `json:"fade_out_ms"`
	TempoConfidence float64 `json:"tempo_confidence"`
	KeyConfidence   float64 `json:"key_confidence"`
	LoudnessRange   float64 `json:"loudness_range"` // loudest minus quietest section, in dB
}

// Track is a persisted catalog track.
type Track struct {
	ID              string
	Sequence        int
	RemoteID        string
	AlbumID         string
	Name            string
	Features        AudioFeatures
	Analysis        TrackAnalysis
	Genre           string
	URL             string
	Popular         bool
	ImportProcessID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks the fields required to persist a track.
func (t *Track) Validate() error {
	if strings.TrimSpace(t.RemoteID) == "" {
		return fmt.Errorf("track remote_id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("track name is required")
	}
	return nil
}

// CatalogExport is an artist with the tracks imported for it, ready for formatting.
type CatalogExport struct {
	Artist *Artist
	Tracks []CatalogTrack
}

// CatalogTrack pairs a track with the name of its album.
type CatalogTrack struct {
	Track     *Track
	AlbumName string
}
