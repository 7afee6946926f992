package tasks

import (
	"context"
	"fmt"
	"math"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
)

// AnalysisDeriver turns a detailed audio analysis into persisted track attributes.
type AnalysisDeriver interface {
	Derive(analysis *services.AudioAnalysis, track *models.Track) models.TrackAnalysis
}

// SectionDeriver derives structure counts, fades, confidences and the section loudness range.
type SectionDeriver struct{}

// Derive returns zero attributes when analysis is nil.
func (SectionDeriver) Derive(analysis *services.AudioAnalysis, track *models.Track) models.TrackAnalysis {
	if analysis == nil {
		return models.TrackAnalysis{}
	}

	summary := analysis.Track
	duration := summary.Duration
	if duration <= 0 && track != nil {
		duration = float64(track.Features.DurationMS) / 1000
	}

	out := models.TrackAnalysis{
		SectionCount:    len(analysis.Sections),
		BarCount:        len(analysis.Bars),
		BeatCount:       len(analysis.Beats),
		FadeInMS:        seconds(summary.EndOfFadeIn),
		TempoConfidence: summary.TempoConfidence,
		KeyConfidence:   summary.KeyConfidence,
	}
	if summary.StartOfFadeOut > 0 && duration > summary.StartOfFadeOut {
		out.FadeOutMS = seconds(duration - summary.StartOfFadeOut)
	}

	if len(analysis.Sections) > 0 {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, s := range analysis.Sections {
			lo = math.Min(lo, s.Loudness)
			hi = math.Max(hi, s.Loudness)
		}
		out.LoudnessRange = hi - lo
	}

	return out
}

func seconds(s float64) int {
	if s <= 0 {
		return 0
	}
	return int(math.Round(s * 1000))
}

// Normalized is a track converted to its persisted attributes.
type Normalized struct {
	Track *models.Track
	// HasAnalysis is false when the catalog has no danceability for the track. Such tracks are never stored.
	HasAnalysis bool
}

// Normalizer converts remote tracks into [models.Track] values.
type Normalizer struct {
	deriver AnalysisDeriver
}

// NewNormalizer creates a normalizer. A nil deriver uses [SectionDeriver].
func NewNormalizer(deriver AnalysisDeriver) *Normalizer {
	if deriver == nil {
		deriver = SectionDeriver{}
	}
	return &Normalizer{deriver: deriver}
}

// Normalize reads the track's name, link and audio features and tags it with the run's genre,
// popularity flag and import process.
func (n *Normalizer) Normalize(ctx context.Context, track *services.Track, genre string, popular bool, processID string) (*Normalized, error) {
	name, err := track.Name(ctx)
	if err != nil {
		return nil, err
	}
	url, err := track.ExternalURL(ctx)
	if err != nil {
		return nil, err
	}
	features, err := track.AudioFeatures(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audio features: %w", err)
	}

	out := &models.Track{
		RemoteID:        track.ID(),
		Name:            name,
		Genre:           genre,
		URL:             url,
		Popular:         popular,
		ImportProcessID: processID,
		Features: models.AudioFeatures{
			Acousticness:     features.Acousticness,
			Energy:           features.Energy,
			Instrumentalness: features.Instrumentalness,
			Key:              features.Key,
			Liveness:         features.Liveness,
			Loudness:         features.Loudness,
			Mode:             features.Mode,
			Speechiness:      features.Speechiness,
			Tempo:            features.Tempo,
			TimeSignature:    features.TimeSignature,
			Valence:          features.Valence,
			DurationMS:       features.DurationMS,
		},
	}
	if features.HasAnalysis() {
		out.Features.Danceability = *features.Danceability
	}

	return &Normalized{Track: out, HasAnalysis: features.HasAnalysis()}, nil
}

// Analyze fetches the detailed analysis of a normalized track and merges the derived attributes.
func (n *Normalizer) Analyze(ctx context.Context, track *services.Track, normalized *Normalized) error {
	if !normalized.HasAnalysis {
		return fmt.Errorf("%w: %s", shared.ErrNoAnalysis, track.ID())
	}
	analysis, err := track.AudioAnalysis(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch audio analysis: %w", err)
	}
	normalized.Track.Analysis = n.deriver.Derive(analysis, normalized.Track)
	return nil
}
