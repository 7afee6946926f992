package services

// AudioFeatures is the catalog's per-track feature vector.
// Danceability is nil when the catalog has not analysed the track.
type AudioFeatures struct {
	ID               string   `json:"id"`
	Acousticness     float64  `json:"acousticness"`
	Danceability     *float64 `json:"danceability"`
	Energy           float64  `json:"energy"`
	Instrumentalness float64  `json:"instrumentalness"`
	Key              int      `json:"key"`
	Liveness         float64  `json:"liveness"`
	Loudness         float64  `json:"loudness"`
	Mode             int      `json:"mode"`
	Speechiness      float64  `json:"speechiness"`
	Tempo            float64  `json:"tempo"`
	TimeSignature    int      `json:"time_signature"`
	Valence          float64  `json:"valence"`
	DurationMS       int      `json:"duration_ms"`
}

// HasAnalysis reports whether the catalog analysed the track.
func (f *AudioFeatures) HasAnalysis() bool {
	return f != nil && f.Danceability != nil
}

// AudioAnalysis is the detailed time-based analysis of a track.
type AudioAnalysis struct {
	Track    AnalysisSummary `json:"track"`
	Bars     []TimeInterval  `json:"bars"`
	Beats    []TimeInterval  `json:"beats"`
	Tatums   []TimeInterval  `json:"tatums"`
	Sections []Section       `json:"sections"`
}

type AnalysisSummary struct {
	Duration        float64 `json:"duration"`
	EndOfFadeIn     float64 `json:"end_of_fade_in"`
	StartOfFadeOut  float64 `json:"start_of_fade_out"`
	Loudness        float64 `json:"loudness"`
	Tempo           float64 `json:"tempo"`
	TempoConfidence float64 `json:"tempo_confidence"`
	Key             int     `json:"key"`
	KeyConfidence   float64 `json:"key_confidence"`
}

type TimeInterval struct {
	Start      float64 `json:"start"`
	Duration   float64 `json:"duration"`
	Confidence float64 `json:"confidence"`
}

type Section struct {
	Start      float64 `json:"start"`
	Duration   float64 `json:"duration"`
	Confidence float64 `json:"confidence"`
	Loudness   float64 `json:"loudness"`
	Tempo      float64 `json:"tempo"`
	Key        int     `json:"key"`
	Mode       int     `json:"mode"`
}
