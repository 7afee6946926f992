package testing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Responder produces the status and body for the n-th request (1-based) to a path.
// A zero status means 200. String bodies are written verbatim, anything else is JSON encoded.
type Responder func(hit int, r *http.Request) (int, any)

// CatalogServer is a fake remote catalog serving canned JSON by request path.
//
// Batch lookups ("/artists?ids=a,b") are assembled from the single-resource routes unless the
// batch path has its own route.
type CatalogServer struct {
	*httptest.Server

	mu     sync.Mutex
	routes map[string]Responder
	hits   map[string]int
}

// NewCatalogServer starts a fake catalog that is closed when the test ends.
func NewCatalogServer(t *testing.T) *CatalogServer {
	t.Helper()
	s := &CatalogServer{
		routes: make(map[string]Responder),
		hits:   make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// JSON serves body with status 200 on every request to path.
func (s *CatalogServer) JSON(path string, body any) {
	s.Handle(path, func(int, *http.Request) (int, any) { return http.StatusOK, body })
}

// Status serves an empty response with the given status on every request to path.
func (s *CatalogServer) Status(path string, status int) {
	s.Handle(path, func(int, *http.Request) (int, any) { return status, "" })
}

// Handle registers fn for path.
func (s *CatalogServer) Handle(path string, fn Responder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[path] = fn
}

// Hits returns how many requests reached path.
func (s *CatalogServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// TotalHits returns the number of requests served.
func (s *CatalogServer) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

func (s *CatalogServer) serve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	s.mu.Lock()
	s.hits[path]++
	hit := s.hits[path]
	fn, ok := s.routes[path]
	s.mu.Unlock()

	if !ok {
		if ids := r.URL.Query().Get("ids"); ids != "" {
			s.serveBatch(w, r, path, strings.Split(ids, ","))
			return
		}
		http.NotFound(w, r)
		return
	}

	status, body := fn(hit, r)
	write(w, status, body)
}

func (s *CatalogServer) serveBatch(w http.ResponseWriter, r *http.Request, path string, ids []string) {
	items := make([]any, 0, len(ids))
	for _, id := range ids {
		s.mu.Lock()
		fn, ok := s.routes[path+"/"+id]
		s.mu.Unlock()
		if !ok {
			items = append(items, nil)
			continue
		}
		status, body := fn(1, r)
		if status != 0 && status != http.StatusOK {
			items = append(items, nil)
			continue
		}
		items = append(items, body)
	}
	write(w, http.StatusOK, map[string]any{strings.TrimPrefix(path, "/"): items})
}

func write(w http.ResponseWriter, status int, body any) {
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	switch b := body.(type) {
	case string:
		_, _ = w.Write([]byte(b))
	case nil:
		_, _ = w.Write([]byte("null"))
	default:
		_ = json.NewEncoder(w).Encode(b)
	}
}

// ArtistJSON builds a complete artist payload.
func ArtistJSON(id, name string, genres ...string) map[string]any {
	if genres == nil {
		genres = []string{}
	}
	return map[string]any{
		"id":         id,
		"type":       "artist",
		"name":       name,
		"popularity": 61,
		"followers":  map[string]any{"total": 120345},
		"genres":     genres,
	}
}

// AlbumJSON builds an album payload as returned by an artist's albums relation.
func AlbumJSON(id, name, albumType string) map[string]any {
	return map[string]any{
		"id":         id,
		"type":       "album",
		"name":       name,
		"album_type": albumType,
	}
}

// TrackJSON builds a simplified track payload credited to artistIDs.
func TrackJSON(id, name string, artistIDs ...string) map[string]any {
	artists := make([]map[string]any, 0, len(artistIDs))
	for _, a := range artistIDs {
		artists = append(artists, map[string]any{"id": a, "type": "artist"})
	}
	return map[string]any{
		"id":            id,
		"type":          "track",
		"name":          name,
		"artists":       artists,
		"external_urls": map[string]any{"spotify": "https://open.spotify.com/track/" + id},
	}
}

// FeaturesJSON builds a full audio-features payload. Delete "danceability" to simulate a track without analysis.
func FeaturesJSON(id string, danceability float64) map[string]any {
	return map[string]any{
		"id":               id,
		"acousticness":     0.011,
		"danceability":     danceability,
		"energy":           0.84,
		"instrumentalness": 0.72,
		"key":              5,
		"liveness":         0.094,
		"loudness":         -7.25,
		"mode":             0,
		"speechiness":      0.051,
		"tempo":            123.998,
		"time_signature":   4,
		"valence":          0.36,
		"duration_ms":      412000,
	}
}

// AnalysisJSON builds a small audio-analysis payload.
func AnalysisJSON() map[string]any {
	interval := func(start float64) map[string]any {
		return map[string]any{"start": start, "duration": 0.5, "confidence": 0.9}
	}
	return map[string]any{
		"track": map[string]any{
			"duration":          412.0,
			"end_of_fade_in":    0.25,
			"start_of_fade_out": 401.5,
			"tempo":             123.998,
			"tempo_confidence":  0.81,
			"key_confidence":    0.42,
		},
		"bars":  []any{interval(0), interval(2), interval(4)},
		"beats": []any{interval(0), interval(0.5), interval(1), interval(1.5)},
		"sections": []any{
			map[string]any{"start": 0.0, "duration": 30.0, "loudness": -12.5, "tempo": 124.0},
			map[string]any{"start": 30.0, "duration": 120.0, "loudness": -6.0, "tempo": 124.0},
		},
	}
}

// Page wraps items in a paging object with no next page.
func Page(items ...map[string]any) map[string]any {
	list := make([]any, 0, len(items))
	for _, item := range items {
		list = append(list, item)
	}
	return map[string]any{"items": list, "next": nil, "total": len(items), "offset": 0}
}
