package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/crate/internal/shared"
)

// fetcher performs a GET against the catalog and decodes the JSON body into result.
type fetcher interface {
	get(ctx context.Context, endpoint string, result any) error
}

// resource holds the attributes of one remote entity and hydrates them on demand.
type resource struct {
	kind     Kind
	id       string
	attrs    map[string]json.RawMessage
	client   fetcher
	hydrated bool
}

func newResource(client fetcher, kind Kind, raw json.RawMessage) (*resource, error) {
	attrs := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	r := &resource{kind: kind, attrs: attrs, client: client}
	if v, ok := attrs["id"]; ok {
		_ = json.Unmarshal(v, &r.id)
	}
	return r, nil
}

func (r *resource) Kind() Kind     { return r.kind }
func (r *resource) ID() string     { return r.id }
func (r *resource) Hydrated() bool { return r.hydrated }

// Attr returns the raw value of a declared attribute, hydrating the resource once if the value is
// absent or null. A nil result with a nil error means the attribute is absent even after hydration.
func (r *resource) Attr(ctx context.Context, name string) (json.RawMessage, error) {
	if strings.HasSuffix(name, RefreshSuffix) || !r.kind.knows(name) {
		return nil, fmt.Errorf("%w: %s.%s", shared.ErrUnknownAttribute, r.kind, name)
	}
	if v, ok := r.present(name); ok {
		return v, nil
	}
	if r.hydrated || r.id == "" {
		return nil, nil
	}
	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	v, _ := r.present(name)
	return v, nil
}

// Refresh fetches the full representation and replaces the local attributes.
func (r *resource) Refresh(ctx context.Context) error {
	if r.id == "" {
		return fmt.Errorf("%w: %s without id", shared.ErrInvalidInput, r.kind)
	}
	attrs := make(map[string]json.RawMessage)
	if err := r.client.get(ctx, r.kind.path(r.id), &attrs); err != nil {
		return err
	}
	r.attrs = attrs
	r.hydrated = true
	return nil
}

func (r *resource) present(name string) (json.RawMessage, bool) {
	v, ok := r.attrs[name]
	if !ok || len(v) == 0 || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil, false
	}
	return v, true
}

// decode reads an optional attribute into out and reports whether it was present.
func (r *resource) decode(ctx context.Context, name string, out any) (bool, error) {
	raw, err := r.Attr(ctx, name)
	if err != nil || raw == nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode %s.%s: %w", r.kind, name, err)
	}
	return true, nil
}

// require reads an attribute that must exist once hydrated.
func (r *resource) require(ctx context.Context, name string, out any) error {
	ok, err := r.decode(ctx, name, out)
	if err != nil {
		return err
	}
	if !ok {
		return &HydrationError{Kind: r.kind, ID: r.id, Attribute: name}
	}
	return nil
}

type ref struct {
	ID string `json:"id"`
}

// Artist is a catalog artist.
type Artist struct {
	*resource
	albums []*Album
}

func (a *Artist) Name(ctx context.Context) (string, error) {
	var name string
	err := a.require(ctx, "name", &name)
	return name, err
}

func (a *Artist) Popularity(ctx context.Context) (int, error) {
	var p int
	err := a.require(ctx, "popularity", &p)
	return p, err
}

// Followers returns the follower total.
func (a *Artist) Followers(ctx context.Context) (int, error) {
	var f struct {
		Total *int `json:"total"`
	}
	if err := a.require(ctx, "followers", &f); err != nil {
		return 0, err
	}
	if f.Total == nil {
		return 0, &HydrationError{Kind: a.kind, ID: a.id, Attribute: "followers.total"}
	}
	return *f.Total, nil
}

// Genres returns the artist's genre tags, which may be empty.
func (a *Artist) Genres(ctx context.Context) ([]string, error) {
	var genres []string
	if _, err := a.decode(ctx, "genres", &genres); err != nil {
		return nil, err
	}
	return genres, nil
}

// Albums returns every album, single and compilation credited to the artist. The list is fetched
// once per instance.
func (a *Artist) Albums(ctx context.Context) ([]*Album, error) {
	if a.albums != nil {
		return a.albums, nil
	}
	endpoint := fmt.Sprintf("/artists/%s/albums?include_groups=album,single,compilation", a.id)
	items, err := fetchPages(ctx, a.client, endpoint, KindAlbum)
	if err != nil {
		return nil, err
	}
	albums := make([]*Album, 0, len(items))
	for _, item := range items {
		albums = append(albums, item.(*Album))
	}
	a.albums = albums
	return albums, nil
}

// Album is a catalog album.
type Album struct {
	*resource
	tracks []*Track
}

func (a *Album) Name(ctx context.Context) (string, error) {
	var name string
	err := a.require(ctx, "name", &name)
	return name, err
}

// AlbumType returns album, single or compilation.
func (a *Album) AlbumType(ctx context.Context) (string, error) {
	var t string
	err := a.require(ctx, "album_type", &t)
	return t, err
}

// Tracks returns the album's tracks. The list is fetched once per instance.
func (a *Album) Tracks(ctx context.Context) ([]*Track, error) {
	if a.tracks != nil {
		return a.tracks, nil
	}
	items, err := fetchPages(ctx, a.client, fmt.Sprintf("/albums/%s/tracks", a.id), KindTrack)
	if err != nil {
		return nil, err
	}
	tracks := make([]*Track, 0, len(items))
	for _, item := range items {
		tracks = append(tracks, item.(*Track))
	}
	a.tracks = tracks
	return tracks, nil
}

// Track is a catalog track.
type Track struct {
	*resource

	features        *AudioFeatures
	analysis        *AudioAnalysis
	analysisFetched bool
}

func (t *Track) Name(ctx context.Context) (string, error) {
	var name string
	err := t.require(ctx, "name", &name)
	return name, err
}

// ArtistIDs returns the ids of every credited artist in credit order.
func (t *Track) ArtistIDs(ctx context.Context) ([]string, error) {
	var artists []ref
	if err := t.require(ctx, "artists", &artists); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(artists))
	for _, a := range artists {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

// ExternalURL returns the public web link of the track, or "" when the catalog has none.
func (t *Track) ExternalURL(ctx context.Context) (string, error) {
	var urls map[string]string
	if _, err := t.decode(ctx, "external_urls", &urls); err != nil {
		return "", err
	}
	return urls["spotify"], nil
}

// AudioFeatures returns the track's audio features. Tracks the catalog never analysed get
// features without danceability.
func (t *Track) AudioFeatures(ctx context.Context) (*AudioFeatures, error) {
	if t.features != nil {
		return t.features, nil
	}
	var features *AudioFeatures
	err := t.client.get(ctx, "/audio-features/"+t.id, &features)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		features = nil
	case err != nil:
		return nil, err
	}
	if features == nil {
		features = &AudioFeatures{ID: t.id}
	}
	t.features = features
	return features, nil
}

// AudioAnalysis returns the detailed analysis, or nil when the catalog has none.
func (t *Track) AudioAnalysis(ctx context.Context) (*AudioAnalysis, error) {
	if t.analysisFetched {
		return t.analysis, nil
	}
	var analysis *AudioAnalysis
	err := t.client.get(ctx, "/audio-analysis/"+t.id, &analysis)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	t.analysis = analysis
	t.analysisFetched = true
	return analysis, nil
}

type page struct {
	Items []json.RawMessage `json:"items"`
	Next  *string           `json:"next"`
	Total int               `json:"total"`
}

const pageLimit = 50

// fetchPages walks an offset paged relation until the catalog stops returning a next link.
func fetchPages(ctx context.Context, client fetcher, endpoint string, kind Kind) ([]Resource, error) {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}

	var out []Resource
	offset := 0
	for {
		var p page
		url := fmt.Sprintf("%s%slimit=%d&offset=%d", endpoint, sep, pageLimit, offset)
		if err := client.get(ctx, url, &p); err != nil {
			return nil, err
		}
		for _, item := range p.Items {
			if isNull(item) {
				continue
			}
			r, err := construct(client, kind, item)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		if p.Next == nil || len(p.Items) == 0 {
			return out, nil
		}
		offset += len(p.Items)
	}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
