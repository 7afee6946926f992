package services

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/crate/internal/shared"
)

// Kind tags a remote resource type.
type Kind string

const (
	KindArtist Kind = "artist"
	KindAlbum  Kind = "album"
	KindTrack  Kind = "track"
)

// RefreshSuffix marks attribute names that must never trigger hydration.
const RefreshSuffix = "!"

// Catalog is the read side of the remote music catalog.
type Catalog interface {
	// Find returns the resource of the given kind with id. The result starts partially hydrated.
	Find(ctx context.Context, kind Kind, id string) (Resource, error)

	// FindMany returns the resources found among ids. Missing ids are dropped.
	FindMany(ctx context.Context, kind Kind, ids []string) ([]Resource, error)

	// Search returns partial resources matching query, grouped in the order of kinds.
	Search(ctx context.Context, query string, kinds []Kind, limit, offset int) ([]Resource, error)
}

// Resource is a lazily hydrated catalog entity.
type Resource interface {
	Kind() Kind
	ID() string
	Hydrated() bool
	Attr(ctx context.Context, name string) (json.RawMessage, error)
	Refresh(ctx context.Context) error
}

type kindSpec struct {
	attributes []string
	construct  func(*resource) Resource
}

var kinds = map[Kind]kindSpec{
	KindArtist: {
		attributes: []string{
			"id", "type", "uri", "href", "name", "popularity", "followers", "genres", "images", "external_urls",
		},
		construct: func(r *resource) Resource { return &Artist{resource: r} },
	},
	KindAlbum: {
		attributes: []string{
			"id", "type", "uri", "href", "name", "album_type", "artists", "release_date",
			"total_tracks", "tracks", "images", "external_urls",
		},
		construct: func(r *resource) Resource { return &Album{resource: r} },
	},
	KindTrack: {
		attributes: []string{
			"id", "type", "uri", "href", "name", "artists", "album", "duration_ms", "popularity",
			"explicit", "track_number", "disc_number", "external_ids", "external_urls",
		},
		construct: func(r *resource) Resource { return &Track{resource: r} },
	},
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := kinds[k]; !ok {
		return "", fmt.Errorf("%w: unknown resource type %q", shared.ErrInvalidArgument, s)
	}
	return k, nil
}

// ParseKinds parses a comma separated list of kinds, e.g. "artist,track".
func ParseKinds(s string) ([]Kind, error) {
	var out []Kind
	for part := range strings.SplitSeq(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		k, err := ParseKind(part)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no resource types", shared.ErrInvalidArgument)
	}
	return out, nil
}

func (k Kind) String() string { return string(k) }

func (k Kind) plural() string { return string(k) + "s" }

func (k Kind) path(id string) string { return "/" + k.plural() + "/" + id }

func (k Kind) knows(name string) bool {
	spec, ok := kinds[k]
	return ok && slices.Contains(spec.attributes, name)
}

func construct(client fetcher, kind Kind, raw json.RawMessage) (Resource, error) {
	spec, ok := kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown resource type %q", shared.ErrInvalidArgument, kind)
	}
	r, err := newResource(client, kind, raw)
	if err != nil {
		return nil, err
	}
	return spec.construct(r), nil
}
