// Spotify Web API implementation of [Catalog]
//
// Response shapes follow https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/crate/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	maxBatchIDs = 50
)

// SpotifyOpts configures a [SpotifyService].
type SpotifyOpts struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	BaseURL      string
	Market       string
	// RateLimit is the sustained request rate per second. Zero disables pacing.
	RateLimit float64
	Timeout   time.Duration
	// HTTPClient replaces the client credentials transport, used by tests.
	HTTPClient *http.Client
}

// SpotifyService implements [Catalog] for the Spotify Web API.
// Uses [clientcredentials] for app-only authentication; the token is fetched and refreshed by the transport.
type SpotifyService struct {
	baseURL    string
	market     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSpotifyService creates a catalog client from opts.
func NewSpotifyService(opts SpotifyOpts) (*SpotifyService, error) {
	client := opts.HTTPClient
	if client == nil {
		if opts.ClientID == "" || opts.ClientSecret == "" {
			return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
		}
		tokenURL := opts.TokenURL
		if tokenURL == "" {
			tokenURL = spotifyTokenURL
		}
		config := &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     tokenURL,
		}
		client = config.Client(context.Background())
		client.Timeout = opts.Timeout
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &SpotifyService{
		baseURL:    baseURL,
		market:     opts.Market,
		httpClient: client,
		limiter:    rate.NewLimiter(limit, 1),
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// get performs a paced, authenticated GET and classifies failures.
func (s *SpotifyService) get(ctx context.Context, endpoint string, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var tokenErr *oauth2.RetrieveError
		if errors.As(err, &tokenErr) {
			return fmt.Errorf("%w: token request failed: %v", shared.ErrAPIRequest, tokenErr)
		}
		return &ConnectionError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	switch status := resp.StatusCode; {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrNotFound, endpoint)
	case status == http.StatusTooManyRequests || status >= 500:
		return &ConnectionError{Endpoint: endpoint, Status: status}
	case status < 200 || status >= 300:
		return fmt.Errorf("%w: %s: status %d", shared.ErrAPIRequest, endpoint, status)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (s *SpotifyService) withMarket(endpoint string) string {
	if s.market == "" {
		return endpoint
	}
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + "market=" + url.QueryEscape(s.market)
}

// Find returns the resource of kind with id, holding the fields of the full representation.
// The resource is still considered partial: the first read of a null field refetches it.
func (s *SpotifyService) Find(ctx context.Context, kind Kind, id string) (Resource, error) {
	if _, ok := kinds[kind]; !ok {
		return nil, fmt.Errorf("%w: unknown resource type %q", shared.ErrInvalidArgument, kind)
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: %s id", shared.ErrMissingArgument, kind)
	}

	var raw json.RawMessage
	if err := s.get(ctx, s.withMarket(kind.path(url.PathEscape(id))), &raw); err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, fmt.Errorf("%w: %s %s", shared.ErrNotFound, kind, id)
	}
	return construct(s, kind, raw)
}

// FindMany fetches up to 50 resources in one request. Ids the catalog does not know are dropped.
func (s *SpotifyService) FindMany(ctx context.Context, kind Kind, ids []string) ([]Resource, error) {
	if _, ok := kinds[kind]; !ok {
		return nil, fmt.Errorf("%w: unknown resource type %q", shared.ErrInvalidArgument, kind)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no %s ids provided", shared.ErrInvalidInput, kind)
	}
	if len(ids) > maxBatchIDs {
		return nil, fmt.Errorf("%w: maximum %d %s ids allowed", shared.ErrInvalidInput, maxBatchIDs, kind)
	}

	endpoint := s.withMarket(fmt.Sprintf("/%s?ids=%s", kind.plural(), url.QueryEscape(strings.Join(ids, ","))))

	var response map[string][]json.RawMessage
	if err := s.get(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	out := make([]Resource, 0, len(ids))
	for _, raw := range response[kind.plural()] {
		if isNull(raw) {
			continue
		}
		r, err := construct(s, kind, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Search runs a catalog search. Results are partial resources grouped by kind in the order requested.
func (s *SpotifyService) Search(ctx context.Context, query string, types []Kind, limit, offset int) ([]Resource, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("%w: no resource types", shared.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > maxBatchIDs {
		limit = maxBatchIDs
	}
	if offset < 0 {
		offset = 0
	}

	names := make([]string, 0, len(types))
	for _, k := range types {
		if _, ok := kinds[k]; !ok {
			return nil, fmt.Errorf("%w: unknown resource type %q", shared.ErrInvalidArgument, k)
		}
		names = append(names, string(k))
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", strings.Join(names, ","))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	if s.market != "" {
		params.Set("market", s.market)
	}

	var response map[string]page
	if err := s.get(ctx, "/search?"+params.Encode(), &response); err != nil {
		return nil, err
	}

	var out []Resource
	for _, k := range types {
		for _, raw := range response[k.plural()].Items {
			if isNull(raw) {
				continue
			}
			r, err := construct(s, k, raw)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
	}
	return out, nil
}

// Artist retrieves an artist by id.
func (s *SpotifyService) Artist(ctx context.Context, id string) (*Artist, error) {
	r, err := s.Find(ctx, KindArtist, id)
	if err != nil {
		return nil, err
	}
	return r.(*Artist), nil
}

// Album retrieves an album by id.
func (s *SpotifyService) Album(ctx context.Context, id string) (*Album, error) {
	r, err := s.Find(ctx, KindAlbum, id)
	if err != nil {
		return nil, err
	}
	return r.(*Album), nil
}

// Track retrieves a track by id.
func (s *SpotifyService) Track(ctx context.Context, id string) (*Track, error) {
	r, err := s.Find(ctx, KindTrack, id)
	if err != nil {
		return nil, err
	}
	return r.(*Track), nil
}
