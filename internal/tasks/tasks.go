package tasks

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crate/internal/genres"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
)

// ArtistSource looks artists up in the remote catalog.
type ArtistSource interface {
	Artist(ctx context.Context, id string) (*services.Artist, error)
}

// Store is the persistence gateway the importer writes through.
//
// Upserts set the ID of the model they are given and report whether a row was created.
type Store interface {
	DuplicateStore
	UpsertArtist(artist *models.Artist) (bool, error)
	AlbumExists(remoteID string) (bool, error)
	UpsertAlbum(album *models.Album, artist *models.Artist) (bool, error)
	UpsertTrack(track *models.Track, album *models.Album, artist *models.Artist) (bool, error)
}

// State is a step of an artist import run.
type State string

const (
	StateFetchingArtist   State = "fetching_artist"
	StatePersistingArtist State = "persisting_artist"
	StateResolvingGenre   State = "resolving_genre"
	StateWalkingAlbums    State = "walking_albums"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// ImportOpts are the per-invocation flags of an artist import.
type ImportOpts struct {
	Popular   bool
	ProcessID string // tags every written artist and track when set
}

// ImportResult reports one artist import. Counters are summed over all attempts.
type ImportResult struct {
	RemoteID       string
	Name           string
	Genre          string
	State          State
	FailedIn       State // state the last failing attempt stopped in
	Attempts       int
	AlbumsImported int
	AlbumsSkipped  int
	TracksImported int
	TracksSkipped  int
	TracksFailed   int
}

// ImporterOpts configures an [Importer]. Zero values use the defaults.
type ImporterOpts struct {
	Resolver *genres.Resolver
	Deriver  AnalysisDeriver
	Retry    *RetryPolicy
	Logger   *log.Logger
}

// Importer imports artists with their albums and tracks. Safe for concurrent use; every call to
// [Importer.Import] works on its own remote resources and run state.
type Importer struct {
	catalog    ArtistSource
	store      Store
	resolver   *genres.Resolver
	normalizer *Normalizer
	detector   *DuplicateDetector
	retry      RetryPolicy
	logger     *log.Logger
}

// NewImporter creates an Importer reading from catalog and writing to store.
func NewImporter(catalog ArtistSource, store Store, opts ImporterOpts) *Importer {
	retry := DefaultRetryPolicy()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = genres.NewResolver(nil)
	}
	return &Importer{
		catalog:    catalog,
		store:      store,
		resolver:   resolver,
		normalizer: NewNormalizer(opts.Deriver),
		detector:   NewDuplicateDetector(store),
		retry:      retry,
		logger:     logger,
	}
}

// Import runs the artist import for remoteID, restarting the whole run on hydration and connection
// failures as allowed by the retry policy.
//
// The returned result is never nil. On failure its State is [StateFailed] and the error is either the
// first non-retryable error or an [ExhaustedRetriesError].
func (im *Importer) Import(ctx context.Context, progress chan<- ProgressUpdate, remoteID string, opts ImportOpts) (*ImportResult, error) {
	result := &ImportResult{RemoteID: remoteID, State: StateFetchingArtist}
	logger := shared.WithLogger(im.logger, "artist", remoteID)

	if strings.TrimSpace(remoteID) == "" {
		err := fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
		result.State, result.FailedIn = StateFailed, StateFetchingArtist
		return result, err
	}

	retries := 0
	for {
		result.Attempts++
		run := &artistImport{
			im:       im,
			remoteID: remoteID,
			opts:     opts,
			result:   result,
			logger:   logger,
			progress: progress,
		}

		err := run.call(ctx)
		if err == nil {
			result.State = StateDone
			logger.Info("artist imported",
				"genre", result.Genre,
				"attempts", result.Attempts,
				"albums", result.AlbumsImported,
				"tracks", result.TracksImported,
				"skipped", result.TracksSkipped,
				"failed", result.TracksFailed,
			)
			sendProgress(progress, doneUpdate(result))
			return result, nil
		}

		result.FailedIn = result.State
		if ctx.Err() != nil {
			return im.fail(result, progress, logger, err)
		}

		retries++
		delay, retryable := im.retry.Delay(err, retries)
		if !retryable {
			return im.fail(result, progress, logger, fmt.Errorf("import artist %s: %w", remoteID, err))
		}
		if retries > im.retry.MaxRetries {
			return im.fail(result, progress, logger, &ExhaustedRetriesError{RemoteID: remoteID, Attempts: result.Attempts, Err: err})
		}

		logger.Warn("retrying artist import", "attempt", result.Attempts, "delay", delay, "err", err)
		sendProgress(progress, retryUpdate(remoteID, result.Attempts, delay, err))

		if err := im.retry.sleep(ctx, delay); err != nil {
			return im.fail(result, progress, logger, err)
		}
	}
}

func (im *Importer) fail(result *ImportResult, progress chan<- ProgressUpdate, logger *log.Logger, err error) (*ImportResult, error) {
	result.State = StateFailed
	logger.Error("artist import failed", "attempts", result.Attempts, "state", result.FailedIn, "err", err)
	sendProgress(progress, failedUpdate(result, err))
	return result, err
}

// artistImport is the state of a single attempt. A new one is created for every attempt.
type artistImport struct {
	im       *Importer
	remoteID string
	opts     ImportOpts
	genre    string
	result   *ImportResult
	logger   *log.Logger
	progress chan<- ProgressUpdate
}

func (r *artistImport) call(ctx context.Context) error {
	r.result.State = StateFetchingArtist
	sendProgress(r.progress, fetchArtistUpdate(r.remoteID, r.result.Attempts))

	remote, err := r.im.catalog.Artist(ctx, r.remoteID)
	if err != nil {
		return err
	}

	r.result.State = StatePersistingArtist
	artist, err := r.serializeArtist(ctx, remote)
	if err != nil {
		return err
	}
	sendProgress(r.progress, persistArtistUpdate(r.remoteID, artist.Name))
	if _, err := r.im.store.UpsertArtist(artist); err != nil {
		return fmt.Errorf("failed to save artist: %w", err)
	}
	r.result.Name = artist.Name

	r.result.State = StateResolvingGenre
	r.genre = r.im.resolver.Resolve(artist.Genres)
	r.result.Genre = r.genre
	sendProgress(r.progress, resolveGenreUpdate(r.remoteID, r.genre))

	r.result.State = StateWalkingAlbums
	albums, err := remote.Albums(ctx)
	if err != nil {
		return err
	}
	for i, album := range albums {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.importAlbum(ctx, artist, album, i+1, len(albums)); err != nil {
			return err
		}
	}
	return nil
}

func (r *artistImport) serializeArtist(ctx context.Context, remote *services.Artist) (*models.Artist, error) {
	name, err := remote.Name(ctx)
	if err != nil {
		return nil, err
	}
	popularity, err := remote.Popularity(ctx)
	if err != nil {
		return nil, err
	}
	followers, err := remote.Followers(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := remote.Genres(ctx)
	if err != nil {
		return nil, err
	}
	return &models.Artist{
		RemoteID:        remote.ID(),
		Name:            name,
		Popularity:      popularity,
		Followers:       followers,
		Genres:          tags,
		Popular:         r.opts.Popular,
		ImportProcessID: r.opts.ProcessID,
	}, nil
}

func (r *artistImport) importAlbum(ctx context.Context, artist *models.Artist, remote *services.Album, step, total int) error {
	albumType, err := remote.AlbumType(ctx)
	if err != nil {
		return err
	}
	if albumType == models.AlbumTypeCompilation {
		r.result.AlbumsSkipped++
		r.logger.Debug("skipping compilation", "album", remote.ID())
		return nil
	}

	exists, err := r.im.store.AlbumExists(remote.ID())
	if err != nil {
		return fmt.Errorf("failed to check album %s: %w", remote.ID(), err)
	}
	if exists {
		r.result.AlbumsSkipped++
		r.logger.Debug("skipping stored album", "album", remote.ID())
		return nil
	}

	name, err := remote.Name(ctx)
	if err != nil {
		return err
	}
	sendProgress(r.progress, walkAlbumUpdate(r.remoteID, step, total, name))

	album := &models.Album{RemoteID: remote.ID(), Name: name, AlbumType: albumType}
	if _, err := r.im.store.UpsertAlbum(album, artist); err != nil {
		return fmt.Errorf("failed to save album %s: %w", remote.ID(), err)
	}
	r.result.AlbumsImported++

	tracks, err := remote.Tracks(ctx)
	if err != nil {
		return err
	}
	for i, track := range tracks {
		if err := r.importTrack(ctx, artist, album, track, i+1, len(tracks)); err != nil {
			return err
		}
	}
	return nil
}

// trackOutcome is what happened to one remote track.
type trackOutcome string

const (
	trackCreated    trackOutcome = "created"
	trackUpdated    trackOutcome = "updated"
	trackDuplicate  trackOutcome = "duplicate"
	trackForeign    trackOutcome = "foreign"
	trackNoAnalysis trackOutcome = "no analysis"
	trackFailed     trackOutcome = "failed"
)

// importTrack saves one track. Failures are logged and swallowed; only cancellation is returned.
func (r *artistImport) importTrack(ctx context.Context, artist *models.Artist, album *models.Album, remote *services.Track, step, total int) error {
	outcome, name, err := r.saveTrack(ctx, artist, album, remote)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.result.TracksFailed++
		r.logger.Warn("failed to import track", "err", &TrackError{RemoteID: remote.ID(), Err: err})
		outcome = trackFailed
	}

	switch outcome {
	case trackCreated, trackUpdated:
		r.result.TracksImported++
	case trackDuplicate, trackForeign, trackNoAnalysis:
		r.result.TracksSkipped++
		r.logger.Debug("skipping track", "track", remote.ID(), "reason", outcome)
	}
	if name == "" {
		name = remote.ID()
	}
	sendProgress(r.progress, importTrackUpdate(r.remoteID, step, total, name, outcome))
	return nil
}

func (r *artistImport) saveTrack(ctx context.Context, artist *models.Artist, album *models.Album, remote *services.Track) (trackOutcome, string, error) {
	normalized, err := r.im.normalizer.Normalize(ctx, remote, r.genre, r.opts.Popular, r.opts.ProcessID)
	if err != nil {
		return "", "", err
	}
	name := normalized.Track.Name

	duplicate, err := r.im.detector.IsDuplicate(artist, normalized.Track)
	if err != nil {
		return "", name, err
	}
	if duplicate {
		return trackDuplicate, name, nil
	}

	credited, err := remote.ArtistIDs(ctx)
	if err != nil {
		return "", name, err
	}
	if !slices.Contains(credited, artist.RemoteID) {
		return trackForeign, name, nil
	}

	if !normalized.HasAnalysis {
		return trackNoAnalysis, name, nil
	}

	if err := r.im.normalizer.Analyze(ctx, remote, normalized); err != nil {
		return "", name, err
	}

	created, err := r.im.store.UpsertTrack(normalized.Track, album, artist)
	if err != nil {
		return "", name, err
	}
	if created {
		return trackCreated, name, nil
	}
	return trackUpdated, name, nil
}
