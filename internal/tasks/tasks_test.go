package tasks

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/crate/internal/genres"
	"github.com/desertthunder/crate/internal/repositories"
	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
	tu "github.com/desertthunder/crate/internal/testing"
)

// sleepRecorder replaces the retry sleep and records the requested delays.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return s.err
}

func (s *sleepRecorder) total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum time.Duration
	for _, d := range s.delays {
		sum += d
	}
	return sum
}

type importFixture struct {
	srv      *tu.CatalogServer
	store    *repositories.CatalogStore
	importer *Importer
	sleeps   *sleepRecorder
}

func newImportFixture(t *testing.T) *importFixture {
	t.Helper()

	svc, srv := newTestCatalog(t)

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	store := repositories.NewCatalogStore(db)
	sleeps := &sleepRecorder{}
	policy := DefaultRetryPolicy()
	policy.Sleep = sleeps.sleep

	importer := NewImporter(svc, store, ImporterOpts{Retry: &policy, Logger: shared.NewLogger(io.Discard)})
	return &importFixture{srv: srv, store: store, importer: importer, sleeps: sleeps}
}

// houseCatalog serves a deep/tech house artist with one compilation and one album holding T1.
func houseCatalog(srv *tu.CatalogServer) {
	srv.JSON("/artists/A1", tu.ArtistJSON("A1", "Larry Heard", "deep house", "tech house"))
	srv.JSON("/artists/A1/albums", tu.Page(
		tu.AlbumJSON("C1", "House Classics", "compilation"),
		tu.AlbumJSON("AL1", "Sceneries Not Songs", "album"),
	))
	albumTracks(srv, "AL1", tu.TrackJSON("T1", "Can You Feel It", "A1"))
	analysed(srv, "T1", 0.71)
}

func albumTracks(srv *tu.CatalogServer, albumID string, tracks ...map[string]any) {
	srv.JSON("/albums/"+albumID+"/tracks", tu.Page(tracks...))
}

func analysed(srv *tu.CatalogServer, trackID string, danceability float64) {
	srv.JSON("/audio-features/"+trackID, tu.FeaturesJSON(trackID, danceability))
	srv.JSON("/audio-analysis/"+trackID, tu.AnalysisJSON())
}

func TestImporter_Import(t *testing.T) {
	ctx := context.Background()

	t.Run("Imports Artist Albums And Tracks", func(t *testing.T) {
		f := newImportFixture(t)
		houseCatalog(f.srv)

		progress := make(chan ProgressUpdate, 100)
		result, err := f.importer.Import(ctx, progress, "A1", ImportOpts{})
		close(progress)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.State != StateDone || result.Genre != "House" || result.Attempts != 1 {
			t.Errorf("unexpected result %+v", result)
		}
		if result.AlbumsImported != 1 || result.AlbumsSkipped != 1 {
			t.Errorf("expected 1 album imported and 1 skipped, got %d/%d", result.AlbumsImported, result.AlbumsSkipped)
		}
		if result.TracksImported != 1 || result.TracksSkipped != 0 || result.TracksFailed != 0 {
			t.Errorf("unexpected track counters %+v", result)
		}
		if f.srv.Hits("/albums/C1/tracks") != 0 {
			t.Error("compilation tracks must not be fetched")
		}

		export, err := f.store.Export("A1")
		if err != nil {
			t.Fatalf("failed to export: %v", err)
		}
		if export.Artist.Name != "Larry Heard" || export.Artist.Followers != 120345 {
			t.Errorf("unexpected artist %+v", export.Artist)
		}
		if len(export.Tracks) != 1 {
			t.Fatalf("expected 1 track, got %d", len(export.Tracks))
		}
		track := export.Tracks[0]
		if track.AlbumName != "Sceneries Not Songs" || track.Track.Genre != "House" {
			t.Errorf("unexpected track %+v in %s", track.Track, track.AlbumName)
		}
		if track.Track.Features.Danceability != 0.71 || track.Track.Analysis.FadeOutMS != 10500 {
			t.Errorf("unexpected features %+v analysis %+v", track.Track.Features, track.Track.Analysis)
		}

		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		if len(phases) == 0 || phases[0] != FetchArtist || phases[len(phases)-1] != Done {
			t.Errorf("unexpected progress phases %v", phases)
		}
	})

	t.Run("Second Run Is Idempotent", func(t *testing.T) {
		f := newImportFixture(t)
		houseCatalog(f.srv)

		if _, err := f.importer.Import(ctx, nil, "A1", ImportOpts{}); err != nil {
			t.Fatalf("first run failed: %v", err)
		}
		result, err := f.importer.Import(ctx, nil, "A1", ImportOpts{})
		if err != nil {
			t.Fatalf("second run failed: %v", err)
		}
		if result.AlbumsImported != 0 || result.AlbumsSkipped != 2 || result.TracksImported != 0 {
			t.Errorf("expected stored album to be skipped, got %+v", result)
		}

		export, err := f.store.Export("A1")
		if err != nil {
			t.Fatalf("failed to export: %v", err)
		}
		if len(export.Tracks) != 1 {
			t.Errorf("expected 1 track after two runs, got %d", len(export.Tracks))
		}
	})

	t.Run("Tags Rows With Import Process", func(t *testing.T) {
		f := newImportFixture(t)
		houseCatalog(f.srv)

		if _, err := f.importer.Import(ctx, nil, "A1", ImportOpts{Popular: true, ProcessID: "proc-1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		n, err := f.store.Tracks.CountByImportProcess("proc-1")
		if err != nil || n != 1 {
			t.Errorf("expected 1 tagged track, got %d (%v)", n, err)
		}
		artist, err := f.store.Artists.GetByRemoteID("A1")
		if err != nil {
			t.Fatalf("failed to load artist: %v", err)
		}
		if !artist.Popular || artist.ImportProcessID != "proc-1" {
			t.Errorf("unexpected artist tags popular=%v process=%s", artist.Popular, artist.ImportProcessID)
		}
	})

	t.Run("Skips Tracks", func(t *testing.T) {
		f := newImportFixture(t)
		f.srv.JSON("/artists/A1", tu.ArtistJSON("A1", "Larry Heard", "deep house"))
		f.srv.JSON("/artists/A1/albums", tu.Page(tu.AlbumJSON("AL1", "Sceneries Not Songs", "album")))
		albumTracks(f.srv, "AL1",
			tu.TrackJSON("T1", "Can You Feel It", "A1"),
			tu.TrackJSON("T2", "can you feel it", "A1"),
			tu.TrackJSON("T3", "Can You Feel It (Remastered)", "A1"),
			tu.TrackJSON("T4", "Guest Spot", "B9"),
			tu.TrackJSON("T5", "Unanalysed", "A1"),
			tu.TrackJSON("T6", "Mystery of Love", "B9", "A1"),
		)
		analysed(f.srv, "T1", 0.71)
		analysed(f.srv, "T2", 0.30)
		analysed(f.srv, "T3", 0.71)
		analysed(f.srv, "T4", 0.50)
		noDance := tu.FeaturesJSON("T5", 0)
		delete(noDance, "danceability")
		f.srv.JSON("/audio-features/T5", noDance)
		analysed(f.srv, "T6", 0.55)

		result, err := f.importer.Import(ctx, nil, "A1", ImportOpts{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TracksImported != 2 || result.TracksSkipped != 4 {
			t.Errorf("expected 2 imported and 4 skipped, got %d/%d", result.TracksImported, result.TracksSkipped)
		}

		for _, id := range []string{"T2", "T3", "T4", "T5"} {
			if exists, _ := f.store.Tracks.ExistsByRemoteID(id); exists {
				t.Errorf("expected %s to be skipped", id)
			}
			if hits := f.srv.Hits("/audio-analysis/" + id); hits != 0 {
				t.Errorf("expected no analysis request for skipped %s, got %d", id, hits)
			}
		}
		for _, id := range []string{"T1", "T6"} {
			if exists, _ := f.store.Tracks.ExistsByRemoteID(id); !exists {
				t.Errorf("expected %s to be stored", id)
			}
		}
	})

	t.Run("Skips Non-ASCII Name Duplicates", func(t *testing.T) {
		f := newImportFixture(t)
		f.srv.JSON("/artists/A1", tu.ArtistJSON("A1", "Sigur Rós", "post-rock"))
		f.srv.JSON("/artists/A1/albums", tu.Page(tu.AlbumJSON("AL1", "Valtari", "album")))
		albumTracks(f.srv, "AL1",
			tu.TrackJSON("T1", "Árabátur", "A1"),
			tu.TrackJSON("T2", "ÁRABÁTUR", "A1"),
		)
		analysed(f.srv, "T1", 0.21)
		analysed(f.srv, "T2", 0.34)

		result, err := f.importer.Import(ctx, nil, "A1", ImportOpts{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TracksImported != 1 || result.TracksSkipped != 1 {
			t.Errorf("expected 1 imported and 1 skipped, got %d/%d", result.TracksImported, result.TracksSkipped)
		}
		if exists, _ := f.store.Tracks.ExistsByRemoteID("T2"); exists {
			t.Error("expected T2 to be skipped as a duplicate of T1")
		}
	})

	t.Run("Track Failure Does Not Abort Walk", func(t *testing.T) {
		f := newImportFixture(t)
		f.srv.JSON("/artists/A1", tu.ArtistJSON("A1", "Larry Heard", "deep house"))
		f.srv.JSON("/artists/A1/albums", tu.Page(tu.AlbumJSON("AL1", "Sceneries Not Songs", "album")))
		albumTracks(f.srv, "AL1",
			tu.TrackJSON("T1", "Can You Feel It", "A1"),
			tu.TrackJSON("T2", "Mystery of Love", "A1"),
		)
		f.srv.JSON("/audio-features/T1", tu.FeaturesJSON("T1", 0.71))
		f.srv.Status("/audio-analysis/T1", http.StatusBadRequest)
		analysed(f.srv, "T2", 0.55)

		result, err := f.importer.Import(ctx, nil, "A1", ImportOpts{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.State != StateDone || result.Attempts != 1 {
			t.Errorf("expected a single successful attempt, got %+v", result)
		}
		if result.TracksFailed != 1 || result.TracksImported != 1 {
			t.Errorf("expected 1 failed and 1 imported track, got %d/%d", result.TracksFailed, result.TracksImported)
		}
	})

	t.Run("Unknown Genre", func(t *testing.T) {
		f := newImportFixture(t)
		f.srv.JSON("/artists/A1", tu.ArtistJSON("A1", "Nobody"))
		f.srv.JSON("/artists/A1/albums", tu.Page())

		result, err := f.importer.Import(ctx, nil, "A1", ImportOpts{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Genre != genres.Unknown {
			t.Errorf("expected unknown genre, got %s", result.Genre)
		}
	})

	t.Run("Retries Hydration Failures", func(t *testing.T) {
		f := newImportFixture(t)
		houseCatalog(f.srv)
		f.srv.Handle("/artists/A1", func(hit int, _ *http.Request) (int, any) {
			artist := tu.ArtistJSON("A1", "Larry Heard", "deep house", "tech house")
			if hit <= 4 {
				delete(artist, "followers")
			}
			return http.StatusOK, artist
		})

		result, err := f.importer.Import(ctx, nil, "A1", ImportOpts{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Attempts != 3 {
			t.Errorf("expected 3 attempts, got %d", result.Attempts)
		}
		if got := f.sleeps.total(); got != 6*time.Second {
			t.Errorf("expected 6s of backoff, got %v (%v)", got, f.sleeps.delays)
		}
		if result.TracksImported != 1 {
			t.Errorf("expected track imported on the last attempt, got %d", result.TracksImported)
		}
	})

	t.Run("Exhausts Retries", func(t *testing.T) {
		f := newImportFixture(t)
		artist := tu.ArtistJSON("A1", "Larry Heard", "deep house")
		delete(artist, "followers")
		f.srv.JSON("/artists/A1", artist)

		progress := make(chan ProgressUpdate, 100)
		result, err := f.importer.Import(ctx, progress, "A1", ImportOpts{})
		close(progress)

		if !errors.Is(err, shared.ErrExhaustedRetries) || !errors.Is(err, shared.ErrHydration) {
			t.Fatalf("expected exhausted hydration retries, got %v", err)
		}
		var exhausted *ExhaustedRetriesError
		if !errors.As(err, &exhausted) || exhausted.Attempts != 4 {
			t.Errorf("expected 4 attempts in error, got %v", err)
		}
		if result.State != StateFailed || result.FailedIn != StatePersistingArtist {
			t.Errorf("unexpected final state %s (failed in %s)", result.State, result.FailedIn)
		}

		want := []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second}
		if len(f.sleeps.delays) != len(want) {
			t.Fatalf("expected delays %v, got %v", want, f.sleeps.delays)
		}
		for i := range want {
			if f.sleeps.delays[i] != want[i] {
				t.Errorf("delay %d: expected %v, got %v", i, want[i], f.sleeps.delays[i])
			}
		}
		if hits := f.srv.Hits("/artists/A1"); hits != 8 {
			t.Errorf("expected 2 requests per attempt, got %d", hits)
		}

		retries := 0
		var last ProgressUpdate
		for u := range progress {
			if u.Phase == Retry {
				retries++
			}
			last = u
		}
		if retries != 3 || last.Phase != Failed {
			t.Errorf("expected 3 retry updates and a final failure, got %d and %s", retries, last.Phase)
		}
	})

	t.Run("Retries Connection Failures", func(t *testing.T) {
		f := newImportFixture(t)
		houseCatalog(f.srv)
		f.srv.Handle("/artists/A1", func(hit int, _ *http.Request) (int, any) {
			if hit == 1 {
				return http.StatusServiceUnavailable, ""
			}
			return http.StatusOK, tu.ArtistJSON("A1", "Larry Heard", "deep house")
		})

		result, err := f.importer.Import(ctx, nil, "A1", ImportOpts{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Attempts != 2 {
			t.Errorf("expected 2 attempts, got %d", result.Attempts)
		}
		if len(f.sleeps.delays) != 1 || f.sleeps.delays[0] != 10*time.Second {
			t.Errorf("expected a single 10s backoff, got %v", f.sleeps.delays)
		}
	})

	t.Run("Does Not Retry Other Errors", func(t *testing.T) {
		f := newImportFixture(t)

		result, err := f.importer.Import(ctx, nil, "missing", ImportOpts{})
		if !errors.Is(err, shared.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if errors.Is(err, shared.ErrExhaustedRetries) {
			t.Error("non-retryable errors must not be reported as exhausted retries")
		}
		if result.Attempts != 1 || len(f.sleeps.delays) != 0 {
			t.Errorf("expected a single attempt without backoff, got %d attempts and %v", result.Attempts, f.sleeps.delays)
		}
		if result.State != StateFailed || result.FailedIn != StateFetchingArtist {
			t.Errorf("unexpected final state %s (failed in %s)", result.State, result.FailedIn)
		}
	})

	t.Run("Stops When Backoff Is Cancelled", func(t *testing.T) {
		f := newImportFixture(t)
		f.sleeps.err = context.Canceled
		f.srv.Status("/artists/A1", http.StatusBadGateway)

		result, err := f.importer.Import(ctx, nil, "A1", ImportOpts{})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result.Attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", result.Attempts)
		}
	})

	t.Run("Missing Artist ID", func(t *testing.T) {
		f := newImportFixture(t)
		result, err := f.importer.Import(ctx, nil, "  ", ImportOpts{})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if result.State != StateFailed || f.srv.TotalHits() != 0 {
			t.Errorf("expected failure without requests, got %s and %d hits", result.State, f.srv.TotalHits())
		}
	})
}

func TestImporter_ImportMany(t *testing.T) {
	ctx := context.Background()

	t.Run("Imports Each Artist Once In Order", func(t *testing.T) {
		f := newImportFixture(t)
		houseCatalog(f.srv)
		f.srv.JSON("/artists/A2", tu.ArtistJSON("A2", "Frankie Knuckles", "chicago house"))
		f.srv.JSON("/artists/A2/albums", tu.Page(tu.AlbumJSON("AL2", "Beyond The Mix", "album")))
		albumTracks(f.srv, "AL2", tu.TrackJSON("T20", "The Whistle Song", "A2"))
		analysed(f.srv, "T20", 0.66)

		result, err := f.importer.ImportMany(ctx, nil, []string{"A1", "A2", "missing", "A1", " "}, BulkImportOpts{Workers: 2, RateLimit: 1000})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Total != 3 || result.Succeeded != 2 || result.Failed != 1 {
			t.Errorf("unexpected totals %+v", result)
		}
		if result.TracksImported != 2 {
			t.Errorf("expected 2 tracks imported, got %d", result.TracksImported)
		}

		wantOrder := []string{"A1", "A2", "missing"}
		for i, id := range wantOrder {
			if result.Results[i].RemoteID != id {
				t.Errorf("result %d: expected %s, got %s", i, id, result.Results[i].RemoteID)
			}
		}
		if !errors.Is(result.Results[2].Error, shared.ErrNotFound) {
			t.Errorf("expected not found for missing artist, got %v", result.Results[2].Error)
		}
		if f.srv.Hits("/artists/A1") != 1 {
			t.Errorf("expected duplicate ids to be imported once, got %d requests", f.srv.Hits("/artists/A1"))
		}
	})

	t.Run("No Artist IDs", func(t *testing.T) {
		f := newImportFixture(t)
		if _, err := f.importer.ImportMany(ctx, nil, []string{"", " "}, BulkImportOpts{}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		f := newImportFixture(t)
		houseCatalog(f.srv)

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		result, err := f.importer.ImportMany(cctx, nil, []string{"A1", "A2"}, BulkImportOpts{RateLimit: 1000})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result.Failed != 2 || result.Succeeded != 0 {
			t.Errorf("expected every artist to fail, got %+v", result)
		}
		if f.srv.TotalHits() != 0 {
			t.Errorf("expected no requests, got %d", f.srv.TotalHits())
		}
	})
}

var _ ArtistSource = (*services.SpotifyService)(nil)
var _ Store = (*repositories.CatalogStore)(nil)
