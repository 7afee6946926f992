package repositories

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/desertthunder/crate/internal/models"
)

var errDriver = errors.New("driver failure")

func setupMockDB(t *testing.T) (*CatalogStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewCatalogStore(db), mock
}

func expectLookup(mock sqlmock.Sqlmock, table string) *sqlmock.ExpectedQuery {
	return mock.ExpectQuery(regexp.QuoteMeta("SELECT id, sequence FROM " + table + " WHERE remote_id = ?"))
}

func assertExpectations(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpsertErrors(t *testing.T) {
	t.Run("Begin Fails", func(t *testing.T) {
		store, mock := setupMockDB(t)
		mock.ExpectBegin().WillReturnError(errDriver)

		_, err := store.UpsertArtist(newArtist("A1", "x"))
		if !errors.Is(err, errDriver) || !strings.Contains(err.Error(), "failed to begin transaction") {
			t.Errorf("expected begin error, got %v", err)
		}
		assertExpectations(t, mock)
	})

	t.Run("Lookup Fails", func(t *testing.T) {
		store, mock := setupMockDB(t)
		mock.ExpectBegin()
		expectLookup(mock, "artists").WithArgs("A1").WillReturnError(errDriver)
		mock.ExpectRollback()

		_, err := store.UpsertArtist(newArtist("A1", "x"))
		if !errors.Is(err, errDriver) {
			t.Errorf("expected driver error, got %v", err)
		}
		assertExpectations(t, mock)
	})

	t.Run("Sequence Fails", func(t *testing.T) {
		store, mock := setupMockDB(t)
		mock.ExpectBegin()
		expectLookup(mock, "albums").WillReturnRows(sqlmock.NewRows([]string{"id", "sequence"}))
		mock.ExpectQuery("UPDATE albums_sequence").WillReturnError(errDriver)
		mock.ExpectRollback()

		album := &models.Album{RemoteID: "AL1", Name: "x"}
		_, err := store.Albums.Upsert(album, "artist-id")
		if !errors.Is(err, errDriver) || !strings.Contains(err.Error(), "failed to generate sequence") {
			t.Errorf("expected sequence error, got %v", err)
		}
		if album.ID != "" {
			t.Error("album id must not be set on failure")
		}
		assertExpectations(t, mock)
	})

	t.Run("Lost Insert Race Updates", func(t *testing.T) {
		store, mock := setupMockDB(t)
		mock.ExpectBegin()
		expectLookup(mock, "artists").WillReturnRows(sqlmock.NewRows([]string{"id", "sequence"}))
		mock.ExpectQuery("UPDATE artists_sequence").WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(7))
		mock.ExpectExec("INSERT INTO artists").WillReturnResult(sqlmock.NewResult(0, 0))
		expectLookup(mock, "artists").WillReturnRows(sqlmock.NewRows([]string{"id", "sequence"}).AddRow("winner", 3))
		mock.ExpectExec("UPDATE artists").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		artist := newArtist("A1", "x")
		created, err := store.UpsertArtist(artist)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if created || artist.ID != "winner" || artist.Sequence != 3 {
			t.Errorf("expected update of the winning row, got created=%v %+v", created, artist)
		}
		assertExpectations(t, mock)
	})

	t.Run("Track Link Fails", func(t *testing.T) {
		store, mock := setupMockDB(t)
		mock.ExpectBegin()
		expectLookup(mock, "tracks").WillReturnRows(sqlmock.NewRows([]string{"id", "sequence"}))
		mock.ExpectQuery("UPDATE tracks_sequence").WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(1))
		mock.ExpectExec("INSERT INTO tracks").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO track_artists").WillReturnError(errDriver)
		mock.ExpectRollback()

		track := newTrack("T1", "x", 0.5)
		_, err := store.Tracks.Upsert(track, "album-id", "artist-id")
		if !errors.Is(err, errDriver) || !strings.Contains(err.Error(), "failed to link track artist") {
			t.Errorf("expected link error, got %v", err)
		}
		if track.ID != "" {
			t.Error("track id must not be set on failure")
		}
		assertExpectations(t, mock)
	})

	t.Run("Commit Fails", func(t *testing.T) {
		store, mock := setupMockDB(t)
		mock.ExpectBegin()
		expectLookup(mock, "artists").WillReturnRows(sqlmock.NewRows([]string{"id", "sequence"}).AddRow("id-1", 1))
		mock.ExpectExec("UPDATE artists").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit().WillReturnError(errDriver)

		_, err := store.UpsertArtist(newArtist("A1", "x"))
		if !errors.Is(err, errDriver) || !strings.Contains(err.Error(), "failed to commit") {
			t.Errorf("expected commit error, got %v", err)
		}
		assertExpectations(t, mock)
	})
}

func TestQueryErrors(t *testing.T) {
	t.Run("Feature Equality", func(t *testing.T) {
		store, mock := setupMockDB(t)
		mock.ExpectQuery(`FROM tracks t WHERE t\.acousticness = \?`).WillReturnError(errDriver)

		_, err := store.FindTracksByFeatureEquality(models.AudioFeatures{})
		if !errors.Is(err, errDriver) {
			t.Errorf("expected driver error, got %v", err)
		}
		assertExpectations(t, mock)
	})

	t.Run("Album Exists", func(t *testing.T) {
		store, mock := setupMockDB(t)
		mock.ExpectQuery("SELECT EXISTS").WillReturnError(errDriver)

		if _, err := store.AlbumExists("AL1"); !errors.Is(err, errDriver) {
			t.Errorf("expected driver error, got %v", err)
		}
		assertExpectations(t, mock)
	})

	t.Run("Import Process Scan", func(t *testing.T) {
		store, mock := setupMockDB(t)
		mock.ExpectQuery("FROM import_processes").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p1"))

		_, err := store.Processes.List("", 0)
		if err == nil || !strings.Contains(err.Error(), "failed to scan import process") {
			t.Errorf("expected scan error, got %v", err)
		}
		assertExpectations(t, mock)
	})

	t.Run("Import Process Rows Affected", func(t *testing.T) {
		store, mock := setupMockDB(t)
		mock.ExpectExec("UPDATE import_processes").WillReturnResult(sqlmock.NewErrorResult(errDriver))

		process := models.NewImportProcess(1)
		process.ID = "p1"
		err := store.Processes.Update(process)
		if !errors.Is(err, errDriver) || !strings.Contains(err.Error(), "failed to get affected rows") {
			t.Errorf("expected rows affected error, got %v", err)
		}
		assertExpectations(t, mock)
	})

	t.Run("Artist List Iteration", func(t *testing.T) {
		store, mock := setupMockDB(t)
		rows := sqlmock.NewRows([]string{
			"id", "sequence", "remote_id", "name", "popularity", "followers", "genres", "popular",
			"import_process_id", "created_at", "updated_at",
		}).AddRow("id-1", 1, "A1", "x", 1, 1, "[]", false, nil, nil, nil).RowError(0, errDriver)
		mock.ExpectQuery("FROM artists").WillReturnRows(rows)

		if _, err := store.Artists.List(""); !errors.Is(err, errDriver) {
			t.Errorf("expected iteration error, got %v", err)
		}
		assertExpectations(t, mock)
	})
}
