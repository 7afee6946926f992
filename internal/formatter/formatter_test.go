package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	th "github.com/desertthunder/crate/internal/testing"
)

func testExport() *models.CatalogExport {
	track := func(id, name string, dance float64) *models.Track {
		return &models.Track{
			RemoteID: id,
			Name:     name,
			Genre:    "House",
			URL:      "https://open.spotify.com/track/" + id,
			Features: models.AudioFeatures{
				Danceability: dance, Energy: 0.84, Valence: 0.36, Tempo: 123.998,
				Key: 5, Mode: 0, DurationMS: 412000,
			},
			Analysis: models.TrackAnalysis{SectionCount: 7, LoudnessRange: 6.5},
		}
	}
	return &models.CatalogExport{
		Artist: &models.Artist{
			RemoteID:   "A1",
			Name:       "Larry Heard",
			Popularity: 61,
			Followers:  120345,
			Genres:     []string{"deep house", "chicago house"},
		},
		Tracks: []models.CatalogTrack{
			{Track: track("T1", "Can You Feel It", 0.71), AlbumName: "Sceneries Not Songs"},
			{Track: track("T2", "Mystery of Love", 0.55), AlbumName: "Sceneries Not Songs"},
			{Track: track("T3", "The Sun Can't Compare", 0.6), AlbumName: "Alien"},
		},
	}
}

func TestHelpers(t *testing.T) {
	tests := []struct {
		key, mode int
		want      string
	}{
		{0, 1, "C major"},
		{5, 0, "F minor"},
		{11, 1, "B major"},
		{-1, 1, "-"},
		{12, 0, "-"},
	}
	for _, tt := range tests {
		if got := KeyName(tt.key, tt.mode); got != tt.want {
			t.Errorf("KeyName(%d, %d) = %q, want %q", tt.key, tt.mode, got, tt.want)
		}
	}

	for ms, want := range map[int]string{0: "0:00", 412000: "6:52", 59999: "0:59", 3600000: "60:00"} {
		if got := FormatDuration(ms); got != want {
			t.Errorf("FormatDuration(%d) = %q, want %q", ms, got, want)
		}
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 4 {
			t.Fatalf("expected header and 3 rows, got %d lines", len(lines))
		}
		if !strings.HasPrefix(lines[0], "ID,Name,Album,Genre,Popular,Danceability") {
			t.Errorf("CSV missing headers, got: %s", lines[0])
		}
		want := "T1,Can You Feel It,Sceneries Not Songs,House,false,0.71,0.84,0.36,123.998,F minor,6:52,7,6.5,https://open.spotify.com/track/T1"
		if lines[1] != want {
			t.Errorf("unexpected row\n got: %s\nwant: %s", lines[1], want)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(testExport())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		output := string(data)

		for _, want := range []string{
			"# Larry Heard",
			"**Genres**: deep house, chicago house",
			"**Followers**: 120345",
			"**Tracks**: 3",
			"## Sceneries Not Songs",
			"1. Can You Feel It [6:52] (F minor, 124 BPM)",
			"2. Mystery of Love",
			"## Alien",
			"1. The Sun Can't Compare",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
		if strings.Count(output, "## Sceneries Not Songs") != 1 {
			t.Error("expected one heading per album")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(testExport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		output := string(data)

		if !strings.HasPrefix(output, "Artist: Larry Heard\nTracks: 3\n\n") {
			t.Errorf("unexpected header: %s", output)
		}
		if !strings.Contains(output, "3. The Sun Can't Compare - Alien") {
			t.Errorf("Text missing track line, got: %s", output)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(testExport())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded struct {
			ID     string `json:"id"`
			Tracks []struct {
				ID       string `json:"id"`
				Album    string `json:"album"`
				Features struct {
					Danceability float64 `json:"danceability"`
				} `json:"features"`
			} `json:"tracks"`
		}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.ID != "A1" || len(decoded.Tracks) != 3 {
			t.Fatalf("unexpected document %+v", decoded)
		}
		if decoded.Tracks[2].Album != "Alien" || decoded.Tracks[0].Features.Danceability != 0.71 {
			t.Errorf("unexpected tracks %+v", decoded.Tracks)
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		export := testExport()
		export.Artist.Genres = nil

		data, err := ToMetadataJSON(export)
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}
		output := string(data)
		if strings.Contains(output, "tracks") {
			t.Errorf("metadata must not include tracks: %s", output)
		}
		if !strings.Contains(output, `"genres": []`) {
			t.Errorf("expected empty genres list, got: %s", output)
		}
	})

	t.Run("Render", func(t *testing.T) {
		for _, format := range append(Formats, "md", "text") {
			if _, err := Render(testExport(), format); err != nil {
				t.Errorf("Render(%s) failed: %v", format, err)
			}
		}
		if _, err := Render(testExport(), "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Write", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Write(&buf, testExport(), "txt"); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if !strings.HasPrefix(buf.String(), "Artist: Larry Heard") {
			t.Errorf("unexpected output %s", buf.String())
		}

		if err := Write(&th.FWriter{}, testExport(), "txt"); err == nil {
			t.Error("expected write error")
		}

		limited := th.NewLimitedWriter(0, 0, &buf)
		if err := Write(&limited, testExport(), "csv"); err == nil {
			t.Error("expected write limit error")
		}
	})
}

func TestFileExports(t *testing.T) {
	t.Run("WriteCSVExport", func(t *testing.T) {
		dir := t.TempDir()
		result, err := WriteCSVExport(testExport(), filepath.Join(dir, "larry"))
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}

		th.AssertFileExists(t, result.TracksFile)
		th.AssertFileExists(t, result.MetadataFile)

		if !strings.HasSuffix(result.TracksFile, "larry_tracks.csv") {
			t.Errorf("unexpected tracks file %s", result.TracksFile)
		}
		if content := th.MustReadFile(t, result.MetadataFile); !strings.Contains(content, `"name": "Larry Heard"`) {
			t.Errorf("metadata missing artist name: %s", content)
		}
	})

	t.Run("WriteCSVExport Invalid Path", func(t *testing.T) {
		if _, err := WriteCSVExport(testExport(), filepath.Join(t.TempDir(), "missing", "larry")); err == nil {
			t.Error("expected error for missing directory")
		}
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "larry")
		file, err := WriteMarkdownExport(testExport(), dir)
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}

		th.AssertDirExists(t, dir)
		th.AssertFileExists(t, file)
		if content := th.MustReadFile(t, file); !strings.HasPrefix(content, "# Larry Heard") {
			t.Errorf("unexpected README: %s", content)
		}
	})

	t.Run("WriteExport", func(t *testing.T) {
		dir := t.TempDir()
		tests := []struct {
			format string
			output string
			files  int
		}{
			{"csv", filepath.Join(dir, "a1"), 2},
			{"markdown", filepath.Join(dir, "md"), 1},
			{"txt", filepath.Join(dir, "a1.txt"), 1},
			{"json", filepath.Join(dir, "a1.json"), 1},
		}

		for _, tt := range tests {
			t.Run(tt.format, func(t *testing.T) {
				files, err := WriteExport(testExport(), tt.format, tt.output)
				if err != nil {
					t.Fatalf("WriteExport(%s) failed: %v", tt.format, err)
				}
				if len(files) != tt.files {
					t.Fatalf("expected %d files, got %v", tt.files, files)
				}
				for _, f := range files {
					th.AssertFileExists(t, f)
				}
			})
		}

		if _, err := WriteExport(testExport(), "xml", ""); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
