// package formatter provides functions to export an artist's imported catalog to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

// Formats lists the supported export formats.
var Formats = []string{"csv", "markdown", "txt", "json"}

var keyNames = []string{"C", "C♯/D♭", "D", "D♯/E♭", "E", "F", "F♯/G♭", "G", "G♯/A♭", "A", "A♯/B♭", "B"}

// KeyName renders a pitch class with its mode, e.g. "F minor". Unknown keys render as "-".
func KeyName(key, mode int) string {
	if key < 0 || key >= len(keyNames) {
		return "-"
	}
	if mode == 1 {
		return keyNames[key] + " major"
	}
	return keyNames[key] + " minor"
}

// FormatDuration renders milliseconds as m:ss.
func FormatDuration(ms int) string {
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// ExportToCSV converts a CatalogExport to CSV with one row per track.
func ExportToCSV(export *models.CatalogExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{
		"ID", "Name", "Album", "Genre", "Popular", "Danceability", "Energy", "Valence",
		"Tempo", "Key", "Duration", "Sections", "Loudness Range", "URL",
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, ct := range export.Tracks {
		track := ct.Track
		record := []string{
			track.RemoteID,
			track.Name,
			ct.AlbumName,
			track.Genre,
			strconv.FormatBool(track.Popular),
			formatFloat(track.Features.Danceability),
			formatFloat(track.Features.Energy),
			formatFloat(track.Features.Valence),
			formatFloat(track.Features.Tempo),
			KeyName(track.Features.Key, track.Features.Mode),
			FormatDuration(track.Features.DurationMS),
			strconv.Itoa(track.Analysis.SectionCount),
			formatFloat(track.Analysis.LoudnessRange),
			track.URL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ExportToMarkdown converts a CatalogExport to a Markdown document grouped by album.
func ExportToMarkdown(export *models.CatalogExport) ([]byte, error) {
	var buf bytes.Buffer
	artist := export.Artist

	fmt.Fprintf(&buf, "# %s\n\n", artist.Name)
	if len(artist.Genres) > 0 {
		fmt.Fprintf(&buf, "**Genres**: %s\n", strings.Join(artist.Genres, ", "))
	}
	fmt.Fprintf(&buf, "**Followers**: %d\n", artist.Followers)
	fmt.Fprintf(&buf, "**Popularity**: %d\n", artist.Popularity)
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(export.Tracks))

	album := ""
	n := 0
	for _, ct := range export.Tracks {
		if ct.AlbumName != album || n == 0 {
			album = ct.AlbumName
			n = 0
			fmt.Fprintf(&buf, "## %s\n\n", album)
		}
		n++
		track := ct.Track
		fmt.Fprintf(&buf, "%d. %s [%s] (%s, %s BPM)\n",
			n, track.Name, FormatDuration(track.Features.DurationMS),
			KeyName(track.Features.Key, track.Features.Mode), strconv.FormatFloat(track.Features.Tempo, 'f', 0, 64),
		)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a CatalogExport to plain text format
func ExportToText(export *models.CatalogExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Artist: %s\n", export.Artist.Name)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))

	for i, ct := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, ct.Track.Name, ct.AlbumName)
	}

	return buf.Bytes(), nil
}

type artistJSON struct {
	RemoteID   string      `json:"id"`
	Name       string      `json:"name"`
	Popularity int         `json:"popularity"`
	Followers  int         `json:"followers"`
	Genres     []string    `json:"genres"`
	Popular    bool        `json:"popular"`
	Tracks     []trackJSON `json:"tracks,omitempty"`
}

type trackJSON struct {
	RemoteID string               `json:"id"`
	Name     string               `json:"name"`
	Album    string               `json:"album"`
	Genre    string               `json:"genre"`
	URL      string               `json:"url,omitempty"`
	Popular  bool                 `json:"popular"`
	Features models.AudioFeatures `json:"features"`
	Analysis models.TrackAnalysis `json:"analysis"`
}

func toArtistJSON(export *models.CatalogExport, withTracks bool) artistJSON {
	a := export.Artist
	out := artistJSON{
		RemoteID:   a.RemoteID,
		Name:       a.Name,
		Popularity: a.Popularity,
		Followers:  a.Followers,
		Genres:     a.Genres,
		Popular:    a.Popular,
	}
	if out.Genres == nil {
		out.Genres = []string{}
	}
	if !withTracks {
		return out
	}
	out.Tracks = make([]trackJSON, 0, len(export.Tracks))
	for _, ct := range export.Tracks {
		t := ct.Track
		out.Tracks = append(out.Tracks, trackJSON{
			RemoteID: t.RemoteID,
			Name:     t.Name,
			Album:    ct.AlbumName,
			Genre:    t.Genre,
			URL:      t.URL,
			Popular:  t.Popular,
			Features: t.Features,
			Analysis: t.Analysis,
		})
	}
	return out
}

// ExportToJSON converts a CatalogExport to indented JSON including every track.
func ExportToJSON(export *models.CatalogExport) ([]byte, error) {
	return json.MarshalIndent(toArtistJSON(export, true), "", "  ")
}

// ToMetadataJSON generates a JSON representation of the artist (without tracks)
func ToMetadataJSON(export *models.CatalogExport) ([]byte, error) {
	return json.MarshalIndent(toArtistJSON(export, false), "", "  ")
}

// Render converts export to the named format.
func Render(export *models.CatalogExport, format string) ([]byte, error) {
	switch format {
	case "csv":
		return ExportToCSV(export)
	case "markdown", "md":
		return ExportToMarkdown(export)
	case "txt", "text":
		return ExportToText(export)
	case "json":
		return ExportToJSON(export)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q (use %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}

// Write renders export in the named format to w.
func Write(w io.Writer, export *models.CatalogExport, format string) error {
	data, err := Render(export, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s export: %w", format, err)
	}
	return nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a catalog to CSV format with accompanying metadata JSON file.
//
// Defaults to the artist's remote id as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(export *models.CatalogExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Artist.RemoteID
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// WriteMarkdownExport exports a catalog to {dir}/README.md. The directory defaults to the artist's remote id.
func WriteMarkdownExport(export *models.CatalogExport, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = export.Artist.RemoteID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportToMarkdown(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}
	return mdFile, nil
}

// WriteTextExport exports a catalog to plain text format.
//
// Defaults to {artist.RemoteID}_tracks.txt as the filename.
func WriteTextExport(export *models.CatalogExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_tracks.txt", export.Artist.RemoteID)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport exports a catalog to JSON. Defaults to {artist.RemoteID}.json as the filename.
func WriteJSONExport(export *models.CatalogExport, path string) (string, error) {
	if path == "" {
		path = export.Artist.RemoteID + ".json"
	}

	data, err := ExportToJSON(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}
	return path, nil
}

// WriteExport writes export to disk in the named format and returns the created files.
// For csv the output is a base path, for markdown a directory and for the other formats a file.
func WriteExport(export *models.CatalogExport, format, output string) ([]string, error) {
	switch format {
	case "csv":
		res, err := WriteCSVExport(export, output)
		if err != nil {
			return nil, err
		}
		return []string{res.TracksFile, res.MetadataFile}, nil
	case "markdown", "md":
		file, err := WriteMarkdownExport(export, output)
		if err != nil {
			return nil, err
		}
		return []string{file}, nil
	case "txt", "text":
		file, err := WriteTextExport(export, output)
		if err != nil {
			return nil, err
		}
		return []string{file}, nil
	case "json":
		file, err := WriteJSONExport(export, output)
		if err != nil {
			return nil, err
		}
		return []string{file}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %q (use %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}
