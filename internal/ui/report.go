package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/crate/internal/genres"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/tasks"
)

// RenderProgress renders a single progress update as one line.
func RenderProgress(u tasks.ProgressUpdate) string {
	switch u.Phase {
	case tasks.Done:
		return styles.ok.Render(u.Message)
	case tasks.Failed:
		return styles.err.Render(u.Message)
	case tasks.Retry:
		return styles.warn.Render(u.Message)
	case tasks.ImportTrack:
		return "  " + styles.help.Render(u.Message)
	default:
		return u.Message
	}
}

func field(label string, value any) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, styles.label.Render(label), fmt.Sprint(value))
}

// RenderImportResult summarizes a single artist import.
func RenderImportResult(r *tasks.ImportResult, err error) string {
	var b strings.Builder

	name := r.Name
	if name == "" {
		name = r.RemoteID
	}
	if err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("✗ Import of %s failed", name)))
	} else {
		b.WriteString(styles.ok.Render(fmt.Sprintf("✓ Imported %s", name)))
	}
	b.WriteString("\n\n")

	lines := []string{
		field("Artist", r.RemoteID),
		field("Genre", orDash(r.Genre)),
		field("Attempts", r.Attempts),
		field("Albums", fmt.Sprintf("%d imported, %d skipped", r.AlbumsImported, r.AlbumsSkipped)),
		field("Tracks", fmt.Sprintf("%d imported, %d skipped, %d failed", r.TracksImported, r.TracksSkipped, r.TracksFailed)),
	}
	if err != nil {
		lines = append(lines, field("Stopped in", r.FailedIn), field("Error", styles.err.Render(err.Error())))
	}
	b.WriteString(lipgloss.JoinVertical(lipgloss.Left, lines...))
	b.WriteString("\n")
	return b.String()
}

// RenderBulkImport summarizes a bulk import with one line per artist.
func RenderBulkImport(r *tasks.BulkImportResult) string {
	var b strings.Builder

	title := fmt.Sprintf("Imported %d/%d artists (%d tracks)", r.Succeeded, r.Total, r.TracksImported)
	if r.Failed > 0 {
		b.WriteString(styles.warn.Render(title))
	} else {
		b.WriteString(styles.ok.Render(title))
	}
	b.WriteString("\n\n")

	for _, item := range r.Results {
		if item.Error != nil {
			fmt.Fprintf(&b, "  %s %s: %v\n", styles.err.Render("✗"), item.RemoteID, item.Error)
			continue
		}
		fmt.Fprintf(&b, "  %s %s (%s): %d tracks\n", styles.ok.Render("✓"), item.RemoteID, item.Result.Genre, item.Result.TracksImported)
	}
	return b.String()
}

// RenderProcess renders the details of an import process.
func RenderProcess(p *models.ImportProcess) string {
	lines := []string{
		styles.title.Render(fmt.Sprintf("Import #%d", p.Sequence)),
		field("ID", p.ID),
		field("Status", renderStatus(p.Status)),
		field("Artists", fmt.Sprintf("%d/%d imported, %d failed", p.ArtistsImported, p.ArtistsTotal, p.ArtistsFailed)),
		field("Tracks", p.TracksImported),
		field("Created", p.CreatedAt.Format(time.DateTime)),
	}
	if p.StartedAt != nil {
		lines = append(lines, field("Started", p.StartedAt.Format(time.DateTime)))
	}
	if p.CompletedAt != nil {
		lines = append(lines, field("Completed", p.CompletedAt.Format(time.DateTime)))
	}
	if p.ErrorMessage != "" {
		lines = append(lines, field("Error", styles.err.Render(p.ErrorMessage)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...) + "\n"
}

// RenderProcessList renders one line per import process.
func RenderProcessList(processes []*models.ImportProcess) string {
	if len(processes) == 0 {
		return styles.help.Render("No import processes found") + "\n"
	}

	var b strings.Builder
	for _, p := range processes {
		fmt.Fprintf(&b, "#%-4d %-10s %s  artists %d/%d  tracks %d  %s\n",
			p.Sequence, renderStatus(p.Status), p.ID, p.ArtistsImported, p.ArtistsTotal,
			p.TracksImported, p.CreatedAt.Format(time.DateTime),
		)
	}
	return b.String()
}

func renderStatus(s models.ImportStatus) string {
	switch s {
	case models.ImportCompleted:
		return styles.ok.Render(string(s))
	case models.ImportFailed:
		return styles.err.Render(string(s))
	case models.ImportRunning:
		return styles.warn.Render(string(s))
	default:
		return string(s)
	}
}

// RenderGenreVotes explains how tags resolved to genre.
func RenderGenreVotes(tags []string, votes []genres.Vote, genre string) string {
	var b strings.Builder
	b.WriteString(styles.ok.Render(genre))
	b.WriteString("\n\n")

	matched := make(map[string]genres.Vote, len(votes))
	for _, v := range votes {
		matched[v.Tag] = v
	}
	for _, tag := range tags {
		if v, ok := matched[tag]; ok {
			fmt.Fprintf(&b, "  %-24s → %s (%q)\n", tag, v.Genre, v.Keyword)
			continue
		}
		fmt.Fprintf(&b, "  %-24s %s\n", tag, styles.help.Render("no match"))
	}

	if counts := genres.Counts(votes); len(counts) > 0 {
		b.WriteString("\n")
		for _, c := range counts {
			fmt.Fprintf(&b, "  %s: %d\n", c.Genre, c.Votes)
		}
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
