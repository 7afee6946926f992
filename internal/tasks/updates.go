package tasks

import (
	"fmt"
	"time"
)

// ProgressUpdate represents a progress event during an import.
//
// Used to send real-time updates to the CLI for display.
type ProgressUpdate struct {
	Phase    Phase  // Operation phase
	ArtistID string // Remote id of the artist being imported
	Step     int    // Current step number within phase
	Total    int    // Total steps in this phase
	Message  string // Human-readable message for display
	Data     any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchArtist Phase = iota
	PersistArtist
	ResolveGenre
	WalkAlbums
	ImportTrack
	Retry
	Done
	Failed
)

func (p Phase) String() string {
	switch p {
	case FetchArtist:
		return "fetch_artist"
	case PersistArtist:
		return "persist_artist"
	case ResolveGenre:
		return "resolve_genre"
	case WalkAlbums:
		return "walk_albums"
	case ImportTrack:
		return "import_track"
	case Retry:
		return "retry"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchArtistUpdate(artistID string, attempt int) ProgressUpdate {
	return ProgressUpdate{
		Phase:    FetchArtist,
		ArtistID: artistID,
		Step:     attempt,
		Message:  fmt.Sprintf("Fetching artist %s (attempt %d)...", artistID, attempt),
	}
}

func persistArtistUpdate(artistID, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:    PersistArtist,
		ArtistID: artistID,
		Message:  fmt.Sprintf("Saving artist %s...", name),
	}
}

func resolveGenreUpdate(artistID, genre string) ProgressUpdate {
	return ProgressUpdate{
		Phase:    ResolveGenre,
		ArtistID: artistID,
		Message:  fmt.Sprintf("Genre: %s", genre),
		Data:     genre,
	}
}

func walkAlbumUpdate(artistID string, step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:    WalkAlbums,
		ArtistID: artistID,
		Step:     step,
		Total:    total,
		Message:  fmt.Sprintf("[%d/%d] Album: %s", step, total, name),
	}
}

func importTrackUpdate(artistID string, step, total int, name string, outcome trackOutcome) ProgressUpdate {
	return ProgressUpdate{
		Phase:    ImportTrack,
		ArtistID: artistID,
		Step:     step,
		Total:    total,
		Message:  fmt.Sprintf("[%d/%d] %s (%s)", step, total, name, outcome),
		Data:     outcome,
	}
}

func retryUpdate(artistID string, attempt int, delay time.Duration, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:    Retry,
		ArtistID: artistID,
		Step:     attempt,
		Message:  fmt.Sprintf("Attempt %d failed (%v), retrying in %s...", attempt, err, delay),
		Data:     err,
	}
}

func doneUpdate(result *ImportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:    Done,
		ArtistID: result.RemoteID,
		Message:  fmt.Sprintf("✓ %s (%s): %d tracks imported", result.RemoteID, result.Genre, result.TracksImported),
		Data:     result,
	}
}

func failedUpdate(result *ImportResult, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:    Failed,
		ArtistID: result.RemoteID,
		Message:  fmt.Sprintf("✗ %s: %v", result.RemoteID, err),
		Data:     err,
	}
}
