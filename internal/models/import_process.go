package models

import (
	"fmt"
	"time"
)

// ImportStatus is the lifecycle state of an [ImportProcess].
type ImportStatus string

const (
	ImportPending   ImportStatus = "pending"
	ImportRunning   ImportStatus = "running"
	ImportCompleted ImportStatus = "completed"
	ImportFailed    ImportStatus = "failed"
)

// ImportProcess identifies one batch of artist imports.
type ImportProcess struct {
	ID              string
	Sequence        int
	Status          ImportStatus
	ArtistsTotal    int
	ArtistsImported int
	ArtistsFailed   int
	TracksImported  int
	ErrorMessage    string
	StartedAt       *time.Time
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewImportProcess creates a pending process for total artists.
func NewImportProcess(total int) *ImportProcess {
	now := time.Now()
	return &ImportProcess{
		Status:       ImportPending,
		ArtistsTotal: total,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate checks status and counters.
func (p *ImportProcess) Validate() error {
	switch p.Status {
	case ImportPending, ImportRunning, ImportCompleted, ImportFailed:
	default:
		return fmt.Errorf("invalid import status %q", p.Status)
	}
	if p.ArtistsTotal < 0 || p.ArtistsImported < 0 || p.ArtistsFailed < 0 {
		return fmt.Errorf("import counters cannot be negative")
	}
	if p.ArtistsImported+p.ArtistsFailed > p.ArtistsTotal {
		return fmt.Errorf("import counters exceed total (%d+%d > %d)", p.ArtistsImported, p.ArtistsFailed, p.ArtistsTotal)
	}
	return nil
}

// Start marks the process running.
func (p *ImportProcess) Start() {
	now := time.Now()
	p.Status = ImportRunning
	p.StartedAt = &now
}

// Finish marks the process completed, or failed when any artist failed.
func (p *ImportProcess) Finish(err error) {
	now := time.Now()
	p.CompletedAt = &now
	if err != nil {
		p.Status = ImportFailed
		p.ErrorMessage = err.Error()
		return
	}
	if p.ArtistsFailed > 0 {
		p.Status = ImportFailed
		p.ErrorMessage = fmt.Sprintf("%d of %d artists failed", p.ArtistsFailed, p.ArtistsTotal)
		return
	}
	p.Status = ImportCompleted
}

// Done reports whether the process reached a terminal state.
func (p *ImportProcess) Done() bool {
	return p.Status == ImportCompleted || p.Status == ImportFailed
}
