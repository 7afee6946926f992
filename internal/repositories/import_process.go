package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

const importProcessColumns = `
	id, sequence, status, artists_total, artists_imported, artists_failed, tracks_imported,
	error_message, started_at, completed_at, created_at, updated_at`

// ImportProcessRepository tracks [models.ImportProcess] rows.
//
// Handles lifecycle updates (pending, running, completed, failed) and counter bookkeeping.
type ImportProcessRepository struct {
	db *sql.DB
}

// NewImportProcessRepository creates a new ImportProcessRepository with the given database connection
func NewImportProcessRepository(db *sql.DB) *ImportProcessRepository {
	return &ImportProcessRepository{db: db}
}

// Create inserts a new import process with generated ID and sequence
func (r *ImportProcessRepository) Create(process *models.ImportProcess) error {
	if err := process.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	return withTx(r.db, func(tx *sql.Tx) error {
		sequence, err := NextSequence(tx, "import_processes")
		if err != nil {
			return fmt.Errorf("failed to generate sequence: %w", err)
		}
		id := shared.GenerateID()

		_, err = tx.Exec(`
			INSERT INTO import_processes (`+importProcessColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			id, sequence, process.Status, process.ArtistsTotal, process.ArtistsImported, process.ArtistsFailed,
			process.TracksImported, nullable(process.ErrorMessage), process.StartedAt, process.CompletedAt,
			process.CreatedAt, process.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert import process: %w", err)
		}

		process.ID, process.Sequence = id, sequence
		return nil
	})
}

// Get retrieves an import process by ID
func (r *ImportProcessRepository) Get(id string) (*models.ImportProcess, error) {
	process, err := scanImportProcess(r.db.QueryRow(`SELECT `+importProcessColumns+` FROM import_processes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: import process %s", shared.ErrRecordNotFound, id)
	}
	return process, err
}

// Update writes the status, counters and timestamps of an existing import process
func (r *ImportProcessRepository) Update(process *models.ImportProcess) error {
	if err := process.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	now := time.Now()
	result, err := r.db.Exec(`
		UPDATE import_processes
		SET status = ?, artists_total = ?, artists_imported = ?, artists_failed = ?, tracks_imported = ?,
			error_message = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`,
		process.Status, process.ArtistsTotal, process.ArtistsImported, process.ArtistsFailed, process.TracksImported,
		nullable(process.ErrorMessage), process.StartedAt, process.CompletedAt, now,
		process.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update import process: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: import process %s", shared.ErrRecordNotFound, process.ID)
	}

	process.UpdatedAt = now
	return nil
}

// List retrieves import processes, newest first. An empty status matches all; limit <= 0 means no limit.
func (r *ImportProcessRepository) List(status models.ImportStatus, limit int) ([]*models.ImportProcess, error) {
	query := `SELECT ` + importProcessColumns + ` FROM import_processes`
	args := []any{}

	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query import processes: %w", err)
	}
	defer rows.Close()

	var processes []*models.ImportProcess
	for rows.Next() {
		process, err := scanImportProcess(rows)
		if err != nil {
			return nil, err
		}
		processes = append(processes, process)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return processes, nil
}

func scanImportProcess(s scanner) (*models.ImportProcess, error) {
	var (
		p            models.ImportProcess
		status       string
		errorMessage sql.NullString
		startedAt    sql.NullTime
		completedAt  sql.NullTime
	)

	err := s.Scan(
		&p.ID, &p.Sequence, &status, &p.ArtistsTotal, &p.ArtistsImported, &p.ArtistsFailed, &p.TracksImported,
		&errorMessage, &startedAt, &completedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan import process: %w", err)
	}

	p.Status = models.ImportStatus(status)
	p.ErrorMessage = errorMessage.String
	if startedAt.Valid {
		p.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}

	return &p, nil
}
