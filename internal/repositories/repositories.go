package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers provide human-readable ordering for entities (e.g., artist #42, track #1337).
// Pass the transaction that inserts the row so the counter and the row commit together.
func NextSequence(q querier, table string) (int, error) {
	var sequence int
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)
	if err := q.QueryRow(query).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}
	return sequence, nil
}

// withTx runs fn in a transaction, committing when it returns nil.
func withTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type existingRow struct {
	id       string
	sequence int
}

// lookupRemote returns the row with remoteID in table, or nil.
func lookupRemote(q querier, table, remoteID string) (*existingRow, error) {
	var row existingRow
	err := q.QueryRow(fmt.Sprintf("SELECT id, sequence FROM %s WHERE remote_id = ?", table), remoteID).
		Scan(&row.id, &row.sequence)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s %s: %w", table, remoteID, err)
	}
	return &row, nil
}

// upsert runs find-or-create-by-remote_id inside one transaction.
//
// insert must write the row with ON CONFLICT(remote_id) DO NOTHING and report whether it did.
// When it did not, another writer created the row first and update runs against that row.
func upsert(
	db *sql.DB, table, remoteID string,
	insert func(tx *sql.Tx) (bool, error),
	update func(tx *sql.Tx, row *existingRow) error,
) (created bool, err error) {
	err = withTx(db, func(tx *sql.Tx) error {
		row, err := lookupRemote(tx, table, remoteID)
		if err != nil {
			return err
		}

		if row == nil {
			inserted, err := insert(tx)
			if err != nil {
				return err
			}
			if inserted {
				created = true
				return nil
			}
			if row, err = lookupRemote(tx, table, remoteID); err != nil {
				return err
			}
			if row == nil {
				return fmt.Errorf("%s %s conflicted but was not found", table, remoteID)
			}
		}

		return update(tx, row)
	})
	return created, err
}

// existsRemote reports whether table has a row with remoteID.
func existsRemote(q querier, table, remoteID string) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE remote_id = ?)", table)
	if err := q.QueryRow(query, remoteID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check %s %s: %w", table, remoteID, err)
	}
	return exists, nil
}

func insertedRow(result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

// nullable maps "" to NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
