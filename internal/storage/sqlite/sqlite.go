// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// WHY SQLite?
// ───────────
// SQLite stores everything in a single file on disk. There is no
// network, no separate server process, and no installation beyond the
// driver. For a single blob slot that is exactly the right amount of
// database.
//
// The blank import below registers the sqlite3 driver with database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Blank import: side-effect only (registers the "sqlite3" driver).
	_ "github.com/mattn/go-sqlite3"

	"github.com/aanand-mishra/student-records/internal/storage"
)

// SQLite is the concrete implementation of storage.Storage.
// It holds a *sql.DB which is a connection pool managed by database/sql.
type SQLite struct {
	Db *sql.DB
}

// New opens the SQLite database at path, creates the slots table if it
// does not already exist, and returns a ready-to-use *SQLite.
//
// path may be ":memory:" for tests. The pool is limited to a single
// connection: SQLite allows one writer at a time, and every ":memory:"
// connection would otherwise see its own empty database.
func New(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// CREATE TABLE IF NOT EXISTS is idempotent, so it runs on every
	// startup.
	//
	// Schema:
	//   slot        the slot key, e.g. "students"
	//   value       the serialized collection (a JSON array)
	//   updated_at  when the slot was last rewritten, for operators
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS slots (
			slot       TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// Read fetches the blob for key.
//
// QueryRow returns exactly one row. If the query finds no match the error
// surfaces only when Scan is called, as sql.ErrNoRows, which we translate
// into the backend-neutral storage.ErrNotFound.
func (s *SQLite) Read(ctx context.Context, key string) ([]byte, error) {
	var blob []byte

	err := s.Db.QueryRowContext(ctx,
		"SELECT value FROM slots WHERE slot = ? LIMIT 1", key,
	).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("Read: scan: %w", err)
	}

	return blob, nil
}

// Write upserts the blob for key in one statement, so a failure leaves the
// previous value untouched.
func (s *SQLite) Write(ctx context.Context, key string, blob []byte) error {
	stmt, err := s.Db.PrepareContext(ctx, `
		INSERT INTO slots (slot, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("Write: prepare: %w", err)
	}
	defer stmt.Close()

	// Argument order matches the ? order in the SQL: slot, value, updated_at.
	_, err = stmt.ExecContext(ctx, key, blob, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("Write: exec: %w", err)
	}

	return nil
}

// Close closes the underlying connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}
