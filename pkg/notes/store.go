// Package notes persists the short records the assistant takes during
// calls, such as messages for the owner or follow-up requests. Storage is
// a single sqlite file so a deployment needs no external database.
package notes

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Note is one record taken during a call.
type Note struct {
	ID        string    `json:"id"`
	CallSid   string    `json:"call_sid,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a sqlite-backed note store. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS notes (
	id         TEXT PRIMARY KEY,
	call_sid   TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notes_created_at ON notes(created_at DESC);
`

// Open opens (or creates) the sqlite database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("notes: failed to open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("notes: failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save records a new note and returns it with its generated id.
func (s *Store) Save(callSid, body string) (*Note, error) {
	if body == "" {
		return nil, fmt.Errorf("notes: body is required")
	}

	n := &Note{
		ID:        uuid.NewString(),
		CallSid:   callSid,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO notes (id, call_sid, body, created_at) VALUES (?, ?, ?, ?)`,
		n.ID, n.CallSid, n.Body, n.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("notes: failed to save note: %w", err)
	}
	return n, nil
}

// Get returns the note with the given id, or sql.ErrNoRows if absent.
func (s *Store) Get(id string) (*Note, error) {
	row := s.db.QueryRow(
		`SELECT id, call_sid, body, created_at FROM notes WHERE id = ?`, id,
	)
	var n Note
	if err := row.Scan(&n.ID, &n.CallSid, &n.Body, &n.CreatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

// List returns the most recent notes, newest first, up to limit.
func (s *Store) List(limit int) ([]Note, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, call_sid, body, created_at FROM notes
		 ORDER BY created_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("notes: failed to list notes: %w", err)
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.CallSid, &n.Body, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
