package index

import (
	"fmt"
	"strings"
)

// Key builds the document key for one note line.
func Key(noteID string, line int) string {
	return fmt.Sprintf("%s|%d", noteID, line)
}

// SearchResult represents one search hit.
type SearchResult struct {
	Key     string
	NoteID  string
	Path    string
	Title   string
	Line    int
	Snippet string
}

// IndexNote replaces all documents for a note with one row per body line,
// within a transaction. Blank lines are skipped.
func (db *DB) IndexNote(noteID, path, title string, bodyLines []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM documents WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("index: clear note: %w", err)
	}
	ftsDeleteNote(tx, noteID)

	stmt, err := tx.Prepare(`
		INSERT INTO documents (key, note_id, line_no, content, title, path, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, line := range bodyLines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		key := Key(noteID, i)
		if _, err := stmt.Exec(key, noteID, i, line, title, path); err != nil {
			return fmt.Errorf("index: insert document: %w", err)
		}
		if err := ftsUpsert(tx, key, noteID, title, line); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// PurgeNote removes every document belonging to the note.
func (db *DB) PurgeNote(noteID string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDeleteNote(tx, noteID)
	if _, err := tx.Exec(`DELETE FROM documents WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("index: purge note: %w", err)
	}
	return tx.Commit()
}

// Purge removes every document whose key satisfies the predicate.
func (db *DB) Purge(match func(key string) bool) error {
	keys, err := db.AllKeys()
	if err != nil {
		return err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, k := range keys {
		if !match(k) {
			continue
		}
		ftsDeleteKey(tx, k)
		if _, err := tx.Exec(`DELETE FROM documents WHERE key = ?`, k); err != nil {
			return fmt.Errorf("index: purge key: %w", err)
		}
	}
	return tx.Commit()
}

// AllKeys returns every document key in the index.
func (db *DB) AllKeys() ([]string, error) {
	rows, err := db.conn.Query(`SELECT key FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all keys: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// DocumentCount returns the number of indexed documents for a note, or the
// whole index when noteID is empty.
func (db *DB) DocumentCount(noteID string) (int, error) {
	var n int
	var err error
	if noteID == "" {
		err = db.conn.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&n)
	} else {
		err = db.conn.QueryRow(`SELECT COUNT(*) FROM documents WHERE note_id = ?`, noteID).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}
