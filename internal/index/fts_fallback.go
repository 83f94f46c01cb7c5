//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over the documents table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _, _ string) error { return nil }

func ftsDeleteNote(_ *sql.Tx, _ string) {}

func ftsDeleteKey(_ *sql.Tx, _ string) {}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT key, note_id, path, title, line_no, content
		FROM documents
		WHERE content LIKE ? OR title LIKE ?
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Key, &r.NoteID, &r.Path, &r.Title, &r.Line, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
