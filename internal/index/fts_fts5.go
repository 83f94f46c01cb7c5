//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			key UNINDEXED,
			note_id UNINDEXED,
			title,
			content,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, key, noteID, title, content string) error {
	_, _ = tx.Exec(`DELETE FROM documents_fts WHERE key = ?`, key)
	_, err := tx.Exec(`INSERT INTO documents_fts (key, note_id, title, content) VALUES (?, ?, ?, ?)`,
		key, noteID, title, content)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDeleteNote(tx *sql.Tx, noteID string) {
	_, _ = tx.Exec(`DELETE FROM documents_fts WHERE note_id = ?`, noteID)
}

func ftsDeleteKey(tx *sql.Tx, key string) {
	_, _ = tx.Exec(`DELETE FROM documents_fts WHERE key = ?`, key)
}

// Search performs an FTS5 full-text search over indexed lines.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT d.key, d.note_id, d.path, d.title, d.line_no,
		       snippet(documents_fts, 3, '<b>', '</b>', '...', 64)
		FROM documents_fts f
		JOIN documents d ON d.key = f.key
		WHERE documents_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
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
