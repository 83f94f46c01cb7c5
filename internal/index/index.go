// Package index provides the SQLite-backed plain-text document index the
// vault feeds. Each note body line is one document keyed "<noteId>|<line>",
// with optional FTS5 full-text search behind the sqlite_fts5 build tag.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	key        TEXT PRIMARY KEY,
	note_id    TEXT NOT NULL,
	line_no    INTEGER NOT NULL,
	content    TEXT NOT NULL DEFAULT '',
	title      TEXT NOT NULL DEFAULT '',
	path       TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_documents_note ON documents(note_id);
`

// DB wraps a sql.DB with document-index operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
