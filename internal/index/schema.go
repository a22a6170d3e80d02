// Package index provides the SQLite-backed read model over the vault:
// diagram metadata, node references, drill-down links, and full-text
// search over node labels (FTS5 when compiled in, LIKE fallback
// otherwise). The index is derived state; the documents in the vault
// stay authoritative for every invariant.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS diagrams (
	path       TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	type       TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS node_refs (
	diagram_path TEXT NOT NULL,
	node_id      TEXT NOT NULL,
	UNIQUE(diagram_path, node_id)
);

CREATE TABLE IF NOT EXISTS child_links (
	parent_path TEXT NOT NULL,
	node_id     TEXT NOT NULL,
	child_path  TEXT NOT NULL,
	UNIQUE(parent_path, node_id)
);

CREATE TABLE IF NOT EXISTS nodes (
	id          TEXT PRIMARY KEY,
	label       TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_node_refs_node ON node_refs(node_id);
CREATE INDEX IF NOT EXISTS idx_child_links_child ON child_links(child_path);
`

// DB wraps a sql.DB with index-specific operations.
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
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
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
