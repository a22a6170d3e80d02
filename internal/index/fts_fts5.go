//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
			id UNINDEXED,
			label,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, label, body string) error {
	_, _ = tx.Exec(`DELETE FROM nodes_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO nodes_fts (id, label, body) VALUES (?, ?, ?)`, id, label, body)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsClear(tx *sql.Tx) {
	_, _ = tx.Exec(`DELETE FROM nodes_fts`)
}

// Search performs an FTS5 full-text search over node labels and
// descriptions, returning matches with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id,
		       label,
		       snippet(nodes_fts, 2, '<b>', '</b>', '...', 64)
		FROM nodes_fts
		WHERE nodes_fts MATCH ?
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
		if err := rows.Scan(&r.NodeID, &r.Label, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
