package index

import (
	"fmt"
	"time"
)

// DiagramRow represents a row in the diagrams table.
type DiagramRow struct {
	Path      string
	Name      string
	Type      string
	Checksum  string
	UpdatedAt time.Time
}

// NodeRow represents a row in the nodes table.
type NodeRow struct {
	ID          string
	Label       string
	Type        string
	Description string
}

// SearchResult represents one search hit: a node label match together
// with its global ID.
type SearchResult struct {
	NodeID  string
	Label   string
	Snippet string
}

// UpsertDiagram replaces a diagram's row, node references, and child
// links within a transaction.
func (db *DB) UpsertDiagram(d DiagramRow, nodeIDs []string, childLinks map[string]string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO diagrams (path, name, type, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name       = excluded.name,
			type       = excluded.type,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, d.Path, d.Name, d.Type, d.Checksum, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert diagram: %w", err)
	}

	_, _ = tx.Exec(`DELETE FROM node_refs WHERE diagram_path = ?`, d.Path)
	if len(nodeIDs) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO node_refs (diagram_path, node_id) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare ref insert: %w", err)
		}
		defer stmt.Close()
		for _, id := range nodeIDs {
			if _, err := stmt.Exec(d.Path, id); err != nil {
				return fmt.Errorf("index: insert ref: %w", err)
			}
		}
	}

	_, _ = tx.Exec(`DELETE FROM child_links WHERE parent_path = ?`, d.Path)
	if len(childLinks) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO child_links (parent_path, node_id, child_path) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for nodeID, child := range childLinks {
			if _, err := stmt.Exec(d.Path, nodeID, child); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDiagram removes a diagram and its references.
func (db *DB) DeleteDiagram(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM node_refs WHERE diagram_path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM child_links WHERE parent_path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM diagrams WHERE path = ?`, path)

	return tx.Commit()
}

// ReplaceNodes swaps the full node table (and FTS mirror) for the
// current global graph contents, inside one transaction.
func (db *DB) ReplaceNodes(nodes []NodeRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM nodes`)
	ftsClear(tx)
	if len(nodes) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO nodes (id, label, type, description) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare node insert: %w", err)
		}
		defer stmt.Close()
		for _, n := range nodes {
			if _, err := stmt.Exec(n.ID, n.Label, n.Type, n.Description); err != nil {
				return fmt.Errorf("index: insert node: %w", err)
			}
			if err := ftsUpsert(tx, n.ID, n.Label, n.Description); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// ListDiagrams returns diagram rows ordered by most recent update.
func (db *DB) ListDiagrams(limit, offset int) ([]DiagramRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM diagrams`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count diagrams: %w", err)
	}
	rows, err := db.conn.Query(`
		SELECT path, name, type, checksum, updated_at
		FROM diagrams ORDER BY updated_at DESC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list diagrams: %w", err)
	}
	defer rows.Close()

	var out []DiagramRow
	for rows.Next() {
		var d DiagramRow
		if err := rows.Scan(&d.Path, &d.Name, &d.Type, &d.Checksum, &d.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// DiagramsReferencing returns paths of diagrams whose view includes the node.
func (db *DB) DiagramsReferencing(nodeID string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT diagram_path FROM node_refs WHERE node_id = ?`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("index: refs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ParentsOf returns parent diagram paths linking to the child path.
func (db *DB) ParentsOf(childPath string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT parent_path FROM child_links WHERE child_path = ?`, childPath)
	if err != nil {
		return nil, fmt.Errorf("index: parents: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AllChecksums returns every indexed diagram path with its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM diagrams`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
