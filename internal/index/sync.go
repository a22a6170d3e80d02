package index

import (
	"log/slog"
	"strings"

	"github.com/DavidROliverBA/bac4-sub000/internal/checksum"
	"github.com/DavidROliverBA/bac4-sub000/internal/graphstore"
	"github.com/DavidROliverBA/bac4-sub000/internal/schema"
	"github.com/DavidROliverBA/bac4-sub000/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed diagram documents are decoded and upserted
//   - documents removed from disk are deleted from the index
//   - the node table is replaced from the global graph document
//
// Malformed documents are skipped with a warning; the index never
// blocks startup on one bad file.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		if !strings.HasSuffix(m.Path, storage.DocumentSuffix) {
			continue
		}
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexDiagram(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDiagram(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return syncGraph(db, store, logger)
}

// syncGraph replaces the node table from the global graph document.
func syncGraph(db *DB, store storage.Provider, logger *slog.Logger) error {
	raw, err := store.Read(graphstore.GraphPath)
	if err != nil {
		// No graph document yet; an empty vault is fine.
		return db.ReplaceNodes(nil)
	}
	g, err := schema.DecodeGraph(raw, graphstore.GraphPath)
	if err != nil {
		logger.Warn("sync: graph decode failed", slog.String("error", err.Error()))
		return nil
	}
	rows := make([]NodeRow, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		rows = append(rows, NodeRow{
			ID:          n.ID,
			Label:       n.Label,
			Type:        string(n.Type),
			Description: n.Description + " " + n.Technology,
		})
	}
	return db.ReplaceNodes(rows)
}

// indexDiagram decodes a diagram document and upserts it into the DB.
func indexDiagram(db *DB, path string, data []byte) error {
	d, err := schema.DecodeDiagram(data, path)
	if err != nil {
		return err
	}
	row := DiagramRow{
		Path:      path,
		Name:      d.Metadata.Name,
		Type:      string(d.Metadata.Type),
		Checksum:  checksum.Sum(data),
		UpdatedAt: d.Metadata.Updated,
	}
	return db.UpsertDiagram(row, d.View.Nodes, d.View.ChildLinks)
}
