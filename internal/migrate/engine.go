// Package migrate rewrites legacy-generation diagram documents into
// the current global-graph generation.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/DavidROliverBA/bac4-sub000/internal/apperr"
	"github.com/DavidROliverBA/bac4-sub000/internal/checksum"
	"github.com/DavidROliverBA/bac4-sub000/internal/graphstore"
	"github.com/DavidROliverBA/bac4-sub000/internal/model"
	"github.com/DavidROliverBA/bac4-sub000/internal/schema"
	"github.com/DavidROliverBA/bac4-sub000/internal/storage"
)

// Options controls a migration run.
type Options struct {
	// DryRun performs detection, conversion, and validation without
	// writing anything, so an operator can preview the blast radius.
	DryRun bool
	// Backup snapshots the original bytes to a version-tagged sibling
	// before overwriting.
	Backup bool
}

// Status classifies one file's outcome.
type Status string

const (
	StatusMigrated Status = "migrated"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// FileResult is the per-file entry in a migration report.
type FileResult struct {
	Path        string         `json:"path"`
	Status      Status         `json:"status"`
	FromVersion schema.Version `json:"fromVersion,omitempty"`
	Error       string         `json:"error,omitempty"`
	Warnings    []string       `json:"warnings,omitempty"`
}

// Report is the output contract of a batch migration.
type Report struct {
	Total    int          `json:"total"`
	Migrated int          `json:"migrated"`
	Skipped  int          `json:"skipped"`
	Failed   int          `json:"failed"`
	Files    []FileResult `json:"files"`
	DryRun   bool         `json:"dryRun"`
}

// Engine converts legacy documents and maintains backups.
type Engine struct {
	store   storage.Provider
	locks   *storage.PathLocker
	graph   *graphstore.Store
	logger  *slog.Logger
	now     func() time.Time
	running atomic.Bool
}

// New creates a migration engine over the vault.
func New(store storage.Provider, locks *storage.PathLocker, graph *graphstore.Store, logger *slog.Logger) *Engine {
	return &Engine{store: store, locks: locks, graph: graph, logger: logger, now: time.Now}
}

// BackupPath derives the version-tagged sibling path holding the
// original bytes of a migrated file.
func BackupPath(path string, from schema.Version) string {
	return path + ".v" + string(from) + ".bak"
}

// MigrateFile converts one document. A document already at the current
// version is classified skipped and left byte-identical. Conversion is
// validated against the target schema before anything is written; on
// validation failure nothing is persisted and the specific broken
// references are surfaced.
func (e *Engine) MigrateFile(_ context.Context, path string, opts Options) FileResult {
	res := FileResult{Path: path}

	raw, err := e.store.Read(path)
	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		return res
	}

	doc, ver, err := schema.DecodeLegacy(raw, path, e.store.Read)
	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		return res
	}
	res.FromVersion = ver
	if ver == schema.Current {
		res.Status = StatusSkipped
		return res
	}

	err = e.locks.With(graphstore.GraphPath, func() error {
		g, err := e.graph.Load()
		if err != nil {
			return err
		}
		// Convert against a working copy so a failed validation leaves
		// the in-memory graph untouched too.
		work := &model.Graph{
			Nodes: append([]model.Node(nil), g.Nodes...),
			Edges: append([]model.Edge(nil), g.Edges...),
		}
		conv, err := convert(doc, path, work, e.now())
		if err != nil {
			return err
		}
		res.Warnings = conv.warnings

		if err := schema.ValidateGraph(work, graphstore.GraphPath); err != nil {
			return err
		}
		if err := schema.ValidateDiagram(conv.diagram, work, path); err != nil {
			return err
		}
		if opts.DryRun {
			return nil
		}

		if opts.Backup {
			if err := e.store.Write(BackupPath(path, ver), raw); err != nil {
				return err
			}
			if doc.NodeFile != "" {
				if sib, err := e.store.Read(doc.NodeFile); err == nil {
					if err := e.store.Write(BackupPath(doc.NodeFile, ver), sib); err != nil {
						return err
					}
				}
			}
		}

		// Graph first, so the view never references a missing node. A
		// conversion that resolved every node and edge into existing
		// identity leaves the graph byte-identical; skip the rewrite.
		graphRaw, err := schema.EncodeGraph(work)
		if err != nil {
			return err
		}
		changed, err := e.Changed(graphstore.GraphPath, graphRaw)
		if err != nil {
			return err
		}
		if changed {
			if err := e.store.Write(graphstore.GraphPath, graphRaw); err != nil {
				return err
			}
		}
		diagRaw, err := schema.EncodeDiagram(conv.diagram)
		if err != nil {
			return err
		}
		if err := e.store.Write(path, diagRaw); err != nil {
			return err
		}
		// The split-generation node file is now absorbed into the
		// global graph; drop the derived artifact.
		if doc.NodeFile != "" {
			if err := e.store.Delete(doc.NodeFile); err != nil && !errors.Is(err, apperr.ErrNotFound) {
				e.logger.Warn("migrate: stale node file not removed",
					slog.String("path", doc.NodeFile), slog.String("error", err.Error()))
			}
		}
		return nil
	})
	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		return res
	}
	res.Status = StatusMigrated
	return res
}

// MigrateVault processes every candidate document independently. One
// file's failure is recorded and does not abort the batch. Two batch
// migrations never run concurrently on the same vault.
func (e *Engine) MigrateVault(ctx context.Context, opts Options) (*Report, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("a migration is already in progress: %w", apperr.ErrConflict)
	}
	defer e.running.Store(false)

	infos, err := e.store.List("")
	if err != nil {
		return nil, err
	}

	// Split-generation node files are migrated through their view
	// document, never on their own. The nodeFile field may point at any
	// path, so collect the references up front and keep them out of the
	// candidate set.
	siblings := make(map[string]bool)
	for _, fi := range infos {
		if !candidate(fi.Path) {
			continue
		}
		raw, err := e.store.Read(fi.Path)
		if err != nil {
			continue
		}
		if ref := schema.NodeFileRef(raw); ref != "" {
			siblings[ref] = true
		}
	}

	report := &Report{DryRun: opts.DryRun}
	for _, fi := range infos {
		if !candidate(fi.Path) || siblings[fi.Path] {
			continue
		}
		if ctx.Err() != nil {
			// Stop issuing new per-file migrations; what is done stays done.
			break
		}
		report.Total++
		res := e.MigrateFile(ctx, fi.Path, opts)
		report.Files = append(report.Files, res)
		switch res.Status {
		case StatusMigrated:
			report.Migrated++
		case StatusSkipped:
			report.Skipped++
		case StatusFailed:
			report.Failed++
			e.logger.Warn("migrate: file failed",
				slog.String("path", fi.Path), slog.String("error", res.Error))
		}
	}
	e.logger.Info("migration batch finished",
		slog.Int("total", report.Total),
		slog.Int("migrated", report.Migrated),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		slog.Bool("dry_run", opts.DryRun))
	return report, nil
}

// candidate reports whether a vault file is a migratable diagram
// document. The global graph, the relationship index, split-generation
// node siblings, and backups are not candidates themselves.
func candidate(path string) bool {
	if path == graphstore.GraphPath || path == schema.RelIndexPath {
		return false
	}
	if strings.HasSuffix(path, ".bak") {
		return false
	}
	if strings.HasSuffix(path, storage.GraphSuffix) {
		return false
	}
	return strings.HasSuffix(path, ".json")
}

// Rollback restores a file from its version-tagged backup: the
// original bytes come back exactly, and the backup is consumed. Global
// graph contributions from the rolled-back migration are not unwound;
// orphan cleanup handles nodes that end up unreferenced.
func (e *Engine) Rollback(_ context.Context, path string, from schema.Version) error {
	bak := BackupPath(path, from)
	raw, err := e.store.Read(bak)
	if err != nil {
		return err
	}
	if err := e.store.Write(path, raw); err != nil {
		return err
	}
	if err := e.store.Delete(bak); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return nil
}

// Changed reports whether writing next would alter the file, using a
// checksum comparison. MigrateFile uses it to keep the global graph
// untouched when a conversion contributes nothing new to it.
func (e *Engine) Changed(path string, next []byte) (bool, error) {
	raw, err := e.store.Read(path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return true, nil
		}
		return false, err
	}
	return checksum.Sum(raw) != checksum.Sum(next), nil
}
