// Package navigate resolves parent-child drill-down relationships
// between diagrams.
//
// The diagram view's embedded childLinks map is the single write
// target. The legacy central relationship index is consulted read-only,
// for vaults that have not been migrated yet.
package navigate

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/DavidROliverBA/bac4-sub000/internal/apperr"
	"github.com/DavidROliverBA/bac4-sub000/internal/diagramstore"
	"github.com/DavidROliverBA/bac4-sub000/internal/model"
	"github.com/DavidROliverBA/bac4-sub000/internal/schema"
	"github.com/DavidROliverBA/bac4-sub000/internal/storage"
)

// Resolver answers child/parent/breadcrumb queries and maintains links.
type Resolver struct {
	store    storage.Provider
	locks    *storage.PathLocker
	diagrams *diagramstore.Store
	logger   *slog.Logger
}

// New creates a resolver over the vault.
func New(store storage.Provider, locks *storage.PathLocker, diagrams *diagramstore.Store, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, locks: locks, diagrams: diagrams, logger: logger}
}

var nonWord = regexp.MustCompile(`[^A-Za-z0-9\s_]+`)
var spaces = regexp.MustCompile(`\s+`)

// SanitizeFileName derives a file base name from a node label: strip
// non-alphanumerics, collapse whitespace to underscores, trim leading
// and trailing underscores.
func SanitizeFileName(label string) string {
	s := nonWord.ReplaceAllString(label, "")
	s = spaces.ReplaceAllString(strings.TrimSpace(s), "_")
	return strings.Trim(s, "_")
}

// FindChildDiagram returns the child diagram path linked from the node
// in the parent diagram, or empty when the node has no drill-down.
func (r *Resolver) FindChildDiagram(_ context.Context, parentPath, nodeID string) (string, error) {
	d, err := r.diagrams.Load(parentPath)
	if err != nil {
		return "", err
	}
	if child, ok := d.View.ChildLinks[nodeID]; ok {
		return child, nil
	}
	// Legacy fallback for unmigrated vaults.
	idx, err := schema.ReadRelIndex(r.store.Read)
	if err != nil {
		r.logger.Warn("relationship index unreadable", slog.String("error", err.Error()))
		return "", nil
	}
	return idx.ChildOf(parentPath, nodeID), nil
}

// CreateChildDiagram links a node to a child diagram, creating the
// child document when it does not exist yet. A file already present at
// the derived path is adopted as the existing child rather than
// treated as an error, so repeated calls converge on the same link.
func (r *Resolver) CreateChildDiagram(ctx context.Context, parentPath, nodeID, label string, childType model.DiagramType, suggestedName string) (string, error) {
	base := suggestedName
	if base == "" {
		base = SanitizeFileName(label)
	}
	if base == "" {
		return "", fmt.Errorf("cannot derive a file name from label %q: %w", label, apperr.ErrValidation)
	}
	childPath := path.Join(path.Dir(parentPath), base+storage.DocumentSuffix)
	if childPath == parentPath {
		return "", fmt.Errorf("child path would equal parent path %s: %w", parentPath, apperr.ErrConflict)
	}

	if !r.store.Exists(childPath) {
		if _, err := r.diagrams.Create(ctx, childPath, base, childType); err != nil {
			return "", err
		}
	}

	err := r.locks.With(parentPath, func() error {
		raw, err := r.store.Read(parentPath)
		if err != nil {
			return err
		}
		d, err := schema.DecodeDiagram(raw, parentPath)
		if err != nil {
			return err
		}
		if !d.View.HasNode(nodeID) && !hasLocalNode(d, nodeID) {
			return apperr.NotFound("node", nodeID)
		}
		if d.View.ChildLinks == nil {
			d.View.ChildLinks = make(map[string]string)
		}
		// A node has at most one child link; relinking replaces.
		d.View.ChildLinks[nodeID] = childPath
		out, err := schema.EncodeDiagram(d)
		if err != nil {
			return err
		}
		return r.store.Write(parentPath, out)
	})
	if err != nil {
		return "", err
	}
	return childPath, nil
}

func hasLocalNode(d *model.Diagram, nodeID string) bool {
	for _, snap := range d.Snapshots {
		for _, ln := range snap.LocalNodes {
			if ln.ID == nodeID {
				return true
			}
		}
	}
	return false
}

// NavigateToParent finds the diagram whose view links to currentPath.
// Without an explicit parent pointer this is a vault-wide scan;
// unreadable or malformed siblings are skipped, never fatal.
func (r *Resolver) NavigateToParent(_ context.Context, currentPath string) (string, error) {
	parent := ""
	r.scan(func(p string, d *model.Diagram) bool {
		for _, child := range d.View.ChildLinks {
			if child == currentPath {
				parent = p
				return false
			}
		}
		return true
	})
	if parent != "" {
		return parent, nil
	}
	idx, err := schema.ReadRelIndex(r.store.Read)
	if err != nil {
		r.logger.Warn("relationship index unreadable", slog.String("error", err.Error()))
		return "", nil
	}
	return idx.ParentOf(currentPath), nil
}

// Crumb is one entry in a breadcrumb chain, root first.
type Crumb struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// BuildBreadcrumbs walks the parent chain from currentPath to the root.
// A visited set guards against cycles in a malformed link graph; the
// walk terminates instead of looping.
func (r *Resolver) BuildBreadcrumbs(ctx context.Context, currentPath string) ([]Crumb, error) {
	var chain []Crumb
	visited := make(map[string]struct{})
	p := currentPath
	for p != "" {
		if _, seen := visited[p]; seen {
			r.logger.Warn("breadcrumbs: cycle detected", slog.String("path", p))
			break
		}
		visited[p] = struct{}{}

		name := strings.TrimSuffix(path.Base(p), storage.DocumentSuffix)
		if d, err := r.diagrams.Load(p); err == nil {
			name = d.Metadata.Name
		}
		chain = append([]Crumb{{Path: p, Name: name}}, chain...)

		parent, err := r.NavigateToParent(ctx, p)
		if err != nil {
			return nil, err
		}
		p = parent
	}
	return chain, nil
}

// scan visits every decodable diagram document until fn returns false.
func (r *Resolver) scan(fn func(path string, d *model.Diagram) bool) {
	infos, err := r.store.List("")
	if err != nil {
		r.logger.Warn("navigate scan: list failed", slog.String("error", err.Error()))
		return
	}
	for _, fi := range infos {
		if !strings.HasSuffix(fi.Path, storage.DocumentSuffix) {
			continue
		}
		raw, err := r.store.Read(fi.Path)
		if err != nil {
			r.logger.Warn("navigate scan: read failed",
				slog.String("path", fi.Path), slog.String("error", err.Error()))
			continue
		}
		d, err := schema.DecodeDiagram(raw, fi.Path)
		if err != nil {
			r.logger.Warn("navigate scan: decode failed",
				slog.String("path", fi.Path), slog.String("error", err.Error()))
			continue
		}
		if !fn(fi.Path, d) {
			return
		}
	}
}

// RenameReport records the outcome of a rename fan-out. The rename of
// the file itself succeeded if the report is returned without error;
// FailedRefs lists sibling diagrams whose links could not be updated.
type RenameReport struct {
	OldPath     string   `json:"oldPath"`
	NewPath     string   `json:"newPath"`
	UpdatedRefs []string `json:"updatedRefs"`
	FailedRefs  []string `json:"failedRefs,omitempty"`
}

// RenameDiagram moves a diagram file, refreshes its display name, and
// rewrites every sibling link that pointed at the old path. Sibling
// update failures are reported, not rolled back: cross-document fan-out
// is not transactional over a plain file store.
func (r *Resolver) RenameDiagram(_ context.Context, oldPath, newPath string) (*RenameReport, error) {
	if !strings.HasSuffix(newPath, storage.DocumentSuffix) {
		return nil, apperr.Formatf(newPath, "not a diagram document (want %s suffix)", storage.DocumentSuffix)
	}
	if r.store.Exists(newPath) {
		return nil, fmt.Errorf("target %s already exists: %w", newPath, apperr.ErrConflict)
	}
	if err := r.store.Rename(oldPath, newPath); err != nil {
		return nil, err
	}

	report := &RenameReport{OldPath: oldPath, NewPath: newPath}

	// Refresh the renamed diagram's own display name.
	err := r.locks.With(newPath, func() error {
		raw, err := r.store.Read(newPath)
		if err != nil {
			return err
		}
		d, err := schema.DecodeDiagram(raw, newPath)
		if err != nil {
			return err
		}
		d.Metadata.Name = strings.TrimSuffix(path.Base(newPath), storage.DocumentSuffix)
		out, err := schema.EncodeDiagram(d)
		if err != nil {
			return err
		}
		return r.store.Write(newPath, out)
	})
	if err != nil {
		report.FailedRefs = append(report.FailedRefs, newPath+": "+err.Error())
	}

	// Fan out to every sibling that linked to the old path.
	var siblings []string
	r.scan(func(p string, d *model.Diagram) bool {
		for _, child := range d.View.ChildLinks {
			if child == oldPath {
				siblings = append(siblings, p)
				break
			}
		}
		return true
	})
	for _, p := range siblings {
		err := r.locks.With(p, func() error {
			raw, err := r.store.Read(p)
			if err != nil {
				return err
			}
			d, err := schema.DecodeDiagram(raw, p)
			if err != nil {
				return err
			}
			for nodeID, child := range d.View.ChildLinks {
				if child == oldPath {
					d.View.ChildLinks[nodeID] = newPath
				}
			}
			out, err := schema.EncodeDiagram(d)
			if err != nil {
				return err
			}
			return r.store.Write(p, out)
		})
		if err != nil {
			r.logger.Warn("rename fan-out failed",
				slog.String("path", p), slog.String("error", err.Error()))
			report.FailedRefs = append(report.FailedRefs, p+": "+err.Error())
			continue
		}
		report.UpdatedRefs = append(report.UpdatedRefs, p)
	}
	return report, nil
}

// Orphans returns diagram paths that no other diagram links to and
// that themselves link to nothing, plus links that point at missing
// files (broken links).
type Orphans struct {
	BrokenLinks []BrokenLink `json:"brokenLinks"`
}

// BrokenLink is a drill-down link whose target file is missing.
type BrokenLink struct {
	DiagramPath string `json:"diagramPath"`
	NodeID      string `json:"nodeId"`
	Target      string `json:"target"`
}

// FindBrokenLinks scans the vault for child links whose target no
// longer exists.
func (r *Resolver) FindBrokenLinks(_ context.Context) (*Orphans, error) {
	out := &Orphans{}
	r.scan(func(p string, d *model.Diagram) bool {
		for nodeID, child := range d.View.ChildLinks {
			if !r.store.Exists(child) {
				out.BrokenLinks = append(out.BrokenLinks, BrokenLink{
					DiagramPath: p, NodeID: nodeID, Target: child,
				})
			}
		}
		return true
	})
	return out, nil
}
