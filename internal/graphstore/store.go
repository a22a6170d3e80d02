// Package graphstore owns the global graph document: the single source
// of truth for every node and edge in the vault.
//
// Every mutator is a read-modify-write against one JSON document and is
// serialized through a per-path lock. Validation happens in memory
// first; the document is written only on success, so a failed operation
// leaves the on-disk state unchanged.
package graphstore

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/DavidROliverBA/bac4-sub000/internal/apperr"
	"github.com/DavidROliverBA/bac4-sub000/internal/model"
	"github.com/DavidROliverBA/bac4-sub000/internal/schema"
	"github.com/DavidROliverBA/bac4-sub000/internal/storage"
)

// GraphPath is the well-known vault-root path of the global graph document.
const GraphPath = "graph.json"

// Store coordinates reads and writes of the global graph document.
type Store struct {
	store  storage.Provider
	locks  *storage.PathLocker
	logger *slog.Logger
	now    func() time.Time
}

// New creates a graph store over the vault provider.
func New(store storage.Provider, locks *storage.PathLocker, logger *slog.Logger) *Store {
	return &Store{store: store, locks: locks, logger: logger, now: time.Now}
}

// Load reads the global graph document, lazily initializing an empty
// graph when the file does not exist yet.
func (s *Store) Load() (*model.Graph, error) {
	raw, err := s.store.Read(GraphPath)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return &model.Graph{}, nil
		}
		return nil, err
	}
	return schema.DecodeGraph(raw, GraphPath)
}

func (s *Store) save(g *model.Graph) error {
	raw, err := schema.EncodeGraph(g)
	if err != nil {
		return err
	}
	return s.store.Write(GraphPath, raw)
}

// mutate runs fn against the loaded graph under the document lock and
// persists the result when fn succeeds.
func (s *Store) mutate(fn func(g *model.Graph) error) error {
	return s.locks.With(GraphPath, func() error {
		g, err := s.Load()
		if err != nil {
			return err
		}
		if err := fn(g); err != nil {
			return err
		}
		return s.save(g)
	})
}

// GetNode returns a copy of the node with the given ID.
func (s *Store) GetNode(_ context.Context, id string) (*model.Node, error) {
	g, err := s.Load()
	if err != nil {
		return nil, err
	}
	n := g.Node(id)
	if n == nil {
		return nil, apperr.NotFound("node", id)
	}
	out := *n
	return &out, nil
}

// CreateNode validates the draft, enforces label uniqueness, generates
// identity and timestamps, and appends the node to the graph.
func (s *Store) CreateNode(_ context.Context, draft model.NodeDraft) (*model.Node, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	var created model.Node
	err := s.mutate(func(g *model.Graph) error {
		if existing := g.NodeByLabel(draft.Label); existing != nil {
			return &apperr.DuplicateNameError{Label: draft.Label, ExistingID: existing.ID}
		}
		now := s.now()
		created = model.Node{
			ID:          model.NewID(),
			Type:        draft.Type,
			Label:       draft.Label,
			Description: draft.Description,
			Technology:  draft.Technology,
			Team:        draft.Team,
			Knowledge:   draft.Knowledge,
			Metrics:     draft.Metrics,
			Style:       draft.Style,
			Created:     now,
			Updated:     now,
		}
		g.Nodes = append(g.Nodes, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// NodePatch carries the fields UpdateNode may change. Nil pointers
// leave the current value untouched.
type NodePatch struct {
	Type        *model.NodeType     `json:"type,omitempty"`
	Label       *string             `json:"label,omitempty"`
	Description *string             `json:"description,omitempty"`
	Technology  *string             `json:"technology,omitempty"`
	Team        *string             `json:"team,omitempty"`
	Knowledge   *model.Knowledge    `json:"knowledge,omitempty"`
	Metrics     *map[string]float64 `json:"metrics,omitempty"`
	Style       *model.Style        `json:"style,omitempty"`
}

// UpdateNode applies a patch. A label change re-runs the uniqueness
// check excluding the node's own ID.
func (s *Store) UpdateNode(_ context.Context, id string, patch NodePatch) (*model.Node, error) {
	var updated model.Node
	err := s.mutate(func(g *model.Graph) error {
		n := g.Node(id)
		if n == nil {
			return apperr.NotFound("node", id)
		}
		if patch.Label != nil && *patch.Label != n.Label {
			if existing := g.NodeByLabel(*patch.Label); existing != nil && existing.ID != id {
				return &apperr.DuplicateNameError{Label: *patch.Label, ExistingID: existing.ID}
			}
			n.Label = *patch.Label
		}
		if patch.Type != nil {
			n.Type = *patch.Type
		}
		if patch.Description != nil {
			n.Description = *patch.Description
		}
		if patch.Technology != nil {
			n.Technology = *patch.Technology
		}
		if patch.Team != nil {
			n.Team = *patch.Team
		}
		if patch.Knowledge != nil {
			n.Knowledge = patch.Knowledge
		}
		if patch.Metrics != nil {
			n.Metrics = *patch.Metrics
		}
		if patch.Style != nil {
			n.Style = *patch.Style
		}
		n.Updated = s.now()
		updated = *n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeletionReport summarizes what DeleteNode removed and which fan-out
// cleanups failed. Fan-out failures do not fail the deletion itself.
type DeletionReport struct {
	RemovedEdges    int      `json:"removedEdges"`
	CleanedDiagrams []string `json:"cleanedDiagrams"`
	FanOutErrors    []string `json:"fanOutErrors,omitempty"`
}

// DeleteNode removes the node and cascades: every edge touching it is
// deleted from the graph, and every diagram view referencing it is
// cleaned (node reference, layout entries, drill-down link). The graph
// mutation is atomic; the cross-document cleanup is best-effort and
// reported, never silently swallowed.
func (s *Store) DeleteNode(ctx context.Context, id string) (*DeletionReport, error) {
	report := &DeletionReport{}
	err := s.mutate(func(g *model.Graph) error {
		if g.Node(id) == nil {
			return apperr.NotFound("node", id)
		}
		nodes := g.Nodes[:0]
		for _, n := range g.Nodes {
			if n.ID != id {
				nodes = append(nodes, n)
			}
		}
		g.Nodes = nodes

		edges := g.Edges[:0]
		for _, e := range g.Edges {
			if e.Source == id || e.Target == id {
				report.RemovedEdges++
				continue
			}
			edges = append(edges, e)
		}
		g.Edges = edges
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cleanDiagramReferences(ctx, id, report)
	return report, nil
}

// cleanDiagramReferences removes the deleted node from every diagram
// document. Unreadable or malformed diagrams are recorded and skipped.
func (s *Store) cleanDiagramReferences(_ context.Context, id string, report *DeletionReport) {
	infos, err := listDiagramFiles(s.store)
	if err != nil {
		report.FanOutErrors = append(report.FanOutErrors, "list diagrams: "+err.Error())
		return
	}
	for _, fi := range infos {
		path := fi.Path
		err := s.locks.With(path, func() error {
			raw, err := s.store.Read(path)
			if err != nil {
				return err
			}
			d, err := schema.DecodeDiagram(raw, path)
			if err != nil {
				return err
			}
			if !stripNodeFromDiagram(d, id) {
				return nil
			}
			out, err := schema.EncodeDiagram(d)
			if err != nil {
				return err
			}
			if err := s.store.Write(path, out); err != nil {
				return err
			}
			report.CleanedDiagrams = append(report.CleanedDiagrams, path)
			return nil
		})
		if err != nil {
			s.logger.Warn("delete node: diagram cleanup failed",
				slog.String("path", path), slog.String("error", err.Error()))
			report.FanOutErrors = append(report.FanOutErrors, path+": "+err.Error())
		}
	}
}

// stripNodeFromDiagram removes every reference to id and reports
// whether the document changed.
func stripNodeFromDiagram(d *model.Diagram, id string) bool {
	changed := false
	nodes := d.View.Nodes[:0]
	for _, n := range d.View.Nodes {
		if n == id {
			changed = true
			continue
		}
		nodes = append(nodes, n)
	}
	d.View.Nodes = nodes
	if _, ok := d.View.ChildLinks[id]; ok {
		delete(d.View.ChildLinks, id)
		changed = true
	}
	for i := range d.Snapshots {
		snap := &d.Snapshots[i]
		if _, ok := snap.Layout[id]; ok {
			delete(snap.Layout, id)
			changed = true
		}
		edges := snap.Edges[:0]
		for _, e := range snap.Edges {
			if e.Source == id || e.Target == id {
				changed = true
				continue
			}
			edges = append(edges, e)
		}
		snap.Edges = edges
		ledges := snap.LocalEdges[:0]
		for _, e := range snap.LocalEdges {
			if e.Source == id || e.Target == id {
				changed = true
				continue
			}
			ledges = append(ledges, e)
		}
		snap.LocalEdges = ledges
	}
	return changed
}

// CreateEdge validates endpoints and appends an edge to the graph.
func (s *Store) CreateEdge(_ context.Context, draft model.EdgeDraft) (*model.Edge, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	var created model.Edge
	err := s.mutate(func(g *model.Graph) error {
		if g.Node(draft.Source) == nil {
			return apperr.NotFound("node", draft.Source)
		}
		if g.Node(draft.Target) == nil {
			return apperr.NotFound("node", draft.Target)
		}
		created = model.Edge{
			ID:        model.NewID(),
			Source:    draft.Source,
			Target:    draft.Target,
			Type:      draft.Type,
			Label:     draft.Label,
			Direction: draft.Direction,
			Style:     draft.Style,
		}
		g.Edges = append(g.Edges, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteEdge removes one edge by ID.
func (s *Store) DeleteEdge(_ context.Context, id string) error {
	return s.mutate(func(g *model.Graph) error {
		for i, e := range g.Edges {
			if e.ID == id {
				g.Edges = append(g.Edges[:i], g.Edges[i+1:]...)
				return nil
			}
		}
		return apperr.NotFound("edge", id)
	})
}

// listDiagramFiles narrows the vault listing to diagram view documents.
func listDiagramFiles(store storage.Provider) ([]storage.FileInfo, error) {
	all, err := store.List("")
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, fi := range all {
		if strings.HasSuffix(fi.Path, storage.DocumentSuffix) {
			out = append(out, fi)
		}
	}
	return out, nil
}
