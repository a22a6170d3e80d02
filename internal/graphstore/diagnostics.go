package graphstore

import (
	"context"
	"log/slog"

	"github.com/DavidROliverBA/bac4-sub000/internal/apperr"
	"github.com/DavidROliverBA/bac4-sub000/internal/model"
	"github.com/DavidROliverBA/bac4-sub000/internal/schema"
)

// UniquenessResult is the outcome of a label uniqueness check. When the
// label collides, ExistingNode identifies the holder and UsageCount is
// the number of diagram views referencing it.
type UniquenessResult struct {
	IsUnique     bool        `json:"isUnique"`
	ExistingNode *model.Node `json:"existingNode,omitempty"`
	UsageCount   int         `json:"usageCount,omitempty"`
}

// CheckNameUniqueness is the invariant-enforcement primitive behind
// node create and rename. excludeID skips the node being renamed.
func (s *Store) CheckNameUniqueness(_ context.Context, label, excludeID string) (*UniquenessResult, error) {
	g, err := s.Load()
	if err != nil {
		return nil, err
	}
	existing := g.NodeByLabel(label)
	if existing == nil || existing.ID == excludeID {
		return &UniquenessResult{IsUnique: true}, nil
	}
	res := &UniquenessResult{IsUnique: false}
	n := *existing
	res.ExistingNode = &n

	s.scanDiagrams(func(path string, d *model.Diagram) {
		if d.View.HasNode(existing.ID) {
			res.UsageCount++
		}
	})
	return res, nil
}

// NodeDeletionInfo is the preflight result callers should consult
// before committing to an irreversible DeleteNode.
type NodeDeletionInfo struct {
	NodeID           string       `json:"nodeId"`
	AffectedDiagrams []string     `json:"affectedDiagrams"`
	AffectedEdges    []model.Edge `json:"affectedEdges"`
}

// GetNodeDeletionInfo reports which diagrams and edges a deletion of
// the node would touch, without mutating anything.
func (s *Store) GetNodeDeletionInfo(_ context.Context, id string) (*NodeDeletionInfo, error) {
	g, err := s.Load()
	if err != nil {
		return nil, err
	}
	if g.Node(id) == nil {
		return nil, apperr.NotFound("node", id)
	}
	info := &NodeDeletionInfo{NodeID: id}
	for _, e := range g.Edges {
		if e.Source == id || e.Target == id {
			info.AffectedEdges = append(info.AffectedEdges, e)
		}
	}
	s.scanDiagrams(func(path string, d *model.Diagram) {
		if d.View.HasNode(id) {
			info.AffectedDiagrams = append(info.AffectedDiagrams, path)
		}
	})
	return info, nil
}

// GetOrphanedNodes returns nodes no diagram view references.
func (s *Store) GetOrphanedNodes(_ context.Context) ([]model.Node, error) {
	g, err := s.Load()
	if err != nil {
		return nil, err
	}
	used := make(map[string]struct{})
	s.scanDiagrams(func(path string, d *model.Diagram) {
		for _, id := range d.View.Nodes {
			used[id] = struct{}{}
		}
	})
	var out []model.Node
	for _, n := range g.Nodes {
		if _, ok := used[n.ID]; !ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// GetOrphanedEdges returns edges whose source or target no longer
// exists in the node map.
func (s *Store) GetOrphanedEdges(_ context.Context) ([]model.Edge, error) {
	g, err := s.Load()
	if err != nil {
		return nil, err
	}
	return orphanedEdges(g), nil
}

// CleanupOrphanedEdges removes every orphaned edge and reports how many
// were removed.
func (s *Store) CleanupOrphanedEdges(_ context.Context) (int, error) {
	removed := 0
	err := s.mutate(func(g *model.Graph) error {
		orphans := orphanedEdges(g)
		if len(orphans) == 0 {
			return nil
		}
		dead := make(map[string]struct{}, len(orphans))
		for _, e := range orphans {
			dead[e.ID] = struct{}{}
		}
		edges := g.Edges[:0]
		for _, e := range g.Edges {
			if _, ok := dead[e.ID]; ok {
				removed++
				continue
			}
			edges = append(edges, e)
		}
		g.Edges = edges
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func orphanedEdges(g *model.Graph) []model.Edge {
	var out []model.Edge
	for _, e := range g.Edges {
		if g.Node(e.Source) == nil || g.Node(e.Target) == nil {
			out = append(out, e)
		}
	}
	return out
}

// scanDiagrams visits every decodable diagram document. Diagnostic
// scans never fail on a single malformed sibling file; they skip it.
func (s *Store) scanDiagrams(fn func(path string, d *model.Diagram)) {
	infos, err := listDiagramFiles(s.store)
	if err != nil {
		s.logger.Warn("diagram scan: list failed", slog.String("error", err.Error()))
		return
	}
	for _, fi := range infos {
		raw, err := s.store.Read(fi.Path)
		if err != nil {
			s.logger.Warn("diagram scan: read failed",
				slog.String("path", fi.Path), slog.String("error", err.Error()))
			continue
		}
		d, err := schema.DecodeDiagram(raw, fi.Path)
		if err != nil {
			s.logger.Warn("diagram scan: decode failed",
				slog.String("path", fi.Path), slog.String("error", err.Error()))
			continue
		}
		fn(fi.Path, d)
	}
}
