package migrate

import (
	"fmt"
	"time"

	"github.com/DavidROliverBA/bac4-sub000/internal/model"
	"github.com/DavidROliverBA/bac4-sub000/internal/schema"
)

// conversion is the in-memory outcome of converting one legacy
// document: the rewritten diagram, the nodes and edges it contributes
// to the global graph, and any heuristic-inference warnings.
type conversion struct {
	diagram  *model.Diagram
	warnings []string
}

// convert rewrites a legacy document into the current generation
// against the given graph. Nodes are resolved into global identity by
// label: a legacy node whose label already names a global node reuses
// that node; otherwise a new global node is appended to g. Edge and
// layout references are rewritten from per-diagram IDs to global IDs.
func convert(doc *schema.LegacyDocument, path string, g *model.Graph, now time.Time) (*conversion, error) {
	out := &conversion{}

	dtype, conf := InferDiagramType(doc.RawDiagramType, path)
	if conf == ConfidenceLow {
		out.warnings = append(out.warnings,
			fmt.Sprintf("%s: diagram type %q could not be inferred, defaulted to %s, review manually", path, doc.RawDiagramType, dtype))
	}

	// Resolve every legacy node into global identity.
	idMap := make(map[string]string, len(doc.Nodes))
	childLinks := make(map[string]string)
	for _, ln := range doc.Nodes {
		label := ln.Label
		if label == "" {
			label = ln.ID
		}
		var globalID string
		if existing := g.NodeByLabel(label); existing != nil {
			globalID = existing.ID
		} else {
			ntype, nconf := InferNodeType(ln.RawType)
			if nconf == ConfidenceLow {
				out.warnings = append(out.warnings,
					fmt.Sprintf("%s: node %q type %q could not be inferred, defaulted to %s, review manually", path, label, ln.RawType, ntype))
			}
			node := model.Node{
				ID:          model.NewID(),
				Type:        ntype,
				Label:       label,
				Description: ln.Description,
				Technology:  ln.Technology,
				Style:       model.Style{Color: ln.Color},
				Created:     now,
				Updated:     now,
			}
			g.Nodes = append(g.Nodes, node)
			globalID = node.ID
		}
		idMap[ln.ID] = globalID
		if ln.LinkedDiagramPath != "" {
			childLinks[globalID] = ln.LinkedDiagramPath
		}
	}

	mapID := func(id string) (string, error) {
		if mapped, ok := idMap[id]; ok {
			return mapped, nil
		}
		// Already-global IDs pass through (mixed-generation vaults).
		if g.Node(id) != nil {
			return id, nil
		}
		return "", fmt.Errorf("reference to unknown node %q", id)
	}

	convertEdges := func(edges []schema.LegacyEdge, register bool) ([]model.Edge, error) {
		var converted []model.Edge
		for _, le := range edges {
			src, err := mapID(le.Source)
			if err != nil {
				return nil, fmt.Errorf("edge %s: %w", le.ID, err)
			}
			dst, err := mapID(le.Target)
			if err != nil {
				return nil, fmt.Errorf("edge %s: %w", le.ID, err)
			}
			e := model.Edge{
				ID:     model.NewID(),
				Source: src,
				Target: dst,
				Type:   InferEdgeType(le.RawType),
				Label:  le.Label,
			}
			converted = append(converted, e)
			if register {
				g.Edges = append(g.Edges, e)
			}
		}
		return converted, nil
	}

	edges, err := convertEdges(doc.Edges, true)
	if err != nil {
		return nil, err
	}

	view := model.View{Nodes: make([]string, 0, len(doc.Nodes)), ChildLinks: childLinks}
	seen := make(map[string]struct{})
	baseLayout := model.Layout{}
	for _, ln := range doc.Nodes {
		gid := idMap[ln.ID]
		if _, dup := seen[gid]; !dup {
			seen[gid] = struct{}{}
			view.Nodes = append(view.Nodes, gid)
		}
		baseLayout[gid] = ln.Pos
	}
	if len(childLinks) == 0 {
		view.ChildLinks = nil
	}

	var snapshots []model.Snapshot
	currentID := ""
	if len(doc.Snapshots) == 0 {
		snap := model.Snapshot{
			ID:     model.NewID(),
			Label:  "Current",
			Layout: baseLayout,
			Edges:  edges,
		}
		snapshots = []model.Snapshot{snap}
		currentID = snap.ID
	} else {
		for _, ls := range doc.Snapshots {
			layout := model.Layout{}
			for id, pos := range ls.Layout {
				gid, err := mapID(id)
				if err != nil {
					return nil, fmt.Errorf("snapshot %q layout: %w", ls.Label, err)
				}
				layout[gid] = pos
			}
			snapEdges, err := convertEdges(ls.Edges, false)
			if err != nil {
				return nil, fmt.Errorf("snapshot %q: %w", ls.Label, err)
			}
			snap := model.Snapshot{
				ID:          model.NewID(),
				Label:       ls.Label,
				Description: ls.Description,
				Layout:      layout,
				Edges:       snapEdges,
			}
			if ls.Timestamp != "" {
				if t, terr := time.Parse(time.RFC3339, ls.Timestamp); terr == nil {
					snap.Timestamp = &t
				}
			}
			if ls.ID == doc.CurrentSnapshotID {
				currentID = snap.ID
			}
			snapshots = append(snapshots, snap)
		}
		if currentID == "" {
			currentID = snapshots[0].ID
		}
	}

	name := doc.Name
	if name == "" {
		name = path
	}
	out.diagram = &model.Diagram{
		Metadata:          model.Metadata{Name: name, Type: dtype, Created: now, Updated: now},
		View:              view,
		Snapshots:         snapshots,
		CurrentSnapshotID: currentID,
	}
	return out, nil
}
