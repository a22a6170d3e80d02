package diagramstore

import (
	"context"

	"github.com/DavidROliverBA/bac4-sub000/internal/apperr"
	"github.com/DavidROliverBA/bac4-sub000/internal/model"
)

// ChangeStatus classifies one entity between two snapshots.
type ChangeStatus string

const (
	ChangeAdded     ChangeStatus = "added"
	ChangeRemoved   ChangeStatus = "removed"
	ChangeModified  ChangeStatus = "modified"
	ChangeUnchanged ChangeStatus = "unchanged"
)

// NodeChange is a node's classification in a snapshot comparison.
type NodeChange struct {
	NodeID string       `json:"nodeId"`
	Status ChangeStatus `json:"status"`
}

// EdgeChange is an edge's classification. Edges have no modified state.
type EdgeChange struct {
	EdgeID string       `json:"edgeId"`
	Status ChangeStatus `json:"status"`
}

// Diff is the result of comparing two snapshots of one diagram.
type Diff struct {
	Nodes []NodeChange `json:"nodes"`
	Edges []EdgeChange `json:"edges"`
}

// nodeAppearance is the pair of attributes the comparison looks at.
// Position is deliberately not part of it: panning and dragging must
// not show up as modifications in the timeline view.
type nodeAppearance struct {
	label string
	color string
}

// CompareSnapshots classifies every node and edge between two snapshots
// of the same diagram. Nodes present in both are compared on label and
// color only; edges are classified added/removed/unchanged by identity.
func (s *Store) CompareSnapshots(_ context.Context, path, fromID, toID string) (*Diff, error) {
	d, err := s.Load(path)
	if err != nil {
		return nil, err
	}
	from := d.Snapshot(fromID)
	if from == nil {
		return nil, apperr.NotFound("snapshot", fromID)
	}
	to := d.Snapshot(toID)
	if to == nil {
		return nil, apperr.NotFound("snapshot", toID)
	}
	g, err := s.graph.Load()
	if err != nil {
		return nil, err
	}

	fromNodes := snapshotAppearances(from, g)
	toNodes := snapshotAppearances(to, g)

	diff := &Diff{}
	for id, before := range fromNodes {
		after, ok := toNodes[id]
		switch {
		case !ok:
			diff.Nodes = append(diff.Nodes, NodeChange{NodeID: id, Status: ChangeRemoved})
		case before != after:
			diff.Nodes = append(diff.Nodes, NodeChange{NodeID: id, Status: ChangeModified})
		default:
			diff.Nodes = append(diff.Nodes, NodeChange{NodeID: id, Status: ChangeUnchanged})
		}
	}
	for id := range toNodes {
		if _, ok := fromNodes[id]; !ok {
			diff.Nodes = append(diff.Nodes, NodeChange{NodeID: id, Status: ChangeAdded})
		}
	}

	fromEdges := snapshotEdgeIDs(from)
	toEdges := snapshotEdgeIDs(to)
	for id := range fromEdges {
		if _, ok := toEdges[id]; ok {
			diff.Edges = append(diff.Edges, EdgeChange{EdgeID: id, Status: ChangeUnchanged})
		} else {
			diff.Edges = append(diff.Edges, EdgeChange{EdgeID: id, Status: ChangeRemoved})
		}
	}
	for id := range toEdges {
		if _, ok := fromEdges[id]; !ok {
			diff.Edges = append(diff.Edges, EdgeChange{EdgeID: id, Status: ChangeAdded})
		}
	}
	return diff, nil
}

// snapshotAppearances resolves the comparable attributes of every node
// placed in a snapshot, global and local alike.
func snapshotAppearances(snap *model.Snapshot, g *model.Graph) map[string]nodeAppearance {
	out := make(map[string]nodeAppearance, len(snap.Layout))
	for id := range snap.Layout {
		if model.IsLocalID(id) {
			for _, ln := range snap.LocalNodes {
				if ln.ID == id {
					out[id] = nodeAppearance{label: ln.Label, color: ln.Style.Color}
					break
				}
			}
			continue
		}
		if n := g.Node(id); n != nil {
			out[id] = nodeAppearance{label: n.Label, color: n.Style.Color}
		}
	}
	return out
}

func snapshotEdgeIDs(snap *model.Snapshot) map[string]struct{} {
	out := make(map[string]struct{}, len(snap.Edges)+len(snap.LocalEdges))
	for _, e := range snap.Edges {
		out[e.ID] = struct{}{}
	}
	for _, e := range snap.LocalEdges {
		out[e.ID] = struct{}{}
	}
	return out
}
