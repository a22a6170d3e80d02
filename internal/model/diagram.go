package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Position is a node's placement and size within one snapshot's layout.
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Layout maps a node ID (global or local) to its position.
type Layout map[string]Position

// Clone deep-copies the layout.
func (l Layout) Clone() Layout {
	out := make(Layout, len(l))
	for id, p := range l {
		out[id] = p
	}
	return out
}

// LocalNode is a snapshot-scoped sketch node, not yet promoted to the
// global graph. Its ID carries the local prefix.
type LocalNode struct {
	ID          string   `json:"id"`
	Type        NodeType `json:"type"`
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Technology  string   `json:"technology,omitempty"`
	Style       Style    `json:"style,omitempty"`
}

// LocalEdge is a snapshot-scoped edge; endpoints may reference global or
// local node IDs.
type LocalEdge struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	Type      EdgeType  `json:"type"`
	Label     string    `json:"label,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// Annotation is a free-floating text note pinned to a snapshot.
type Annotation struct {
	ID   string   `json:"id"`
	Text string   `json:"text"`
	Pos  Position `json:"pos"`
}

// Snapshot is one independently-mutable temporal version of a diagram.
type Snapshot struct {
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	Timestamp   *time.Time   `json:"timestamp,omitempty"`
	Description string       `json:"description,omitempty"`
	Layout      Layout       `json:"layout"`
	Edges       []Edge       `json:"edges,omitempty"`
	LocalNodes  []LocalNode  `json:"localNodes,omitempty"`
	LocalEdges  []LocalEdge  `json:"localEdges,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Clone deep-copies the snapshot so mutations on the copy never reach
// the original. Snapshot independence depends on this.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Layout = s.Layout.Clone()
	out.Edges = append([]Edge(nil), s.Edges...)
	out.LocalNodes = append([]LocalNode(nil), s.LocalNodes...)
	out.LocalEdges = append([]LocalEdge(nil), s.LocalEdges...)
	out.Annotations = append([]Annotation(nil), s.Annotations...)
	if s.Timestamp != nil {
		t := *s.Timestamp
		out.Timestamp = &t
	}
	return out
}

// Metadata identifies a diagram document.
type Metadata struct {
	Name    string      `json:"name"`
	Type    DiagramType `json:"type"`
	Created time.Time   `json:"created"`
	Updated time.Time   `json:"updated"`
}

// View is the diagram's reference into the global graph: which nodes it
// displays and which node drills down into which child diagram.
type View struct {
	Nodes []string `json:"nodes"`
	// ChildLinks maps a node ID to the child diagram path it drills
	// down to. At most one child per node; relinking replaces.
	ChildLinks map[string]string `json:"childLinks,omitempty"`
}

// HasNode reports whether the view references the node ID.
func (v View) HasNode(id string) bool {
	for _, n := range v.Nodes {
		if n == id {
			return true
		}
	}
	return false
}

// Diagram is the canonical in-memory form of a diagram view document.
type Diagram struct {
	Metadata          Metadata   `json:"metadata"`
	View              View       `json:"view"`
	Snapshots         []Snapshot `json:"snapshots"`
	CurrentSnapshotID string     `json:"currentSnapshotId"`
}

// Validate checks structural soundness of the document.
func (d Diagram) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Metadata, validation.By(func(any) error {
			return validation.ValidateStruct(&d.Metadata,
				validation.Field(&d.Metadata.Name, validation.Required),
			)
		})),
		validation.Field(&d.Snapshots, validation.Required),
		validation.Field(&d.CurrentSnapshotID, validation.Required),
	)
}

// Current returns a pointer to the active snapshot, or nil if the
// current ID is dangling.
func (d *Diagram) Current() *Snapshot {
	return d.Snapshot(d.CurrentSnapshotID)
}

// Snapshot returns a pointer to the snapshot with the given ID, or nil.
func (d *Diagram) Snapshot(id string) *Snapshot {
	for i := range d.Snapshots {
		if d.Snapshots[i].ID == id {
			return &d.Snapshots[i]
		}
	}
	return nil
}

// Graph is the canonical in-memory form of the global graph document:
// the single source of truth for all nodes and edges in the vault.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node returns a pointer to the node with the given ID, or nil.
func (g *Graph) Node(id string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// NodeByLabel returns the node with the given label, or nil.
func (g *Graph) NodeByLabel(label string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].Label == label {
			return &g.Nodes[i]
		}
	}
	return nil
}

// Edge returns a pointer to the edge with the given ID, or nil.
func (g *Graph) Edge(id string) *Edge {
	for i := range g.Edges {
		if g.Edges[i].ID == id {
			return &g.Edges[i]
		}
	}
	return nil
}
