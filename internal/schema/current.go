package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/DavidROliverBA/bac4-sub000/internal/apperr"
	"github.com/DavidROliverBA/bac4-sub000/internal/model"
)

// DiagramFile is the current-generation on-disk shape of a diagram view
// document. Node identity lives in the global graph document; the view
// holds references, layout-bearing snapshots, and drill-down links.
type DiagramFile struct {
	Version           string           `json:"version"`
	Metadata          model.Metadata   `json:"metadata"`
	View              model.View       `json:"view"`
	Snapshots         []model.Snapshot `json:"snapshots"`
	CurrentSnapshotID string           `json:"currentSnapshotId"`
}

// GraphFile is the current-generation on-disk shape of the global graph
// document: every node and edge in the vault, by stable ID.
type GraphFile struct {
	Version string       `json:"version"`
	Nodes   []model.Node `json:"nodes"`
	Edges   []model.Edge `json:"edges"`
}

// Marshal renders a document pretty-printed with 2-space indent, the
// on-disk convention.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("schema: marshal: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeDiagram renders a canonical diagram as a current-generation file.
func EncodeDiagram(d *model.Diagram) ([]byte, error) {
	return Marshal(DiagramFile{
		Version:           string(Current),
		Metadata:          d.Metadata,
		View:              d.View,
		Snapshots:         d.Snapshots,
		CurrentSnapshotID: d.CurrentSnapshotID,
	})
}

// EncodeGraph renders the global graph as a current-generation file.
func EncodeGraph(g *model.Graph) ([]byte, error) {
	f := GraphFile{Version: string(Current), Nodes: g.Nodes, Edges: g.Edges}
	if f.Nodes == nil {
		f.Nodes = []model.Node{}
	}
	if f.Edges == nil {
		f.Edges = []model.Edge{}
	}
	return Marshal(f)
}

// DecodeDiagram parses a current-generation diagram document.
func DecodeDiagram(raw []byte, path string) (*model.Diagram, error) {
	var f DiagramFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, apperr.Formatf(path, "malformed diagram document: %v", err)
	}
	if f.Version != string(Current) {
		return nil, apperr.Formatf(path, "expected version %s, found %q", Current, f.Version)
	}
	d := &model.Diagram{
		Metadata:          f.Metadata,
		View:              f.View,
		Snapshots:         f.Snapshots,
		CurrentSnapshotID: f.CurrentSnapshotID,
	}
	if len(d.Snapshots) == 0 {
		return nil, apperr.Format(path, "diagram has no snapshots")
	}
	if d.Current() == nil {
		return nil, apperr.Formatf(path, "currentSnapshotId %q does not match any snapshot", d.CurrentSnapshotID)
	}
	return d, nil
}

// DecodeGraph parses a current-generation global graph document.
func DecodeGraph(raw []byte, path string) (*model.Graph, error) {
	var f GraphFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, apperr.Formatf(path, "malformed graph document: %v", err)
	}
	if f.Version != string(Current) {
		return nil, apperr.Formatf(path, "expected version %s, found %q", Current, f.Version)
	}
	return &model.Graph{Nodes: f.Nodes, Edges: f.Edges}, nil
}

// ValidateDiagram checks referential integrity of a diagram against the
// global graph: every layout key and edge endpoint must resolve to a
// global node, a local node in the same snapshot, or a view reference.
// It collects every violation instead of stopping at the first.
func ValidateDiagram(d *model.Diagram, g *model.Graph, path string) error {
	var violations []string

	known := func(snap *model.Snapshot, id string) bool {
		if model.IsLocalID(id) {
			for _, ln := range snap.LocalNodes {
				if ln.ID == id {
					return true
				}
			}
			return false
		}
		return g.Node(id) != nil
	}

	for i := range d.Snapshots {
		snap := &d.Snapshots[i]
		for id := range snap.Layout {
			if !known(snap, id) {
				violations = append(violations,
					fmt.Sprintf("snapshot %q layout references missing node %s", snap.Label, id))
			}
		}
		for _, e := range snap.Edges {
			if !known(snap, e.Source) {
				violations = append(violations,
					fmt.Sprintf("snapshot %q edge %s has missing source %s", snap.Label, e.ID, e.Source))
			}
			if !known(snap, e.Target) {
				violations = append(violations,
					fmt.Sprintf("snapshot %q edge %s has missing target %s", snap.Label, e.ID, e.Target))
			}
		}
		for _, le := range snap.LocalEdges {
			if !known(snap, le.Source) {
				violations = append(violations,
					fmt.Sprintf("snapshot %q local edge %s has missing source %s", snap.Label, le.ID, le.Source))
			}
			if !known(snap, le.Target) {
				violations = append(violations,
					fmt.Sprintf("snapshot %q local edge %s has missing target %s", snap.Label, le.ID, le.Target))
			}
		}
	}

	for _, id := range d.View.Nodes {
		if g.Node(id) == nil {
			violations = append(violations, fmt.Sprintf("view references missing node %s", id))
		}
	}

	if len(violations) > 0 {
		return &apperr.ValidationError{Path: path, Violations: violations}
	}
	return nil
}

// ValidateGraph checks edge endpoints against the node map.
func ValidateGraph(g *model.Graph, path string) error {
	var violations []string
	for _, e := range g.Edges {
		if g.Node(e.Source) == nil {
			violations = append(violations, fmt.Sprintf("edge %s has missing source %s", e.ID, e.Source))
		}
		if g.Node(e.Target) == nil {
			violations = append(violations, fmt.Sprintf("edge %s has missing target %s", e.ID, e.Target))
		}
	}
	if len(violations) > 0 {
		return &apperr.ValidationError{Path: path, Violations: violations}
	}
	return nil
}
