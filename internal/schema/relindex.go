package schema

import (
	"encoding/json"
	"errors"

	"github.com/DavidROliverBA/bac4-sub000/internal/apperr"
)

// RelIndexPath is the well-known vault-root path of the legacy central
// relationship index. Newer generations embed drill-down links in the
// diagram view; the index is read-only from v3.0.0 onward and consulted
// only during migration and parent-chain fallback.
const RelIndexPath = "diagram-relationships.json"

// Relationship is one parent-child drill-down row in the legacy index.
type Relationship struct {
	ParentDiagramPath string `json:"parentDiagramPath"`
	ChildDiagramPath  string `json:"childDiagramPath"`
	ParentNodeID      string `json:"parentNodeId"`
	ParentNodeLabel   string `json:"parentNodeLabel"`
}

// RelIndex is the legacy central registry of diagrams and their links.
type RelIndex struct {
	Version       string         `json:"version,omitempty"`
	Relationships []Relationship `json:"relationships"`
}

// DecodeRelIndex parses the legacy relationship index. Absence is not
// an error at the call sites (read-or-create semantics); this only
// fails on malformed content.
func DecodeRelIndex(raw []byte) (*RelIndex, error) {
	var idx RelIndex
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, apperr.Formatf(RelIndexPath, "malformed relationship index: %v", err)
	}
	return &idx, nil
}

// ReadRelIndex loads the index through read, returning an empty registry
// when the file does not exist.
func ReadRelIndex(read func(path string) ([]byte, error)) (*RelIndex, error) {
	raw, err := read(RelIndexPath)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return &RelIndex{Relationships: []Relationship{}}, nil
		}
		return nil, err
	}
	return DecodeRelIndex(raw)
}

// ChildOf returns the child diagram path linked from the given parent
// diagram and node, or empty when no row matches.
func (idx *RelIndex) ChildOf(parentPath, nodeID string) string {
	for _, r := range idx.Relationships {
		if r.ParentDiagramPath == parentPath && r.ParentNodeID == nodeID {
			return r.ChildDiagramPath
		}
	}
	return ""
}

// ParentOf returns the parent diagram path of the given child, or empty.
func (idx *RelIndex) ParentOf(childPath string) string {
	for _, r := range idx.Relationships {
		if r.ChildDiagramPath == childPath {
			return r.ParentDiagramPath
		}
	}
	return ""
}
