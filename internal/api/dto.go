package api

import (
	"github.com/DavidROliverBA/bac4-sub000/internal/diagramstore"
	"github.com/DavidROliverBA/bac4-sub000/internal/model"
)

// CreateDiagramRequest is the request body for creating a diagram.
type CreateDiagramRequest struct {
	Path string `json:"path" example:"context/payments.diagram.json"`
	Name string `json:"name" example:"Payments"`
	Type string `json:"type" example:"container"`
}

// RenameDiagramRequest moves a diagram and fans out link rewrites.
type RenameDiagramRequest struct {
	OldPath string `json:"oldPath"`
	NewPath string `json:"newPath"`
}

// ViewNodeRequest adds or removes a global node on a diagram view.
type ViewNodeRequest struct {
	Path     string         `json:"path"`
	NodeID   string         `json:"nodeId"`
	Position model.Position `json:"position"`
}

// LayoutRequest updates one node's position in the current snapshot.
type LayoutRequest struct {
	Path     string         `json:"path"`
	NodeID   string         `json:"nodeId"`
	Position model.Position `json:"position"`
	// Debounce routes the write through the autosave scheduler instead
	// of writing immediately; used for drag streams.
	Debounce bool `json:"debounce,omitempty"`
}

// CreateSnapshotRequest captures the current snapshot under a new label.
type CreateSnapshotRequest struct {
	Path        string `json:"path"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// SnapshotRefRequest addresses one snapshot of one diagram.
type SnapshotRefRequest struct {
	Path       string `json:"path"`
	SnapshotID string `json:"snapshotId"`
}

// LocalNodeRequest adds a sketch node to a snapshot.
type LocalNodeRequest struct {
	Path       string                     `json:"path"`
	SnapshotID string                     `json:"snapshotId"`
	Draft      diagramstore.LocalNodeDraft `json:"draft"`
	Position   model.Position             `json:"position"`
}

// LocalEdgeRequest adds a snapshot-scoped edge.
type LocalEdgeRequest struct {
	Path       string         `json:"path"`
	SnapshotID string         `json:"snapshotId"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Type       model.EdgeType `json:"type"`
	Label      string         `json:"label,omitempty"`
}

// PromoteRequest promotes a local node into the global graph.
type PromoteRequest struct {
	Path        string `json:"path"`
	SnapshotID  string `json:"snapshotId"`
	LocalNodeID string `json:"localNodeId"`
}

// CreateChildRequest creates (or adopts) a child diagram for a node.
type CreateChildRequest struct {
	ParentPath    string `json:"parentPath"`
	NodeID        string `json:"nodeId"`
	Label         string `json:"label"`
	ChildType     string `json:"childType"`
	SuggestedName string `json:"suggestedName,omitempty"`
}

// MigrateRequest triggers a vault migration batch.
type MigrateRequest struct {
	DryRun bool `json:"dryRun"`
	Backup bool `json:"backup"`
}

// DiagramListResponse wraps paginated diagram listings.
type DiagramListResponse struct {
	Diagrams []DiagramListItem `json:"diagrams"`
	Total    int               `json:"total"`
}

// DiagramListItem is a lightweight row in a list response.
type DiagramListItem struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	UpdatedAt string `json:"updatedAt"`
}
