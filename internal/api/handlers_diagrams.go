package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DavidROliverBA/bac4-sub000/internal/model"
)

// diagramPath extracts the diagram path from the URL (everything after
// the route prefix). Supports encoded slashes from generated clients.
func diagramPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListDiagrams handles GET /api/diagrams.
//
//	@Summary	List diagrams from the derived index
//	@Tags		diagrams
//	@Produce	json
//	@Param		limit	query		int	false	"Page size"
//	@Param		offset	query		int	false	"Page offset"
//	@Success	200		{object}	DiagramListResponse
//	@Router		/diagrams [get]
func (h *Handler) ListDiagrams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	rows, total, err := h.svc.DB.ListDiagrams(limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]DiagramListItem, len(rows))
	for i, row := range rows {
		items[i] = DiagramListItem{
			Path:      row.Path,
			Name:      row.Name,
			Type:      row.Type,
			UpdatedAt: row.UpdatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, DiagramListResponse{Diagrams: items, Total: total})
}

// CreateDiagram handles POST /api/diagrams.
//
//	@Summary	Create a new diagram document
//	@Tags		diagrams
//	@Accept		json
//	@Produce	json
//	@Success	201	{object}	model.Diagram
//	@Failure	409	{object}	errResponse
//	@Router		/diagrams [post]
func (h *Handler) CreateDiagram(w http.ResponseWriter, r *http.Request) {
	var req CreateDiagramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and name are required"))
		return
	}
	d, err := h.svc.Diagrams.Create(r.Context(), req.Path, req.Name, model.DiagramType(req.Type))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// GetDiagram handles GET /api/diagrams/*.
//
//	@Summary	Get a diagram document (created empty on first open)
//	@Tags		diagrams
//	@Produce	json
//	@Success	200	{object}	model.Diagram
//	@Router		/diagrams/{path} [get]
func (h *Handler) GetDiagram(w http.ResponseWriter, r *http.Request) {
	path := diagramPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	d, err := h.svc.Diagrams.Get(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// RenameDiagram handles POST /api/diagrams/rename.
//
//	@Summary	Move a diagram and rewrite sibling links (partial failures reported)
//	@Tags		diagrams
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	navigate.RenameReport
//	@Failure	404	{object}	errResponse
//	@Router		/diagrams/rename [post]
func (h *Handler) RenameDiagram(w http.ResponseWriter, r *http.Request) {
	var req RenameDiagramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.OldPath == "" || req.NewPath == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("oldPath and newPath are required"))
		return
	}
	report, err := h.svc.Nav.RenameDiagram(r.Context(), req.OldPath, req.NewPath)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// AddViewNode handles POST /api/view/nodes.
//
//	@Summary	Add a global node to a diagram view at a position
//	@Tags		view
//	@Accept		json
//	@Success	204	"Node added"
//	@Failure	404	{object}	errResponse
//	@Router		/view/nodes [post]
func (h *Handler) AddViewNode(w http.ResponseWriter, r *http.Request) {
	var req ViewNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.Diagrams.AddNodeToView(r.Context(), req.Path, req.NodeID, req.Position); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveViewNode handles DELETE /api/view/nodes.
//
//	@Summary	Remove a node reference from a diagram view
//	@Tags		view
//	@Accept		json
//	@Success	204	"Node removed"
//	@Router		/view/nodes [delete]
func (h *Handler) RemoveViewNode(w http.ResponseWriter, r *http.Request) {
	var req ViewNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.Diagrams.RemoveNodeFromView(r.Context(), req.Path, req.NodeID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateLayout handles PUT /api/view/layout.
//
//	@Summary	Update one node's position; debounce collapses drag streams
//	@Tags		view
//	@Accept		json
//	@Success	202	"Write scheduled"
//	@Success	204	"Position written"
//	@Router		/view/layout [put]
func (h *Handler) UpdateLayout(w http.ResponseWriter, r *http.Request) {
	var req LayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Debounce {
		h.svc.ScheduleLayout(req.Path, req.NodeID, req.Position)
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if err := h.svc.Diagrams.UpdateLayout(r.Context(), req.Path, req.NodeID, req.Position); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NextNodeLabel handles GET /api/view/next-label.
//
//	@Summary	Suggest the next auto-generated node label for a diagram
//	@Tags		view
//	@Produce	json
//	@Param		path	query	string	true	"Diagram path"
//	@Router		/view/next-label [get]
func (h *Handler) NextNodeLabel(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	label, err := h.svc.Diagrams.NextNodeLabel(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"label": label})
}

// CreateSnapshot handles POST /api/snapshots.
//
//	@Summary	Capture the current snapshot under a new label (no auto-switch)
//	@Tags		snapshots
//	@Accept		json
//	@Produce	json
//	@Success	201	{object}	model.Snapshot
//	@Router		/snapshots [post]
func (h *Handler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	var req CreateSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	snap, err := h.svc.Diagrams.CreateSnapshot(r.Context(), req.Path, req.Label, req.Description, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// SwitchSnapshot handles POST /api/snapshots/switch.
//
//	@Summary	Make a snapshot the active one
//	@Tags		snapshots
//	@Accept		json
//	@Success	204	"Switched"
//	@Failure	404	{object}	errResponse
//	@Router		/snapshots/switch [post]
func (h *Handler) SwitchSnapshot(w http.ResponseWriter, r *http.Request) {
	var req SnapshotRefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.Diagrams.SwitchSnapshot(r.Context(), req.Path, req.SnapshotID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSnapshot handles DELETE /api/snapshots.
//
//	@Summary	Delete a snapshot (never the last, never the active one)
//	@Tags		snapshots
//	@Accept		json
//	@Success	204	"Deleted"
//	@Failure	409	{object}	errResponse
//	@Router		/snapshots [delete]
func (h *Handler) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	var req SnapshotRefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.Diagrams.DeleteSnapshot(r.Context(), req.Path, req.SnapshotID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddLocalNode handles POST /api/snapshots/local-nodes.
//
//	@Summary	Add a sketch node scoped to one snapshot
//	@Tags		snapshots
//	@Accept		json
//	@Produce	json
//	@Success	201	{object}	model.LocalNode
//	@Failure	409	{object}	errResponse
//	@Router		/snapshots/local-nodes [post]
func (h *Handler) AddLocalNode(w http.ResponseWriter, r *http.Request) {
	var req LocalNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	ln, err := h.svc.Diagrams.AddLocalNode(r.Context(), req.Path, req.SnapshotID, req.Draft, req.Position)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ln)
}

// AddLocalEdge handles POST /api/snapshots/local-edges.
//
//	@Summary	Add a snapshot-scoped edge
//	@Tags		snapshots
//	@Accept		json
//	@Produce	json
//	@Success	201	{object}	model.LocalEdge
//	@Router		/snapshots/local-edges [post]
func (h *Handler) AddLocalEdge(w http.ResponseWriter, r *http.Request) {
	var req LocalEdgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	le, err := h.svc.Diagrams.AddLocalEdge(r.Context(), req.Path, req.SnapshotID, req.Source, req.Target, req.Type, req.Label)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, le)
}

// PromoteNode handles POST /api/snapshots/promote.
//
//	@Summary	Promote a local sketch node into the global graph
//	@Tags		snapshots
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	model.Node
//	@Failure	409	{object}	errResponse
//	@Router		/snapshots/promote [post]
func (h *Handler) PromoteNode(w http.ResponseWriter, r *http.Request) {
	var req PromoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	n, err := h.svc.Diagrams.PromoteNodeToGlobal(r.Context(), req.Path, req.SnapshotID, req.LocalNodeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// CompareSnapshots handles GET /api/snapshots/diff.
//
//	@Summary	Classify node/edge changes between two snapshots
//	@Tags		snapshots
//	@Produce	json
//	@Param		path	query		string	true	"Diagram path"
//	@Param		from	query		string	true	"From snapshot ID"
//	@Param		to		query		string	true	"To snapshot ID"
//	@Success	200		{object}	diagramstore.Diff
//	@Router		/snapshots/diff [get]
func (h *Handler) CompareSnapshots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path, from, to := q.Get("path"), q.Get("from"), q.Get("to")
	if path == "" || from == "" || to == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path, from, and to are required"))
		return
	}
	diff, err := h.svc.Diagrams.CompareSnapshots(r.Context(), path, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, diff)
}

// ValidateDiagram handles GET /api/validate.
//
//	@Summary	Run pattern detection over a diagram's resolved graph
//	@Tags		diagrams
//	@Produce	json
//	@Param		path	query		string	true	"Diagram path"
//	@Success	200		{object}	validate.Report
//	@Router		/validate [get]
func (h *Handler) ValidateDiagram(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	rep, err := h.svc.ValidateDiagram(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
