package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DavidROliverBA/bac4-sub000/internal/graphstore"
	"github.com/DavidROliverBA/bac4-sub000/internal/model"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GetGraph handles GET /api/graph.
//
//	@Summary	Get the full global graph document
//	@Tags		graph
//	@Produce	json
//	@Success	200	{object}	model.Graph
//	@Router		/graph [get]
func (h *Handler) GetGraph(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Graph.Load()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// GetNode handles GET /api/nodes/{id}.
//
//	@Summary	Get a single global node
//	@Tags		graph
//	@Produce	json
//	@Success	200	{object}	model.Node
//	@Failure	404	{object}	errResponse
//	@Router		/nodes/{id} [get]
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Graph.GetNode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// CreateNode handles POST /api/nodes.
//
//	@Summary	Create a global node (label must be unique)
//	@Tags		graph
//	@Accept		json
//	@Produce	json
//	@Success	201	{object}	model.Node
//	@Failure	409	{object}	errResponse
//	@Router		/nodes [post]
func (h *Handler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var draft model.NodeDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	n, err := h.svc.Graph.CreateNode(r.Context(), draft)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// UpdateNode handles PATCH /api/nodes/{id}.
//
//	@Summary	Patch a global node; label changes re-check uniqueness
//	@Tags		graph
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	model.Node
//	@Failure	404	{object}	errResponse
//	@Failure	409	{object}	errResponse
//	@Router		/nodes/{id} [patch]
func (h *Handler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var patch graphstore.NodePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	n, err := h.svc.Graph.UpdateNode(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// DeleteNode handles DELETE /api/nodes/{id}.
//
//	@Summary	Delete a node, cascading to edges and diagram references
//	@Tags		graph
//	@Produce	json
//	@Success	200	{object}	graphstore.DeletionReport
//	@Failure	404	{object}	errResponse
//	@Router		/nodes/{id} [delete]
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Graph.DeleteNode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// NodeDeletionInfo handles GET /api/nodes/{id}/deletion-info.
//
//	@Summary	Preview the blast radius of deleting a node
//	@Tags		graph
//	@Produce	json
//	@Success	200	{object}	graphstore.NodeDeletionInfo
//	@Router		/nodes/{id}/deletion-info [get]
func (h *Handler) NodeDeletionInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Graph.GetNodeDeletionInfo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// CheckNodeName handles GET /api/nodes/check-name.
//
//	@Summary	Check label uniqueness before create or rename
//	@Tags		graph
//	@Produce	json
//	@Param		label	query		string	true	"Candidate label"
//	@Param		exclude	query		string	false	"Node ID to exclude (rename)"
//	@Success	200		{object}	graphstore.UniquenessResult
//	@Router		/nodes/check-name [get]
func (h *Handler) CheckNodeName(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("label")
	if label == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'label' is required"))
		return
	}
	res, err := h.svc.Graph.CheckNameUniqueness(r.Context(), label, r.URL.Query().Get("exclude"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CreateEdge handles POST /api/edges.
//
//	@Summary	Create an edge between two existing nodes
//	@Tags		graph
//	@Accept		json
//	@Produce	json
//	@Success	201	{object}	model.Edge
//	@Failure	404	{object}	errResponse
//	@Router		/edges [post]
func (h *Handler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var draft model.EdgeDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	e, err := h.svc.Graph.CreateEdge(r.Context(), draft)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// DeleteEdge handles DELETE /api/edges/{id}.
//
//	@Summary	Delete an edge
//	@Tags		graph
//	@Success	204	"Edge deleted"
//	@Failure	404	{object}	errResponse
//	@Router		/edges/{id} [delete]
func (h *Handler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Graph.DeleteEdge(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OrphanedNodes handles GET /api/graph/orphaned-nodes.
//
//	@Summary	List nodes no diagram view references
//	@Tags		graph
//	@Produce	json
//	@Router		/graph/orphaned-nodes [get]
func (h *Handler) OrphanedNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.svc.Graph.GetOrphanedNodes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if nodes == nil {
		nodes = []model.Node{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes, "count": len(nodes)})
}

// OrphanedEdges handles GET /api/graph/orphaned-edges.
//
//	@Summary	List edges with a missing endpoint
//	@Tags		graph
//	@Produce	json
//	@Router		/graph/orphaned-edges [get]
func (h *Handler) OrphanedEdges(w http.ResponseWriter, r *http.Request) {
	edges, err := h.svc.Graph.GetOrphanedEdges(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if edges == nil {
		edges = []model.Edge{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"edges": edges, "count": len(edges)})
}

// CleanupOrphanedEdges handles POST /api/graph/orphaned-edges/cleanup.
//
//	@Summary	Remove all orphaned edges, returning the removed count
//	@Tags		graph
//	@Produce	json
//	@Router		/graph/orphaned-edges/cleanup [post]
func (h *Handler) CleanupOrphanedEdges(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Graph.CleanupOrphanedEdges(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": n})
}
