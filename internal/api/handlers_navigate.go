package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/DavidROliverBA/bac4-sub000/internal/migrate"
	"github.com/DavidROliverBA/bac4-sub000/internal/model"
	"github.com/DavidROliverBA/bac4-sub000/internal/navigate"
)

// FindChild handles GET /api/navigate/child.
//
//	@Summary	Resolve the child diagram a node drills down into
//	@Tags		navigate
//	@Produce	json
//	@Param		path	query	string	true	"Parent diagram path"
//	@Param		nodeId	query	string	true	"Node ID"
//	@Failure	404		{object}	errResponse
//	@Router		/navigate/child [get]
func (h *Handler) FindChild(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path, nodeID := q.Get("path"), q.Get("nodeId")
	if path == "" || nodeID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and nodeId are required"))
		return
	}
	child, err := h.svc.Nav.FindChildDiagram(r.Context(), path, nodeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": child})
}

// CreateChild handles POST /api/navigate/child.
//
//	@Summary	Create or adopt a child diagram for a node
//	@Tags		navigate
//	@Accept		json
//	@Produce	json
//	@Router		/navigate/child [post]
func (h *Handler) CreateChild(w http.ResponseWriter, r *http.Request) {
	var req CreateChildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.ParentPath == "" || req.NodeID == "" || req.Label == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("parentPath, nodeId, and label are required"))
		return
	}
	child, err := h.svc.Nav.CreateChildDiagram(r.Context(), req.ParentPath, req.NodeID, req.Label, model.DiagramType(req.ChildType), req.SuggestedName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": child})
}

// FindParent handles GET /api/navigate/parent.
//
//	@Summary	Find the diagram that links down to this one
//	@Tags		navigate
//	@Produce	json
//	@Param		path	query	string	true	"Current diagram path"
//	@Failure	404		{object}	errResponse
//	@Router		/navigate/parent [get]
func (h *Handler) FindParent(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	parent, err := h.svc.Nav.NavigateToParent(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": parent})
}

// Breadcrumbs handles GET /api/navigate/breadcrumbs.
//
//	@Summary	Walk the parent chain to the root (cycle-safe)
//	@Tags		navigate
//	@Produce	json
//	@Param		path	query	string	true	"Current diagram path"
//	@Router		/navigate/breadcrumbs [get]
func (h *Handler) Breadcrumbs(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	crumbs, err := h.svc.Nav.BuildBreadcrumbs(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	if crumbs == nil {
		crumbs = []navigate.Crumb{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"breadcrumbs": crumbs})
}

// BrokenLinks handles GET /api/navigate/broken-links.
//
//	@Summary	Scan the vault for drill-down links with missing targets
//	@Tags		navigate
//	@Produce	json
//	@Success	200	{object}	navigate.Orphans
//	@Router		/navigate/broken-links [get]
func (h *Handler) BrokenLinks(w http.ResponseWriter, r *http.Request) {
	orphans, err := h.svc.Nav.FindBrokenLinks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orphans)
}

// Search handles GET /api/search.
//
//	@Summary	Search node labels and descriptions via the derived index
//	@Tags		search
//	@Produce	json
//	@Param		q		query	string	true	"Search query"
//	@Param		limit	query	int		false	"Max results"
//	@Router		/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.DB.Search(q, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// Migrate handles POST /api/migrate.
//
//	@Summary	Run a vault migration batch (409 while one is running)
//	@Tags		migrate
//	@Accept		json
//	@Produce	json
//	@Success	200	{object}	migrate.Report
//	@Failure	409	{object}	errResponse
//	@Router		/migrate [post]
func (h *Handler) Migrate(w http.ResponseWriter, r *http.Request) {
	var req MigrateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
	}
	report, err := h.svc.Engine.MigrateVault(r.Context(), migrate.Options{DryRun: req.DryRun, Backup: req.Backup})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
