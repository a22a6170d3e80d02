package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Global graph.
	r.Get("/graph", h.GetGraph)
	r.Get("/graph/orphaned-nodes", h.OrphanedNodes)
	r.Get("/graph/orphaned-edges", h.OrphanedEdges)
	r.Post("/graph/orphaned-edges/cleanup", h.CleanupOrphanedEdges)

	// Nodes. check-name must register before the {id} pattern.
	r.Get("/nodes/check-name", h.CheckNodeName)
	r.Post("/nodes", h.CreateNode)
	r.Get("/nodes/{id}", h.GetNode)
	r.Patch("/nodes/{id}", h.UpdateNode)
	r.Delete("/nodes/{id}", h.DeleteNode)
	r.Get("/nodes/{id}/deletion-info", h.NodeDeletionInfo)

	// Edges.
	r.Post("/edges", h.CreateEdge)
	r.Delete("/edges/{id}", h.DeleteEdge)

	// Diagram documents.
	r.Get("/diagrams", h.ListDiagrams)
	r.Post("/diagrams", h.CreateDiagram)
	r.Post("/diagrams/rename", h.RenameDiagram)
	r.Get("/diagrams/*", h.GetDiagram)

	// View layout.
	r.Post("/view/nodes", h.AddViewNode)
	r.Delete("/view/nodes", h.RemoveViewNode)
	r.Put("/view/layout", h.UpdateLayout)
	r.Get("/view/next-label", h.NextNodeLabel)

	// Snapshot timeline.
	r.Post("/snapshots", h.CreateSnapshot)
	r.Delete("/snapshots", h.DeleteSnapshot)
	r.Post("/snapshots/switch", h.SwitchSnapshot)
	r.Post("/snapshots/local-nodes", h.AddLocalNode)
	r.Post("/snapshots/local-edges", h.AddLocalEdge)
	r.Post("/snapshots/promote", h.PromoteNode)
	r.Get("/snapshots/diff", h.CompareSnapshots)

	// Navigation.
	r.Get("/navigate/child", h.FindChild)
	r.Post("/navigate/child", h.CreateChild)
	r.Get("/navigate/parent", h.FindParent)
	r.Get("/navigate/breadcrumbs", h.Breadcrumbs)
	r.Get("/navigate/broken-links", h.BrokenLinks)

	// Search, validation, migration.
	r.Get("/search", h.Search)
	r.Get("/validate", h.ValidateDiagram)
	r.Post("/migrate", h.Migrate)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
