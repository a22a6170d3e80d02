// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes BAC4 diagram tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/DavidROliverBA/bac4-sub000/internal/graphstore"
	"github.com/DavidROliverBA/bac4-sub000/internal/index"
	"github.com/DavidROliverBA/bac4-sub000/internal/navigate"
	"github.com/DavidROliverBA/bac4-sub000/internal/storage"
)

// Server wraps the MCP server with BAC4 tools.
type Server struct {
	mcp   *server.MCPServer
	store storage.Provider
	db    index.DiagramIndex
	graph *graphstore.Store
	nav   *navigate.Resolver
}

// New creates a new MCP server with all BAC4 tools registered.
func New(store storage.Provider, db index.DiagramIndex, graph *graphstore.Store, nav *navigate.Resolver) *Server {
	s := &Server{store: store, db: db, graph: graph, nav: nav}

	s.mcp = server.NewMCPServer(
		"BAC4",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_diagrams",
		mcp.WithDescription("Search architecture nodes by label, description, or type."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDiagrams)

	s.mcp.AddTool(mcp.NewTool("read_diagram",
		mcp.WithDescription("Read the raw JSON of a diagram document. "+
			"Documents follow the format described by the get_diagram_contract tool."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the diagram (e.g. context/payments.diagram.json)")),
	), s.readDiagram)

	s.mcp.AddTool(mcp.NewTool("list_diagrams",
		mcp.WithDescription("List all diagram documents in the vault."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listDiagrams)

	s.mcp.AddTool(mcp.NewTool("get_breadcrumbs",
		mcp.WithDescription("Walk the drill-down chain from a diagram back to its root."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the diagram to trace upward from")),
	), s.getBreadcrumbs)

	s.mcp.AddTool(mcp.NewTool("check_node_name",
		mcp.WithDescription("Check whether a node label is free. Labels are globally unique across the vault."),
		mcp.WithString("label", mcp.Required(), mcp.Description("Candidate node label")),
	), s.checkNodeName)

	s.mcp.AddTool(mcp.NewTool("get_node",
		mcp.WithDescription("Fetch one global node by ID, with its full metadata."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node ID")),
	), s.getNode)

	s.mcp.AddTool(mcp.NewTool("get_diagram_contract",
		mcp.WithDescription("Returns the canonical BAC4 diagram document format. "+
			"Call this before interpreting or generating diagram JSON."),
	), s.getDiagramContract)

	// Resource: diagram format contract.
	s.mcp.AddResource(
		mcp.NewResource("bac4://diagram-format", "Diagram Format Contract",
			mcp.WithResourceDescription("Canonical JSON document format for BAC4 diagrams and the global graph."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDiagramFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchDiagrams(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listDiagrams(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	metas, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		if strings.HasSuffix(m.Path, storage.DocumentSuffix) {
			paths = append(paths, m.Path)
		}
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getBreadcrumbs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	crumbs, err := s.nav.BuildBreadcrumbs(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(crumbs) == 0 {
		return mcp.NewToolResultText("no parent chain found"), nil
	}
	var parts []string
	for _, c := range crumbs {
		parts = append(parts, fmt.Sprintf("%s (%s)", c.Name, c.Path))
	}
	return mcp.NewToolResultText(strings.Join(parts, " > ")), nil
}

func (s *Server) checkNodeName(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	label, err := req.RequireString("label")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.graph.CheckNameUniqueness(ctx, label, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res.IsUnique {
		return mcp.NewToolResultText(fmt.Sprintf("%q is available", label)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%q is taken by node %s (used in %d diagram(s))",
		label, res.ExistingNode.ID, res.UsageCount)), nil
}

func (s *Server) getNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.graph.GetNode(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(n, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getDiagramContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DiagramFormatContract), nil
}

func (s *Server) readDiagramFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "bac4://diagram-format",
			MIMEType: "text/markdown",
			Text:     DiagramFormatContract,
		},
	}, nil
}
