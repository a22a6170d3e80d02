package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/DavidROliverBA/bac4-sub000/internal/diagramstore"
	"github.com/DavidROliverBA/bac4-sub000/internal/graphstore"
	"github.com/DavidROliverBA/bac4-sub000/internal/model"
	"github.com/DavidROliverBA/bac4-sub000/internal/navigate"
	"github.com/DavidROliverBA/bac4-sub000/internal/storage"
	"github.com/DavidROliverBA/bac4-sub000/internal/testutil"
)

func testServer(t *testing.T) (*Server, *graphstore.Store, *diagramstore.Store) {
	t.Helper()
	_, store := testutil.TestVault(t)
	logger := testutil.Logger()
	locks := storage.NewPathLocker()
	graph := graphstore.New(store, locks, logger)
	diagrams := diagramstore.New(store, locks, graph, logger)
	nav := navigate.New(store, locks, diagrams, logger)
	db := testutil.TestDB(t)
	return New(store, db, graph, nav), graph, diagrams
}

func toolArgs(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := mcp.AsTextContent(res.Content[0])
	if !ok {
		t.Fatalf("result content is not text: %+v", res.Content[0])
	}
	return tc.Text
}

func TestCheckNodeNameTool(t *testing.T) {
	s, graph, _ := testServer(t)
	ctx := context.Background()

	if _, err := graph.CreateNode(ctx, model.NodeDraft{Type: model.NodeSystem, Label: "Billing"}); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	res, err := s.checkNodeName(ctx, toolArgs(map[string]any{"label": "Billing"}))
	if err != nil {
		t.Fatalf("checkNodeName: %v", err)
	}
	if got := textOf(t, res); !strings.Contains(got, "taken") {
		t.Errorf("taken label result = %q", got)
	}

	res, _ = s.checkNodeName(ctx, toolArgs(map[string]any{"label": "Fresh"}))
	if got := textOf(t, res); !strings.Contains(got, "available") {
		t.Errorf("free label result = %q", got)
	}
}

func TestReadAndListDiagramTools(t *testing.T) {
	s, _, diagrams := testServer(t)
	ctx := context.Background()

	if _, err := diagrams.Create(ctx, "ctx.diagram.json", "Context", model.DiagramContext); err != nil {
		t.Fatalf("Create: %v", err)
	}

	res, err := s.readDiagram(ctx, toolArgs(map[string]any{"path": "ctx.diagram.json"}))
	if err != nil {
		t.Fatalf("readDiagram: %v", err)
	}
	if got := textOf(t, res); !strings.Contains(got, `"3.0.0"`) {
		t.Errorf("diagram JSON missing version: %q", got)
	}

	res, _ = s.readDiagram(ctx, toolArgs(map[string]any{"path": "ghost.diagram.json"}))
	if got := textOf(t, res); !strings.Contains(got, "not found") {
		t.Errorf("missing diagram result = %q", got)
	}

	res, err = s.listDiagrams(ctx, toolArgs(map[string]any{}))
	if err != nil {
		t.Fatalf("listDiagrams: %v", err)
	}
	if got := textOf(t, res); !strings.Contains(got, "ctx.diagram.json") {
		t.Errorf("listing = %q", got)
	}
}

func TestDiagramContract(t *testing.T) {
	s, _, _ := testServer(t)

	res, err := s.getDiagramContract(context.Background(), toolArgs(nil))
	if err != nil {
		t.Fatalf("getDiagramContract: %v", err)
	}
	contract := textOf(t, res)
	for _, want := range []string{"graph.json", ".diagram.json", "3.0.0", "currentSnapshotId"} {
		if !strings.Contains(contract, want) {
			t.Errorf("contract missing %q", want)
		}
	}
}
