package graphstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DavidROliverBA/bac4-sub000/internal/apperr"
	"github.com/DavidROliverBA/bac4-sub000/internal/graphstore"
	"github.com/DavidROliverBA/bac4-sub000/internal/model"
	"github.com/DavidROliverBA/bac4-sub000/internal/schema"
	"github.com/DavidROliverBA/bac4-sub000/internal/storage"
)

func writeDiagram(t *testing.T, store storage.Provider, path string, d *model.Diagram) {
	t.Helper()
	raw, err := schema.EncodeDiagram(d)
	if err != nil {
		t.Fatalf("EncodeDiagram: %v", err)
	}
	if err := store.Write(path, raw); err != nil {
		t.Fatalf("Write %s: %v", path, err)
	}
}

func viewDiagram(name string, nodeIDs ...string) *model.Diagram {
	layout := model.Layout{}
	for _, id := range nodeIDs {
		layout[id] = model.Position{}
	}
	return &model.Diagram{
		Metadata:          model.Metadata{Name: name, Type: model.DiagramContext},
		View:              model.View{Nodes: nodeIDs},
		Snapshots:         []model.Snapshot{{ID: "s1", Label: "Current", Layout: layout}},
		CurrentSnapshotID: "s1",
	}
}

func TestCheckNameUniqueness(t *testing.T) {
	s, store := testStore(t)
	ctx := context.Background()
	n := mustCreateNode(t, s, "Billing", model.NodeSystem)

	writeDiagram(t, store, "a.diagram.json", viewDiagram("A", n.ID))
	writeDiagram(t, store, "b.diagram.json", viewDiagram("B", n.ID))

	res, err := s.CheckNameUniqueness(ctx, "Billing", "")
	if err != nil {
		t.Fatalf("CheckNameUniqueness: %v", err)
	}
	if res.IsUnique {
		t.Fatal("taken label reported unique")
	}
	if res.ExistingNode == nil || res.ExistingNode.ID != n.ID {
		t.Errorf("ExistingNode = %+v", res.ExistingNode)
	}
	if res.UsageCount != 2 {
		t.Errorf("UsageCount = %d, want 2", res.UsageCount)
	}

	// Excluding the holder (rename path) makes the label free.
	res, _ = s.CheckNameUniqueness(ctx, "Billing", n.ID)
	if !res.IsUnique {
		t.Error("label should be unique when holder is excluded")
	}

	res, _ = s.CheckNameUniqueness(ctx, "Fresh", "")
	if !res.IsUnique {
		t.Error("fresh label reported taken")
	}
}

func TestGetNodeDeletionInfo(t *testing.T) {
	s, store := testStore(t)
	ctx := context.Background()
	a := mustCreateNode(t, s, "A", model.NodeSystem)
	b := mustCreateNode(t, s, "B", model.NodeSystem)
	e, _ := s.CreateEdge(ctx, model.EdgeDraft{Source: a.ID, Target: b.ID, Type: model.EdgeUses})

	writeDiagram(t, store, "uses-a.diagram.json", viewDiagram("UsesA", a.ID))
	writeDiagram(t, store, "no-a.diagram.json", viewDiagram("NoA", b.ID))

	info, err := s.GetNodeDeletionInfo(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetNodeDeletionInfo: %v", err)
	}
	if len(info.AffectedDiagrams) != 1 || info.AffectedDiagrams[0] != "uses-a.diagram.json" {
		t.Errorf("AffectedDiagrams = %v", info.AffectedDiagrams)
	}
	if len(info.AffectedEdges) != 1 || info.AffectedEdges[0].ID != e.ID {
		t.Errorf("AffectedEdges = %+v", info.AffectedEdges)
	}

	if _, err := s.GetNodeDeletionInfo(ctx, "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetOrphanedNodes(t *testing.T) {
	s, store := testStore(t)
	ctx := context.Background()
	used := mustCreateNode(t, s, "Used", model.NodeSystem)
	orphan := mustCreateNode(t, s, "Orphan", model.NodeSystem)

	writeDiagram(t, store, "v.diagram.json", viewDiagram("V", used.ID))

	nodes, err := s.GetOrphanedNodes(ctx)
	if err != nil {
		t.Fatalf("GetOrphanedNodes: %v", err)
	}
	if len(nodes) != 1 || nodes[0].ID != orphan.ID {
		t.Errorf("orphans = %+v", nodes)
	}
}

func TestOrphanedEdgesRoundTrip(t *testing.T) {
	s, store := testStore(t)
	ctx := context.Background()

	// A graph edited outside this process: edges pointing at a node
	// that no longer exists.
	g := &model.Graph{
		Nodes: []model.Node{{ID: "n1", Type: model.NodeSystem, Label: "A"}},
		Edges: []model.Edge{
			{ID: "e-ok", Source: "n1", Target: "n1", Type: model.EdgeUses},
			{ID: "e-dangling-1", Source: "n1", Target: "gone", Type: model.EdgeUses},
			{ID: "e-dangling-2", Source: "gone", Target: "n1", Type: model.EdgeUses},
		},
	}
	raw, err := schema.EncodeGraph(g)
	if err != nil {
		t.Fatalf("EncodeGraph: %v", err)
	}
	if err := store.Write(graphstore.GraphPath, raw); err != nil {
		t.Fatalf("Write: %v", err)
	}

	orphans, err := s.GetOrphanedEdges(ctx)
	if err != nil {
		t.Fatalf("GetOrphanedEdges: %v", err)
	}
	if len(orphans) != 2 {
		t.Fatalf("expected 2 orphaned edges, got %d", len(orphans))
	}

	removed, err := s.CleanupOrphanedEdges(ctx)
	if err != nil {
		t.Fatalf("CleanupOrphanedEdges: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	after, _ := s.Load()
	if len(after.Edges) != 1 || after.Edges[0].ID != "e-ok" {
		t.Errorf("surviving edges = %+v", after.Edges)
	}

	// Second cleanup finds nothing.
	removed, _ = s.CleanupOrphanedEdges(ctx)
	if removed != 0 {
		t.Errorf("second cleanup removed %d", removed)
	}
}

func TestScanSkipsMalformedDiagrams(t *testing.T) {
	s, store := testStore(t)
	ctx := context.Background()
	n := mustCreateNode(t, s, "A", model.NodeSystem)

	_ = store.Write("broken.diagram.json", []byte("{{{"))
	writeDiagram(t, store, "good.diagram.json", viewDiagram("Good", n.ID))

	// The scan must survive the malformed file and still see the good one.
	nodes, err := s.GetOrphanedNodes(ctx)
	if err != nil {
		t.Fatalf("GetOrphanedNodes: %v", err)
	}
	if len(nodes) != 0 {
		t.Errorf("node referenced by good diagram reported as orphan: %+v", nodes)
	}
}
