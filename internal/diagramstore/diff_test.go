package diagramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/DavidROliverBA/bac4-sub000/internal/apperr"
	"github.com/DavidROliverBA/bac4-sub000/internal/graphstore"
	"github.com/DavidROliverBA/bac4-sub000/internal/model"
)

func changeOf(t *testing.T, diff *Diff, nodeID string) ChangeStatus {
	t.Helper()
	for _, c := range diff.Nodes {
		if c.NodeID == nodeID {
			return c.Status
		}
	}
	t.Fatalf("node %q not classified", nodeID)
	return ""
}

func TestCompareSnapshots(t *testing.T) {
	s, g := testStores(t)
	ctx := context.Background()
	const path = "d.diagram.json"

	kept := mustNode(t, g, "Kept")
	removed := mustNode(t, g, "Removed")
	renamed := mustNode(t, g, "Old Name")

	if _, err := s.Create(ctx, path, "D", model.DiagramContext); err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, n := range []*model.Node{kept, removed, renamed} {
		if err := s.AddNodeToView(ctx, path, n.ID, model.Position{}); err != nil {
			t.Fatalf("AddNodeToView: %v", err)
		}
	}
	before, err := s.CreateSnapshot(ctx, path, "Before", "", nil)
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}

	// Evolve the working state: drop one node, add one, move one. The
	// rename happens on the shared global node so both snapshots resolve
	// the new label; it must read as unchanged.
	if err := s.RemoveNodeFromView(ctx, path, removed.ID); err != nil {
		t.Fatalf("RemoveNodeFromView: %v", err)
	}
	added := mustNode(t, g, "Added")
	if err := s.AddNodeToView(ctx, path, added.ID, model.Position{X: 1}); err != nil {
		t.Fatalf("AddNodeToView: %v", err)
	}
	if err := s.UpdateLayout(ctx, path, kept.ID, model.Position{X: 500, Y: 500}); err != nil {
		t.Fatalf("UpdateLayout: %v", err)
	}
	newLabel := "New Name"
	if _, err := g.UpdateNode(ctx, renamed.ID, graphstore.NodePatch{Label: &newLabel}); err != nil {
		t.Fatalf("UpdateNode: %v", err)
	}
	after, err := s.CreateSnapshot(ctx, path, "After", "", nil)
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}

	diff, err := s.CompareSnapshots(ctx, path, before.ID, after.ID)
	if err != nil {
		t.Fatalf("CompareSnapshots: %v", err)
	}
	if got := changeOf(t, diff, added.ID); got != ChangeAdded {
		t.Errorf("added node classified %q", got)
	}
	if got := changeOf(t, diff, removed.ID); got != ChangeRemoved {
		t.Errorf("removed node classified %q", got)
	}
	// Moving a node is not a modification.
	if got := changeOf(t, diff, kept.ID); got != ChangeUnchanged {
		t.Errorf("moved node classified %q, want unchanged", got)
	}
	// A global rename resolves identically from both snapshots.
	if got := changeOf(t, diff, renamed.ID); got != ChangeUnchanged {
		t.Errorf("renamed global node classified %q, want unchanged", got)
	}

	if _, err := s.CompareSnapshots(ctx, path, "nope", after.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown from snapshot: got %v, want ErrNotFound", err)
	}
}

func TestCompareSnapshotsSeesLocalChanges(t *testing.T) {
	s, g := testStores(t)
	ctx := context.Background()
	const path = "d.diagram.json"

	anchor := mustNode(t, g, "Anchor")
	d, err := s.Create(ctx, path, "D", model.DiagramContext)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.AddNodeToView(ctx, path, anchor.ID, model.Position{}); err != nil {
		t.Fatalf("AddNodeToView: %v", err)
	}
	before, err := s.CreateSnapshot(ctx, path, "Before", "", nil)
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}

	// Local sketches land in the working snapshot only.
	local, err := s.AddLocalNode(ctx, path, d.CurrentSnapshotID, LocalNodeDraft{Type: model.NodeSystem, Label: "Sketch"}, model.Position{})
	if err != nil {
		t.Fatalf("AddLocalNode: %v", err)
	}
	edge, err := s.AddLocalEdge(ctx, path, d.CurrentSnapshotID, anchor.ID, local.ID, model.EdgeUses, "")
	if err != nil {
		t.Fatalf("AddLocalEdge: %v", err)
	}

	diff, err := s.CompareSnapshots(ctx, path, before.ID, d.CurrentSnapshotID)
	if err != nil {
		t.Fatalf("CompareSnapshots: %v", err)
	}
	if got := changeOf(t, diff, local.ID); got != ChangeAdded {
		t.Errorf("local node classified %q, want added", got)
	}
	foundEdge := false
	for _, c := range diff.Edges {
		if c.EdgeID == edge.ID {
			foundEdge = true
			if c.Status != ChangeAdded {
				t.Errorf("local edge classified %q, want added", c.Status)
			}
		}
	}
	if !foundEdge {
		t.Error("local edge not classified")
	}
}
