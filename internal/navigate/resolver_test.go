package navigate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DavidROliverBA/bac4-sub000/internal/apperr"
	"github.com/DavidROliverBA/bac4-sub000/internal/diagramstore"
	"github.com/DavidROliverBA/bac4-sub000/internal/graphstore"
	"github.com/DavidROliverBA/bac4-sub000/internal/model"
	"github.com/DavidROliverBA/bac4-sub000/internal/schema"
	"github.com/DavidROliverBA/bac4-sub000/internal/storage"
	"github.com/DavidROliverBA/bac4-sub000/internal/testutil"
)

func testResolver(t *testing.T) (*Resolver, *diagramstore.Store, *graphstore.Store, storage.Provider) {
	t.Helper()
	_, store := testutil.TestVault(t)
	locks := storage.NewPathLocker()
	graph := graphstore.New(store, locks, testutil.Logger())
	diagrams := diagramstore.New(store, locks, graph, testutil.Logger())
	return New(store, locks, diagrams, testutil.Logger()), diagrams, graph, store
}

func mustNode(t *testing.T, g *graphstore.Store, label string) *model.Node {
	t.Helper()
	n, err := g.CreateNode(context.Background(), model.NodeDraft{Type: model.NodeSystem, Label: label})
	if err != nil {
		t.Fatalf("CreateNode(%q): %v", label, err)
	}
	return n
}

func TestSanitizeFileName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Payment Service", "Payment_Service"},
		{"API (v2)!", "API_v2"},
		{"  spaced   out  ", "spaced_out"},
		{"under_score kept", "under_score_kept"},
		{"***", ""},
	}
	for _, tc := range cases {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCreateChildDiagramIsIdempotent(t *testing.T) {
	r, diagrams, g, _ := testResolver(t)
	ctx := context.Background()

	n := mustNode(t, g, "Payment Service")
	if _, err := diagrams.Create(ctx, "ctx.diagram.json", "Context", model.DiagramContext); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := diagrams.AddNodeToView(ctx, "ctx.diagram.json", n.ID, model.Position{}); err != nil {
		t.Fatalf("AddNodeToView: %v", err)
	}

	child, err := r.CreateChildDiagram(ctx, "ctx.diagram.json", n.ID, n.Label, model.DiagramContainer, "")
	if err != nil {
		t.Fatalf("CreateChildDiagram: %v", err)
	}
	if child != "Payment_Service.diagram.json" {
		t.Errorf("child path = %q", child)
	}

	d, _ := diagrams.Load("ctx.diagram.json")
	if d.View.ChildLinks[n.ID] != child {
		t.Errorf("parent link = %q", d.View.ChildLinks[n.ID])
	}
	cd, err := diagrams.Load(child)
	if err != nil {
		t.Fatalf("child document missing: %v", err)
	}
	if cd.Metadata.Type != model.DiagramContainer {
		t.Errorf("child type = %q", cd.Metadata.Type)
	}

	// Repeated calls converge on the same link; the existing child file
	// is adopted, not rejected.
	again, err := r.CreateChildDiagram(ctx, "ctx.diagram.json", n.ID, n.Label, model.DiagramContainer, "")
	if err != nil {
		t.Fatalf("second CreateChildDiagram: %v", err)
	}
	if again != child {
		t.Errorf("second call produced %q, want %q", again, child)
	}

	if _, err := r.CreateChildDiagram(ctx, "ctx.diagram.json", "ghost", "Ghost", model.DiagramContainer, ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown node: got %v, want ErrNotFound", err)
	}
	if _, err := r.CreateChildDiagram(ctx, "ctx.diagram.json", n.ID, "***", model.DiagramContainer, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("unusable label: got %v, want ErrValidation", err)
	}
}

func TestFindChildDiagramFallsBackToLegacyIndex(t *testing.T) {
	r, diagrams, g, store := testResolver(t)
	ctx := context.Background()

	n := mustNode(t, g, "Billing")
	if _, err := diagrams.Create(ctx, "ctx.diagram.json", "Context", model.DiagramContext); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := diagrams.AddNodeToView(ctx, "ctx.diagram.json", n.ID, model.Position{}); err != nil {
		t.Fatalf("AddNodeToView: %v", err)
	}

	// No embedded link, no index: no child.
	child, err := r.FindChildDiagram(ctx, "ctx.diagram.json", n.ID)
	if err != nil {
		t.Fatalf("FindChildDiagram: %v", err)
	}
	if child != "" {
		t.Errorf("unexpected child %q", child)
	}

	// An unmigrated vault still carries the central index.
	idx := schema.RelIndex{Relationships: []schema.Relationship{
		{ParentDiagramPath: "ctx.diagram.json", ChildDiagramPath: "billing.diagram.json", ParentNodeID: n.ID},
	}}
	raw, _ := json.Marshal(idx)
	if err := store.Write(schema.RelIndexPath, raw); err != nil {
		t.Fatalf("Write index: %v", err)
	}

	child, err = r.FindChildDiagram(ctx, "ctx.diagram.json", n.ID)
	if err != nil {
		t.Fatalf("FindChildDiagram: %v", err)
	}
	if child != "billing.diagram.json" {
		t.Errorf("child = %q, want billing.diagram.json", child)
	}

	// An embedded link wins over the index.
	linked, err := r.CreateChildDiagram(ctx, "ctx.diagram.json", n.ID, "Billing Detail", model.DiagramContainer, "")
	if err != nil {
		t.Fatalf("CreateChildDiagram: %v", err)
	}
	child, _ = r.FindChildDiagram(ctx, "ctx.diagram.json", n.ID)
	if child != linked {
		t.Errorf("child = %q, want %q", child, linked)
	}
}

func TestNavigateToParent(t *testing.T) {
	r, diagrams, g, _ := testResolver(t)
	ctx := context.Background()

	n := mustNode(t, g, "Billing")
	if _, err := diagrams.Create(ctx, "ctx.diagram.json", "Context", model.DiagramContext); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := diagrams.AddNodeToView(ctx, "ctx.diagram.json", n.ID, model.Position{}); err != nil {
		t.Fatalf("AddNodeToView: %v", err)
	}
	child, err := r.CreateChildDiagram(ctx, "ctx.diagram.json", n.ID, n.Label, model.DiagramContainer, "")
	if err != nil {
		t.Fatalf("CreateChildDiagram: %v", err)
	}

	parent, err := r.NavigateToParent(ctx, child)
	if err != nil {
		t.Fatalf("NavigateToParent: %v", err)
	}
	if parent != "ctx.diagram.json" {
		t.Errorf("parent = %q", parent)
	}

	// The root has no parent.
	parent, err = r.NavigateToParent(ctx, "ctx.diagram.json")
	if err != nil {
		t.Fatalf("NavigateToParent root: %v", err)
	}
	if parent != "" {
		t.Errorf("root parent = %q, want empty", parent)
	}
}

func TestBuildBreadcrumbs(t *testing.T) {
	r, diagrams, g, _ := testResolver(t)
	ctx := context.Background()

	sys := mustNode(t, g, "Billing")
	cont := mustNode(t, g, "API")

	if _, err := diagrams.Create(ctx, "ctx.diagram.json", "Context", model.DiagramContext); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := diagrams.AddNodeToView(ctx, "ctx.diagram.json", sys.ID, model.Position{}); err != nil {
		t.Fatalf("AddNodeToView: %v", err)
	}
	mid, err := r.CreateChildDiagram(ctx, "ctx.diagram.json", sys.ID, sys.Label, model.DiagramContainer, "")
	if err != nil {
		t.Fatalf("CreateChildDiagram: %v", err)
	}
	if err := diagrams.AddNodeToView(ctx, mid, cont.ID, model.Position{}); err != nil {
		t.Fatalf("AddNodeToView: %v", err)
	}
	leaf, err := r.CreateChildDiagram(ctx, mid, cont.ID, cont.Label, model.DiagramComponent, "")
	if err != nil {
		t.Fatalf("CreateChildDiagram: %v", err)
	}

	crumbs, err := r.BuildBreadcrumbs(ctx, leaf)
	if err != nil {
		t.Fatalf("BuildBreadcrumbs: %v", err)
	}
	if len(crumbs) != 3 {
		t.Fatalf("chain length = %d, want 3", len(crumbs))
	}
	if crumbs[0].Path != "ctx.diagram.json" || crumbs[2].Path != leaf {
		t.Errorf("chain = %+v", crumbs)
	}
	if crumbs[0].Name != "Context" {
		t.Errorf("root crumb name = %q", crumbs[0].Name)
	}
}

func TestBuildBreadcrumbsTerminatesOnCycle(t *testing.T) {
	r, diagrams, g, _ := testResolver(t)
	ctx := context.Background()

	a := mustNode(t, g, "A")
	b := mustNode(t, g, "B")

	if _, err := diagrams.Create(ctx, "one.diagram.json", "One", model.DiagramContext); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := diagrams.Create(ctx, "two.diagram.json", "Two", model.DiagramContext); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := diagrams.AddNodeToView(ctx, "one.diagram.json", a.ID, model.Position{}); err != nil {
		t.Fatalf("AddNodeToView: %v", err)
	}
	if err := diagrams.AddNodeToView(ctx, "two.diagram.json", b.ID, model.Position{}); err != nil {
		t.Fatalf("AddNodeToView: %v", err)
	}
	// one -> two and two -> one form a cycle in the link graph.
	if _, err := r.CreateChildDiagram(ctx, "one.diagram.json", a.ID, "x", model.DiagramContainer, "two"); err != nil {
		t.Fatalf("link one->two: %v", err)
	}
	if _, err := r.CreateChildDiagram(ctx, "two.diagram.json", b.ID, "x", model.DiagramContainer, "one"); err != nil {
		t.Fatalf("link two->one: %v", err)
	}

	crumbs, err := r.BuildBreadcrumbs(ctx, "one.diagram.json")
	if err != nil {
		t.Fatalf("BuildBreadcrumbs: %v", err)
	}
	if len(crumbs) == 0 || len(crumbs) > 2 {
		t.Errorf("cycle walk produced %d crumbs", len(crumbs))
	}
}

func TestRenameDiagramRewritesLinks(t *testing.T) {
	r, diagrams, g, store := testResolver(t)
	ctx := context.Background()

	n := mustNode(t, g, "Billing")
	if _, err := diagrams.Create(ctx, "ctx.diagram.json", "Context", model.DiagramContext); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := diagrams.AddNodeToView(ctx, "ctx.diagram.json", n.ID, model.Position{}); err != nil {
		t.Fatalf("AddNodeToView: %v", err)
	}
	child, err := r.CreateChildDiagram(ctx, "ctx.diagram.json", n.ID, n.Label, model.DiagramContainer, "")
	if err != nil {
		t.Fatalf("CreateChildDiagram: %v", err)
	}

	report, err := r.RenameDiagram(ctx, child, "billing-v2.diagram.json")
	if err != nil {
		t.Fatalf("RenameDiagram: %v", err)
	}
	if len(report.UpdatedRefs) != 1 || report.UpdatedRefs[0] != "ctx.diagram.json" {
		t.Errorf("UpdatedRefs = %v", report.UpdatedRefs)
	}
	if len(report.FailedRefs) != 0 {
		t.Errorf("FailedRefs = %v", report.FailedRefs)
	}

	if store.Exists(child) {
		t.Error("old file still present")
	}
	renamed, err := diagrams.Load("billing-v2.diagram.json")
	if err != nil {
		t.Fatalf("Load renamed: %v", err)
	}
	if renamed.Metadata.Name != "billing-v2" {
		t.Errorf("display name = %q", renamed.Metadata.Name)
	}
	parent, _ := diagrams.Load("ctx.diagram.json")
	if parent.View.ChildLinks[n.ID] != "billing-v2.diagram.json" {
		t.Errorf("parent link = %q", parent.View.ChildLinks[n.ID])
	}

	// Renaming onto an existing file is refused up front.
	if _, err := r.RenameDiagram(ctx, "billing-v2.diagram.json", "ctx.diagram.json"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	if _, err := r.RenameDiagram(ctx, "billing-v2.diagram.json", "billing.json"); !errors.Is(err, apperr.ErrFormat) {
		t.Errorf("expected ErrFormat for bad suffix, got %v", err)
	}
}

func TestFindBrokenLinks(t *testing.T) {
	r, diagrams, g, store := testResolver(t)
	ctx := context.Background()

	n := mustNode(t, g, "Billing")
	if _, err := diagrams.Create(ctx, "ctx.diagram.json", "Context", model.DiagramContext); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := diagrams.AddNodeToView(ctx, "ctx.diagram.json", n.ID, model.Position{}); err != nil {
		t.Fatalf("AddNodeToView: %v", err)
	}
	child, err := r.CreateChildDiagram(ctx, "ctx.diagram.json", n.ID, n.Label, model.DiagramContainer, "")
	if err != nil {
		t.Fatalf("CreateChildDiagram: %v", err)
	}

	orphans, err := r.FindBrokenLinks(ctx)
	if err != nil {
		t.Fatalf("FindBrokenLinks: %v", err)
	}
	if len(orphans.BrokenLinks) != 0 {
		t.Errorf("healthy vault reported broken links: %+v", orphans.BrokenLinks)
	}

	// Delete the child behind the resolver's back.
	if err := store.Delete(child); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	orphans, err = r.FindBrokenLinks(ctx)
	if err != nil {
		t.Fatalf("FindBrokenLinks: %v", err)
	}
	if len(orphans.BrokenLinks) != 1 {
		t.Fatalf("broken links = %+v", orphans.BrokenLinks)
	}
	bl := orphans.BrokenLinks[0]
	if bl.DiagramPath != "ctx.diagram.json" || bl.NodeID != n.ID || bl.Target != child {
		t.Errorf("broken link = %+v", bl)
	}
}
