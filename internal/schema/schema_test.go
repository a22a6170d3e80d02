package schema

import (
	"errors"
	"testing"

	"github.com/DavidROliverBA/bac4-sub000/internal/apperr"
	"github.com/DavidROliverBA/bac4-sub000/internal/model"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    Version
		wantErr bool
	}{
		{"v3", `{"version":"3.0.0","metadata":{}}`, V300, false},
		{"v2.5", `{"version":"2.5.0","metadata":{"nodeFile":"a.graph.json"}}`, V250, false},
		{"v1.0.0", `{"version":"1.0.0","nodes":[]}`, V100, false},
		{"v0.6.0", `{"version":"0.6.0","nodes":[]}`, V060, false},
		{"pre-version with nodes", `{"name":"Old","nodes":[],"edges":[]}`, V1, false},
		{"pre-version without nodes", `{"name":"Old"}`, "", true},
		{"unknown version", `{"version":"9.9.9"}`, "", true},
		{"not json", `{{{`, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Detect([]byte(tc.raw), "x.json")
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got version %s", got)
				}
				if !errors.Is(err, apperr.ErrFormat) {
					t.Errorf("error should match ErrFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if got != tc.want {
				t.Errorf("version = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDiagramRoundTrip(t *testing.T) {
	d := &model.Diagram{
		Metadata: model.Metadata{Name: "Payments", Type: model.DiagramContainer},
		View: model.View{
			Nodes:      []string{"n1"},
			ChildLinks: map[string]string{"n1": "children/api.diagram.json"},
		},
		Snapshots: []model.Snapshot{
			{ID: "s1", Label: "Current", Layout: model.Layout{"n1": {X: 100, Y: 50}}},
		},
		CurrentSnapshotID: "s1",
	}

	raw, err := EncodeDiagram(d)
	if err != nil {
		t.Fatalf("EncodeDiagram: %v", err)
	}

	got, err := DecodeDiagram(raw, "payments.diagram.json")
	if err != nil {
		t.Fatalf("DecodeDiagram: %v", err)
	}
	if got.Metadata.Name != "Payments" || got.Metadata.Type != model.DiagramContainer {
		t.Errorf("metadata mismatch: %+v", got.Metadata)
	}
	if got.View.ChildLinks["n1"] != "children/api.diagram.json" {
		t.Errorf("child link lost: %+v", got.View.ChildLinks)
	}
	if got.CurrentSnapshotID != "s1" || got.Current() == nil {
		t.Errorf("current snapshot lost: %q", got.CurrentSnapshotID)
	}
	if got.Current().Layout["n1"].X != 100 {
		t.Errorf("layout lost: %+v", got.Current().Layout)
	}
}

func TestDecodeDiagramRejectsWrongVersion(t *testing.T) {
	_, err := DecodeDiagram([]byte(`{"version":"0.6.0","nodes":[]}`), "old.diagram.json")
	if !errors.Is(err, apperr.ErrFormat) {
		t.Errorf("expected format error, got %v", err)
	}
}

func TestDecodeDiagramRejectsMissingCurrentSnapshot(t *testing.T) {
	raw := []byte(`{
		"version": "3.0.0",
		"metadata": {"name": "X", "type": "context"},
		"view": {"nodes": []},
		"snapshots": [{"id": "s1", "label": "Current", "layout": {}}],
		"currentSnapshotId": "ghost"
	}`)
	_, err := DecodeDiagram(raw, "x.diagram.json")
	if !errors.Is(err, apperr.ErrFormat) {
		t.Errorf("expected format error, got %v", err)
	}
}

func TestGraphRoundTrip(t *testing.T) {
	g := &model.Graph{
		Nodes: []model.Node{{ID: "n1", Type: model.NodeSystem, Label: "API"}},
		Edges: []model.Edge{{ID: "e1", Source: "n1", Target: "n1", Type: model.EdgeUses}},
	}
	raw, err := EncodeGraph(g)
	if err != nil {
		t.Fatalf("EncodeGraph: %v", err)
	}
	got, err := DecodeGraph(raw, "graph.json")
	if err != nil {
		t.Fatalf("DecodeGraph: %v", err)
	}
	if len(got.Nodes) != 1 || got.Nodes[0].Label != "API" {
		t.Errorf("nodes mismatch: %+v", got.Nodes)
	}
}

func TestDecodeLegacyV1(t *testing.T) {
	raw := []byte(`{
		"name": "Old Context",
		"type": "context",
		"nodes": [
			{"id": "a", "label": "Customer", "type": "person", "x": 10, "y": 20},
			{"id": "b", "label": "Shop", "type": "system", "x": 30, "y": 40}
		],
		"edges": [
			{"id": "e1", "source": "a", "target": "b", "type": "uses", "label": "buys from"}
		]
	}`)
	doc, ver, err := DecodeLegacy(raw, "old.json", nil)
	if err != nil {
		t.Fatalf("DecodeLegacy: %v", err)
	}
	if ver != V1 {
		t.Errorf("version = %s, want %s", ver, V1)
	}
	if len(doc.Nodes) != 2 || doc.Nodes[0].Label != "Customer" || doc.Nodes[0].Pos.X != 10 {
		t.Errorf("nodes mismatch: %+v", doc.Nodes)
	}
	if len(doc.Edges) != 1 || doc.Edges[0].Label != "buys from" {
		t.Errorf("edges mismatch: %+v", doc.Edges)
	}
}

func TestDecodeLegacyV060(t *testing.T) {
	raw := []byte(`{
		"version": "0.6.0",
		"name": "Shop",
		"diagramType": "container",
		"nodes": [
			{
				"id": "a",
				"type": "container",
				"position": {"x": 5, "y": 6},
				"data": {
					"label": "Web App",
					"description": "Storefront",
					"technology": "React",
					"linkedDiagramPath": "web.diagram.json"
				}
			}
		],
		"edges": []
	}`)
	doc, ver, err := DecodeLegacy(raw, "shop.json", nil)
	if err != nil {
		t.Fatalf("DecodeLegacy: %v", err)
	}
	if ver != V060 {
		t.Errorf("version = %s, want %s", ver, V060)
	}
	n := doc.Nodes[0]
	if n.Label != "Web App" || n.Technology != "React" || n.LinkedDiagramPath != "web.diagram.json" {
		t.Errorf("node data lost: %+v", n)
	}
	if n.Pos.Y != 6 {
		t.Errorf("position lost: %+v", n.Pos)
	}
}

func TestDecodeLegacyV100RequiresTimeline(t *testing.T) {
	raw := []byte(`{"version":"1.0.0","name":"X","nodes":[],"edges":[]}`)
	_, _, err := DecodeLegacy(raw, "x.json", nil)
	if !errors.Is(err, apperr.ErrFormat) {
		t.Errorf("expected format error for missing timeline, got %v", err)
	}
}

func TestDecodeLegacyV100(t *testing.T) {
	raw := []byte(`{
		"version": "1.0.0",
		"name": "Timed",
		"diagramType": "component",
		"nodes": [{"id": "a", "type": "component", "position": {"x":1,"y":2}, "data": {"label": "Svc"}}],
		"edges": [],
		"timeline": {
			"snapshots": [
				{"id": "t1", "label": "Launch", "timestamp": "2024-01-02T03:04:05Z", "layout": {"a": {"x": 1, "y": 2}}, "edges": []}
			],
			"currentSnapshotId": "t1"
		}
	}`)
	doc, _, err := DecodeLegacy(raw, "timed.json", nil)
	if err != nil {
		t.Fatalf("DecodeLegacy: %v", err)
	}
	if len(doc.Snapshots) != 1 || doc.Snapshots[0].Label != "Launch" {
		t.Errorf("snapshots mismatch: %+v", doc.Snapshots)
	}
	if doc.CurrentSnapshotID != "t1" {
		t.Errorf("currentSnapshotId = %q", doc.CurrentSnapshotID)
	}
}

func TestDecodeLegacyV250ReadsSibling(t *testing.T) {
	view := []byte(`{
		"version": "2.5.0",
		"metadata": {"name": "Split", "diagramType": "container", "nodeFile": "split.graph.json"},
		"layout": {"a": {"x": 7, "y": 8}}
	}`)
	nodeFile := []byte(`{
		"nodes": [{"id": "a", "type": "container", "data": {"label": "Worker"}}],
		"edges": [{"id": "e1", "source": "a", "target": "a", "type": "uses"}]
	}`)

	sibling := func(path string) ([]byte, error) {
		if path != "split.graph.json" {
			t.Fatalf("unexpected sibling path %q", path)
		}
		return nodeFile, nil
	}

	doc, ver, err := DecodeLegacy(view, "split.diagram.json", sibling)
	if err != nil {
		t.Fatalf("DecodeLegacy: %v", err)
	}
	if ver != V250 {
		t.Errorf("version = %s", ver)
	}
	if doc.NodeFile != "split.graph.json" {
		t.Errorf("NodeFile = %q", doc.NodeFile)
	}
	if doc.Nodes[0].Label != "Worker" || doc.Nodes[0].Pos.X != 7 {
		t.Errorf("node not merged with layout: %+v", doc.Nodes[0])
	}
	if len(doc.Edges) != 1 {
		t.Errorf("edges mismatch: %+v", doc.Edges)
	}
}

func TestDecodeLegacyCurrentPassesThrough(t *testing.T) {
	raw := []byte(`{"version":"3.0.0","metadata":{"name":"X","type":"context"}}`)
	doc, ver, err := DecodeLegacy(raw, "x.diagram.json", nil)
	if err != nil {
		t.Fatalf("DecodeLegacy: %v", err)
	}
	if ver != V300 || doc != nil {
		t.Errorf("expected (nil, V300), got (%+v, %s)", doc, ver)
	}
}

func TestValidateDiagramCollectsAllViolations(t *testing.T) {
	g := &model.Graph{Nodes: []model.Node{{ID: "n1", Label: "A"}}}
	d := &model.Diagram{
		Metadata: model.Metadata{Name: "Bad"},
		View:     model.View{Nodes: []string{"n1", "ghost-view"}},
		Snapshots: []model.Snapshot{
			{
				ID:     "s1",
				Label:  "Current",
				Layout: model.Layout{"n1": {}, "ghost-layout": {}},
				Edges: []model.Edge{
					{ID: "e1", Source: "n1", Target: "ghost-target"},
				},
			},
		},
		CurrentSnapshotID: "s1",
	}

	err := ValidateDiagram(d, g, "bad.diagram.json")
	if err == nil {
		t.Fatal("expected validation error")
	}
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Violations) != 3 {
		t.Errorf("expected 3 violations, got %d: %v", len(ve.Violations), ve.Violations)
	}
	if !errors.Is(err, apperr.ErrValidation) {
		t.Error("validation error should match ErrValidation")
	}
}

func TestValidateDiagramAcceptsLocalNodes(t *testing.T) {
	g := &model.Graph{}
	d := &model.Diagram{
		Metadata: model.Metadata{Name: "Sketchy"},
		Snapshots: []model.Snapshot{
			{
				ID:         "s1",
				Label:      "Current",
				Layout:     model.Layout{"local-abc": {}},
				LocalNodes: []model.LocalNode{{ID: "local-abc", Label: "Draft"}},
				LocalEdges: []model.LocalEdge{
					{ID: "local-e", Source: "local-abc", Target: "local-abc"},
				},
			},
		},
		CurrentSnapshotID: "s1",
	}
	if err := ValidateDiagram(d, g, "sketchy.diagram.json"); err != nil {
		t.Errorf("local references should validate: %v", err)
	}
}

func TestValidateGraph(t *testing.T) {
	g := &model.Graph{
		Nodes: []model.Node{{ID: "n1"}},
		Edges: []model.Edge{{ID: "e1", Source: "n1", Target: "missing"}},
	}
	err := ValidateGraph(g, "graph.json")
	if err == nil {
		t.Fatal("expected validation error for dangling edge")
	}
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) || len(ve.Violations) != 1 {
		t.Errorf("expected one violation, got %v", err)
	}
}
