package migrate

import (
	"testing"

	"github.com/DavidROliverBA/bac4-sub000/internal/model"
)

func TestInferDiagramType(t *testing.T) {
	cases := []struct {
		rawType string
		path    string
		want    model.DiagramType
		conf    Confidence
	}{
		{"Container Diagram", "x.json", model.DiagramContainer, ConfidenceHigh},
		{"", "systems/landscape-overview.json", model.DiagramLandscape, ConfidenceHigh},
		{"component", "x.json", model.DiagramComponent, ConfidenceHigh},
		{"", "code-level.json", model.DiagramCode, ConfidenceHigh},
		{"Context", "x.json", model.DiagramContext, ConfidenceHigh},
		{"whiteboard", "scratch.json", model.DiagramContext, ConfidenceLow},
	}
	for _, tc := range cases {
		got, conf := InferDiagramType(tc.rawType, tc.path)
		if got != tc.want || conf != tc.conf {
			t.Errorf("InferDiagramType(%q, %q) = %s/%s, want %s/%s",
				tc.rawType, tc.path, got, conf, tc.want, tc.conf)
		}
	}
}

func TestInferNodeType(t *testing.T) {
	cases := []struct {
		raw  string
		want model.NodeType
		conf Confidence
	}{
		{"person", model.NodePerson, ConfidenceHigh},
		{"External Actor", model.NodePerson, ConfidenceHigh},
		{"microservice", model.NodeContainer, ConfidenceHigh},
		{"database", model.NodeContainer, ConfidenceHigh},
		{"softwareSystem", model.NodeSystem, ConfidenceHigh},
		{"class", model.NodeCode, ConfidenceHigh},
		{"organisation", model.NodeOrganisation, ConfidenceHigh},
		{"", model.NodeSystem, ConfidenceLow},
		{"blob", model.NodeSystem, ConfidenceLow},
	}
	for _, tc := range cases {
		got, conf := InferNodeType(tc.raw)
		if got != tc.want || conf != tc.conf {
			t.Errorf("InferNodeType(%q) = %s/%s, want %s/%s", tc.raw, got, conf, tc.want, tc.conf)
		}
	}
}

func TestInferEdgeType(t *testing.T) {
	cases := []struct {
		raw  string
		want model.EdgeType
	}{
		{"sends data to", model.EdgeSendsData},
		{"depends-on", model.EdgeDependsOn},
		{"contains", model.EdgeContains},
		{"implements", model.EdgeImplements},
		{"uses", model.EdgeUses},
		{"", model.EdgeDefaultType},
		{"mystery", model.EdgeDefaultType},
	}
	for _, tc := range cases {
		if got := InferEdgeType(tc.raw); got != tc.want {
			t.Errorf("InferEdgeType(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}
