package migrate

import (
	"strings"

	"github.com/DavidROliverBA/bac4-sub000/internal/model"
)

// Confidence qualifies a heuristic inference. Low-confidence guesses
// are surfaced in the migration report for manual review instead of
// being silently trusted.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// InferDiagramType guesses the diagram level from a free-text type
// field and the file path, by keyword substring matching. The fallback
// is the most general level (context) at low confidence.
func InferDiagramType(rawType, path string) (model.DiagramType, Confidence) {
	haystack := strings.ToLower(rawType + " " + path)
	switch {
	case strings.Contains(haystack, "landscape"):
		return model.DiagramLandscape, ConfidenceHigh
	case strings.Contains(haystack, "container"):
		return model.DiagramContainer, ConfidenceHigh
	case strings.Contains(haystack, "component"):
		return model.DiagramComponent, ConfidenceHigh
	case strings.Contains(haystack, "code"):
		return model.DiagramCode, ConfidenceHigh
	case strings.Contains(haystack, "context"):
		return model.DiagramContext, ConfidenceHigh
	default:
		return model.DiagramContext, ConfidenceLow
	}
}

// InferNodeType guesses a node type from its free-text legacy type.
// The fallback is system (the most general kind) at low confidence.
func InferNodeType(rawType string) (model.NodeType, Confidence) {
	t := strings.ToLower(strings.TrimSpace(rawType))
	switch {
	case t == "":
		return model.NodeSystem, ConfidenceLow
	case strings.Contains(t, "person"), strings.Contains(t, "actor"), strings.Contains(t, "user"):
		return model.NodePerson, ConfidenceHigh
	case strings.Contains(t, "organisation"), strings.Contains(t, "organization"):
		return model.NodeOrganisation, ConfidenceHigh
	case strings.Contains(t, "capability"):
		return model.NodeCapability, ConfidenceHigh
	case strings.Contains(t, "market"):
		return model.NodeMarket, ConfidenceHigh
	case strings.Contains(t, "container"), strings.Contains(t, "service"), strings.Contains(t, "database"):
		return model.NodeContainer, ConfidenceHigh
	case strings.Contains(t, "component"):
		return model.NodeComponent, ConfidenceHigh
	case strings.Contains(t, "code"), strings.Contains(t, "class"):
		return model.NodeCode, ConfidenceHigh
	case strings.Contains(t, "system"):
		return model.NodeSystem, ConfidenceHigh
	default:
		return model.NodeSystem, ConfidenceLow
	}
}

// InferEdgeType guesses an edge type from its free-text legacy type,
// defaulting to the neutral kind.
func InferEdgeType(rawType string) model.EdgeType {
	t := strings.ToLower(strings.TrimSpace(rawType))
	switch {
	case strings.Contains(t, "send"), strings.Contains(t, "data"):
		return model.EdgeSendsData
	case strings.Contains(t, "depend"):
		return model.EdgeDependsOn
	case strings.Contains(t, "contain"):
		return model.EdgeContains
	case strings.Contains(t, "implement"):
		return model.EdgeImplements
	case strings.Contains(t, "use"):
		return model.EdgeUses
	default:
		return model.EdgeDefaultType
	}
}
