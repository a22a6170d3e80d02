// Package validate implements heuristic pattern detection over a
// resolved diagram graph. Analyze is a pure function of the nodes,
// edges, and diagram type it is handed; it never touches storage.
package validate

import (
	"fmt"

	"github.com/DavidROliverBA/bac4-sub000/internal/model"
)

// Severity classifies a finding.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding is a single detected pattern issue.
type Finding struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	NodeID   string   `json:"nodeId,omitempty"`
	EdgeID   string   `json:"edgeId,omitempty"`
	Message  string   `json:"message"`
}

// Report is the result of analyzing a diagram graph.
type Report struct {
	DiagramType model.DiagramType `json:"diagramType"`
	Findings    []Finding         `json:"findings"`
}

// OK reports whether the analysis produced no warnings.
func (r *Report) OK() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityWarning {
			return false
		}
	}
	return true
}

// Analyze runs all pattern checks over the given nodes and edges.
func Analyze(nodes []model.Node, edges []model.Edge, diagramType model.DiagramType) *Report {
	rep := &Report{DiagramType: diagramType, Findings: []Finding{}}

	byID := make(map[string]model.Node, len(nodes))
	degree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
		degree[n.ID] = 0
	}
	for _, e := range edges {
		degree[e.Source]++
		degree[e.Target]++
	}

	checkIsolated(rep, nodes, degree)
	checkMissingDescription(rep, nodes)
	checkUnlabeledEdges(rep, edges)
	checkLevelSkips(rep, byID, edges, diagramType)
	checkContainsDirection(rep, byID, edges)

	return rep
}

// checkIsolated flags nodes with no edges at all.
func checkIsolated(rep *Report, nodes []model.Node, degree map[string]int) {
	for _, n := range nodes {
		if degree[n.ID] == 0 {
			rep.Findings = append(rep.Findings, Finding{
				Rule:     "isolated-node",
				Severity: SeverityWarning,
				NodeID:   n.ID,
				Message:  fmt.Sprintf("node %q has no relationships", n.Label),
			})
		}
	}
}

func checkMissingDescription(rep *Report, nodes []model.Node) {
	for _, n := range nodes {
		if n.Description == "" {
			rep.Findings = append(rep.Findings, Finding{
				Rule:     "missing-description",
				Severity: SeverityInfo,
				NodeID:   n.ID,
				Message:  fmt.Sprintf("node %q has no description", n.Label),
			})
		}
	}
}

func checkUnlabeledEdges(rep *Report, edges []model.Edge) {
	for _, e := range edges {
		if e.Label == "" {
			rep.Findings = append(rep.Findings, Finding{
				Rule:     "unlabeled-edge",
				Severity: SeverityInfo,
				EdgeID:   e.ID,
				Message:  "relationship has no label describing the interaction",
			})
		}
	}
}

// abstraction levels in C4 order; a person talking straight to a
// component two levels down is usually a modelling smell.
var levelOf = map[model.NodeType]int{
	model.NodePerson:    0,
	model.NodeSystem:    1,
	model.NodeContainer: 2,
	model.NodeComponent: 3,
	model.NodeCode:      4,
}

func checkLevelSkips(rep *Report, byID map[string]model.Node, edges []model.Edge, diagramType model.DiagramType) {
	if diagramType == model.DiagramLandscape {
		// Landscape diagrams legitimately mix levels.
		return
	}
	for _, e := range edges {
		src, okS := byID[e.Source]
		tgt, okT := byID[e.Target]
		if !okS || !okT {
			continue
		}
		ls, okS := levelOf[src.Type]
		lt, okT := levelOf[tgt.Type]
		if !okS || !okT {
			continue
		}
		if lt-ls >= 2 {
			rep.Findings = append(rep.Findings, Finding{
				Rule:     "abstraction-skip",
				Severity: SeverityWarning,
				EdgeID:   e.ID,
				Message: fmt.Sprintf("%q (%s) connects directly to %q (%s), skipping an abstraction level",
					src.Label, src.Type, tgt.Label, tgt.Type),
			})
		}
	}
}

// checkContainsDirection flags "contains" edges that run upward in the
// abstraction order, e.g. a component containing a system.
func checkContainsDirection(rep *Report, byID map[string]model.Node, edges []model.Edge) {
	for _, e := range edges {
		if e.Type != model.EdgeContains {
			continue
		}
		src, okS := byID[e.Source]
		tgt, okT := byID[e.Target]
		if !okS || !okT {
			continue
		}
		ls, okS := levelOf[src.Type]
		lt, okT := levelOf[tgt.Type]
		if !okS || !okT {
			continue
		}
		if ls > lt {
			rep.Findings = append(rep.Findings, Finding{
				Rule:     "inverted-containment",
				Severity: SeverityWarning,
				EdgeID:   e.ID,
				Message: fmt.Sprintf("%q (%s) cannot contain %q (%s)",
					src.Label, src.Type, tgt.Label, tgt.Type),
			})
		}
	}
}
