// Package model defines the diagram graph domain types shared by the
// stores, the migration engine, and the serving layers.
package model

import (
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// NodeType classifies a global node.
type NodeType string

// Known node types, from C4 plus the business-layer extensions.
const (
	NodePerson       NodeType = "person"
	NodeSystem       NodeType = "system"
	NodeContainer    NodeType = "container"
	NodeComponent    NodeType = "component"
	NodeCode         NodeType = "code"
	NodeMarket       NodeType = "market"
	NodeOrganisation NodeType = "organisation"
	NodeCapability   NodeType = "capability"
)

// NodeTypes lists every valid node type.
var NodeTypes = []NodeType{
	NodePerson, NodeSystem, NodeContainer, NodeComponent,
	NodeCode, NodeMarket, NodeOrganisation, NodeCapability,
}

// EdgeType classifies a relationship between two nodes.
type EdgeType string

const (
	EdgeUses        EdgeType = "uses"
	EdgeSendsData   EdgeType = "sends-data-to"
	EdgeDependsOn   EdgeType = "depends-on"
	EdgeContains    EdgeType = "contains"
	EdgeImplements  EdgeType = "implements"
	EdgeDefaultType EdgeType = "default"
)

// EdgeTypes lists every valid edge type.
var EdgeTypes = []EdgeType{
	EdgeUses, EdgeSendsData, EdgeDependsOn, EdgeContains, EdgeImplements, EdgeDefaultType,
}

// DiagramType classifies a diagram level in the C4 hierarchy.
type DiagramType string

const (
	DiagramContext   DiagramType = "context"
	DiagramContainer DiagramType = "container"
	DiagramComponent DiagramType = "component"
	DiagramCode      DiagramType = "code"
	DiagramLandscape DiagramType = "landscape"
)

// Style holds presentation hints persisted with an entity. Rendering is
// out of scope; the fields are carried opaquely.
type Style struct {
	Color string `json:"color,omitempty"`
	Icon  string `json:"icon,omitempty"`
	Shape string `json:"shape,omitempty"`
}

// Knowledge is free-form documentation attached to a node.
type Knowledge struct {
	Notes       string   `json:"notes,omitempty"`
	URLs        []string `json:"urls,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

// Node is a global graph node. Identity is the generated ID; the label
// must be unique across the whole vault.
type Node struct {
	ID          string             `json:"id"`
	Type        NodeType           `json:"type"`
	Label       string             `json:"label"`
	Description string             `json:"description,omitempty"`
	Technology  string             `json:"technology,omitempty"`
	Team        string             `json:"team,omitempty"`
	Knowledge   *Knowledge         `json:"knowledge,omitempty"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
	Style       Style              `json:"style,omitempty"`
	Created     time.Time          `json:"created"`
	Updated     time.Time          `json:"updated"`
}

// Direction indicates where an edge's arrowheads point.
type Direction string

const (
	DirLeft  Direction = "left"
	DirRight Direction = "right"
	DirBoth  Direction = "both"
)

// Edge is a global relationship between two nodes by ID.
type Edge struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	Type      EdgeType  `json:"type"`
	Label     string    `json:"label,omitempty"`
	Direction Direction `json:"direction,omitempty"`
	Style     Style     `json:"style,omitempty"`
}

// NodeDraft is the caller-supplied shape for creating a node.
type NodeDraft struct {
	Type        NodeType           `json:"type"`
	Label       string             `json:"label"`
	Description string             `json:"description,omitempty"`
	Technology  string             `json:"technology,omitempty"`
	Team        string             `json:"team,omitempty"`
	Knowledge   *Knowledge         `json:"knowledge,omitempty"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
	Style       Style              `json:"style,omitempty"`
}

// Validate checks the draft before a node is created from it.
func (d NodeDraft) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Label, validation.Required, validation.Length(1, 256)),
		validation.Field(&d.Type, validation.Required, validation.In(toAny(NodeTypes)...)),
	)
}

// EdgeDraft is the caller-supplied shape for creating an edge.
type EdgeDraft struct {
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	Type      EdgeType  `json:"type"`
	Label     string    `json:"label,omitempty"`
	Direction Direction `json:"direction,omitempty"`
	Style     Style     `json:"style,omitempty"`
}

// Validate checks the draft before an edge is created from it.
func (d EdgeDraft) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Source, validation.Required),
		validation.Field(&d.Target, validation.Required),
		validation.Field(&d.Type, validation.Required, validation.In(toAny(EdgeTypes)...)),
	)
}

func toAny[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// LocalIDPrefix distinguishes snapshot-scoped entity IDs from global ones.
const LocalIDPrefix = "local-"

// NewID returns a fresh global entity ID.
func NewID() string {
	return uuid.NewString()
}

// NewLocalID returns a fresh snapshot-scoped entity ID.
func NewLocalID() string {
	return LocalIDPrefix + uuid.NewString()
}

// IsLocalID reports whether id belongs to a snapshot-scoped entity.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// CounterFrom derives the next auto-name counter from existing labels of
// the form "Node N". It is recomputed on load and never persisted.
func CounterFrom(labels []string) int {
	max := 0
	for _, l := range labels {
		rest, ok := strings.CutPrefix(l, "Node ")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil || n <= max {
			continue
		}
		max = n
	}
	return max + 1
}
