package schema

import (
	"encoding/json"

	"github.com/DavidROliverBA/bac4-sub000/internal/apperr"
	"github.com/DavidROliverBA/bac4-sub000/internal/model"
)

// LegacyNode is the version-independent intermediate for a node read
// from any pre-global generation. Node identity is still per-diagram
// here; the migration engine resolves it into global identity.
type LegacyNode struct {
	ID                string
	Label             string
	RawType           string // free text, inferred into a NodeType later
	Description       string
	Technology        string
	Color             string
	Pos               model.Position
	LinkedDiagramPath string
}

// LegacyEdge is the version-independent intermediate for an edge.
type LegacyEdge struct {
	ID      string
	Source  string
	Target  string
	RawType string
	Label   string
}

// LegacySnapshot is the intermediate for a timeline entry (v1.0.0+).
type LegacySnapshot struct {
	ID          string
	Label       string
	Timestamp   string
	Description string
	Layout      model.Layout
	Edges       []LegacyEdge
}

// LegacyDocument is the canonical decode result for every legacy
// generation. Decoders differ only in where these fields live on disk.
type LegacyDocument struct {
	Version           Version
	Name              string
	RawDiagramType    string
	Nodes             []LegacyNode
	Edges             []LegacyEdge
	Snapshots         []LegacySnapshot
	CurrentSnapshotID string
	NodeFile          string // v2.5.0 sibling reference, if any
}

// SiblingReader resolves a sibling document by vault path. The split
// generation needs it to read the node file referenced by the view.
type SiblingReader func(path string) ([]byte, error)

type legacyDecoder func(raw []byte, path string, sibling SiblingReader) (*LegacyDocument, error)

// decoders maps each legacy generation to its parser. V300 documents do
// not decode through here; they are already current.
var decoders = map[Version]legacyDecoder{
	V1:   decodeV1,
	V060: decodeV060,
	V100: decodeV100,
	V250: decodeV250,
}

// DecodeLegacy detects the generation of raw and parses it into the
// intermediate form. Current-generation input returns (nil, V300, nil)
// so callers can classify it as already migrated.
func DecodeLegacy(raw []byte, path string, sibling SiblingReader) (*LegacyDocument, Version, error) {
	ver, err := Detect(raw, path)
	if err != nil {
		return nil, "", err
	}
	if ver == V300 {
		return nil, V300, nil
	}
	dec, ok := decoders[ver]
	if !ok {
		return nil, ver, apperr.Formatf(path, "no decoder registered for version %s", ver)
	}
	doc, err := dec(raw, path, sibling)
	if err != nil {
		return nil, ver, err
	}
	doc.Version = ver
	return doc, ver, nil
}

// --- v1: monolithic, pre-version ---

type v1File struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Nodes []struct {
		ID    string  `json:"id"`
		Label string  `json:"label"`
		Type  string  `json:"type"`
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
	} `json:"nodes"`
	Edges []struct {
		ID     string `json:"id"`
		Source string `json:"source"`
		Target string `json:"target"`
		Type   string `json:"type"`
		Label  string `json:"label"`
	} `json:"edges"`
}

func decodeV1(raw []byte, path string, _ SiblingReader) (*LegacyDocument, error) {
	var f v1File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, apperr.Formatf(path, "malformed v1 document: %v", err)
	}
	doc := &LegacyDocument{Name: f.Name, RawDiagramType: f.Type}
	for _, n := range f.Nodes {
		if n.ID == "" {
			return nil, apperr.Format(path, "v1 node without id")
		}
		doc.Nodes = append(doc.Nodes, LegacyNode{
			ID:      n.ID,
			Label:   n.Label,
			RawType: n.Type,
			Pos:     model.Position{X: n.X, Y: n.Y},
		})
	}
	for _, e := range f.Edges {
		doc.Edges = append(doc.Edges, LegacyEdge{
			ID: e.ID, Source: e.Source, Target: e.Target, RawType: e.Type, Label: e.Label,
		})
	}
	return doc, nil
}

// --- v0.6.0 and v1.0.0: self-contained node data ---

type selfContainedNode struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Position struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"position"`
	Data struct {
		Label             string `json:"label"`
		Description       string `json:"description"`
		Technology        string `json:"technology"`
		Color             string `json:"color"`
		LinkedDiagramPath string `json:"linkedDiagramPath"`
	} `json:"data"`
}

type selfContainedEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
	Label  string `json:"label"`
}

type timelineFile struct {
	Snapshots []struct {
		ID          string              `json:"id"`
		Label       string              `json:"label"`
		Timestamp   string              `json:"timestamp"`
		Description string              `json:"description"`
		Layout      map[string]model.Position `json:"layout"`
		Edges       []selfContainedEdge `json:"edges"`
	} `json:"snapshots"`
	CurrentSnapshotID string `json:"currentSnapshotId"`
}

type v060File struct {
	Version     string              `json:"version"`
	Name        string              `json:"name"`
	DiagramType string              `json:"diagramType"`
	Nodes       []selfContainedNode `json:"nodes"`
	Edges       []selfContainedEdge `json:"edges"`
	Timeline    *timelineFile       `json:"timeline"`
}

func decodeSelfContained(raw []byte, path string) (*LegacyDocument, error) {
	var f v060File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, apperr.Formatf(path, "malformed self-contained document: %v", err)
	}
	doc := &LegacyDocument{Name: f.Name, RawDiagramType: f.DiagramType}
	for _, n := range f.Nodes {
		if n.ID == "" {
			return nil, apperr.Format(path, "node without id")
		}
		doc.Nodes = append(doc.Nodes, LegacyNode{
			ID:                n.ID,
			Label:             n.Data.Label,
			RawType:           n.Type,
			Description:       n.Data.Description,
			Technology:        n.Data.Technology,
			Color:             n.Data.Color,
			Pos:               model.Position{X: n.Position.X, Y: n.Position.Y},
			LinkedDiagramPath: n.Data.LinkedDiagramPath,
		})
	}
	for _, e := range f.Edges {
		doc.Edges = append(doc.Edges, LegacyEdge{
			ID: e.ID, Source: e.Source, Target: e.Target, RawType: e.Type, Label: e.Label,
		})
	}
	if f.Timeline != nil {
		for _, s := range f.Timeline.Snapshots {
			ls := LegacySnapshot{
				ID:          s.ID,
				Label:       s.Label,
				Timestamp:   s.Timestamp,
				Description: s.Description,
				Layout:      model.Layout(s.Layout),
			}
			for _, e := range s.Edges {
				ls.Edges = append(ls.Edges, LegacyEdge{
					ID: e.ID, Source: e.Source, Target: e.Target, RawType: e.Type, Label: e.Label,
				})
			}
			doc.Snapshots = append(doc.Snapshots, ls)
		}
		doc.CurrentSnapshotID = f.Timeline.CurrentSnapshotID
	}
	return doc, nil
}

func decodeV060(raw []byte, path string, _ SiblingReader) (*LegacyDocument, error) {
	return decodeSelfContained(raw, path)
}

func decodeV100(raw []byte, path string, _ SiblingReader) (*LegacyDocument, error) {
	doc, err := decodeSelfContained(raw, path)
	if err != nil {
		return nil, err
	}
	if len(doc.Snapshots) == 0 {
		return nil, apperr.Format(path, "v1.0.0 document without timeline snapshots")
	}
	return doc, nil
}

// --- v2.5.0: split view + node files ---

type v250ViewFile struct {
	Version  string `json:"version"`
	Metadata struct {
		Name        string `json:"name"`
		DiagramType string `json:"diagramType"`
		NodeFile    string `json:"nodeFile"`
	} `json:"metadata"`
	Layout   map[string]model.Position `json:"layout"`
	Timeline *timelineFile             `json:"timeline"`
}

type v250NodeFile struct {
	Nodes []selfContainedNode `json:"nodes"`
	Edges []selfContainedEdge `json:"edges"`
}

func decodeV250(raw []byte, path string, sibling SiblingReader) (*LegacyDocument, error) {
	var vf v250ViewFile
	if err := json.Unmarshal(raw, &vf); err != nil {
		return nil, apperr.Formatf(path, "malformed v2.5.0 view document: %v", err)
	}
	if vf.Metadata.NodeFile == "" {
		return nil, apperr.Format(path, "v2.5.0 view document missing metadata.nodeFile")
	}
	if sibling == nil {
		return nil, apperr.Format(path, "v2.5.0 document requires a sibling reader")
	}
	nraw, err := sibling(vf.Metadata.NodeFile)
	if err != nil {
		return nil, apperr.Formatf(path, "node file %s unreadable: %v", vf.Metadata.NodeFile, err)
	}
	var nf v250NodeFile
	if err := json.Unmarshal(nraw, &nf); err != nil {
		return nil, apperr.Formatf(vf.Metadata.NodeFile, "malformed v2.5.0 node document: %v", err)
	}

	doc := &LegacyDocument{
		Name:           vf.Metadata.Name,
		RawDiagramType: vf.Metadata.DiagramType,
		NodeFile:       vf.Metadata.NodeFile,
	}
	for _, n := range nf.Nodes {
		ln := LegacyNode{
			ID:                n.ID,
			Label:             n.Data.Label,
			RawType:           n.Type,
			Description:       n.Data.Description,
			Technology:        n.Data.Technology,
			Color:             n.Data.Color,
			LinkedDiagramPath: n.Data.LinkedDiagramPath,
		}
		if pos, ok := vf.Layout[n.ID]; ok {
			ln.Pos = pos
		}
		doc.Nodes = append(doc.Nodes, ln)
	}
	for _, e := range nf.Edges {
		doc.Edges = append(doc.Edges, LegacyEdge{
			ID: e.ID, Source: e.Source, Target: e.Target, RawType: e.Type, Label: e.Label,
		})
	}
	if vf.Timeline != nil {
		for _, s := range vf.Timeline.Snapshots {
			ls := LegacySnapshot{
				ID:          s.ID,
				Label:       s.Label,
				Timestamp:   s.Timestamp,
				Description: s.Description,
				Layout:      model.Layout(s.Layout),
			}
			for _, e := range s.Edges {
				ls.Edges = append(ls.Edges, LegacyEdge{
					ID: e.ID, Source: e.Source, Target: e.Target, RawType: e.Type, Label: e.Label,
				})
			}
			doc.Snapshots = append(doc.Snapshots, ls)
		}
		doc.CurrentSnapshotID = vf.Timeline.CurrentSnapshotID
	}
	return doc, nil
}
