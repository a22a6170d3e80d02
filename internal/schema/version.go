// Package schema declares the on-disk shape of diagram documents across
// format generations and decodes each into one canonical in-memory form.
package schema

import (
	"encoding/json"

	"github.com/DavidROliverBA/bac4-sub000/internal/apperr"
)

// Version identifies a document format generation.
type Version string

const (
	// V1 is the original monolithic format. It predates the version
	// field, so it is inferred from shape: top-level nodes/edges with
	// per-diagram node identity and a central relationship index.
	V1 Version = "1"
	// V060 is the self-contained format: versioned, drill-down links
	// embedded in node data.
	V060 Version = "0.6.0"
	// V100 adds the snapshot timeline.
	V100 Version = "1.0.0"
	// V250 splits presentation from node data into sibling files.
	V250 Version = "2.5.0"
	// V300 is the current generation: node identity is global, the
	// diagram document references node IDs only.
	V300 Version = "3.0.0"
)

// Current is the generation documents are migrated to.
const Current = V300

// envelope is the minimal shape inspected to pick a decoder.
type envelope struct {
	Version  string          `json:"version"`
	Nodes    json.RawMessage `json:"nodes"`
	Edges    json.RawMessage `json:"edges"`
	Timeline json.RawMessage `json:"timeline"`
	Metadata struct {
		NodeFile string `json:"nodeFile"`
	} `json:"metadata"`
}

// NodeFileRef returns the split-generation sibling a view document
// references, or "" when it has none. Malformed input returns "".
func NodeFileRef(raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	return env.Metadata.NodeFile
}

// Detect inspects a document's version field, or infers the generation
// from structural shape when the field is absent. Unrecognized input
// fails with a FormatError naming the file; it never coerces.
func Detect(raw []byte, path string) (Version, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", apperr.Formatf(path, "not a JSON document: %v", err)
	}

	switch env.Version {
	case string(V060):
		return V060, nil
	case string(V100):
		return V100, nil
	case string(V250):
		return V250, nil
	case string(V300):
		return V300, nil
	case "":
		// Pre-version generation: must look like the monolithic shape.
		if env.Nodes != nil {
			return V1, nil
		}
		return "", apperr.Format(path, "no version field and no top-level nodes; expected one of the known diagram shapes")
	default:
		return "", apperr.Formatf(path, "unrecognized version %q (known: 0.6.0, 1.0.0, 2.5.0, 3.0.0)", env.Version)
	}
}
