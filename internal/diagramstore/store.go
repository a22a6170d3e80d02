// Package diagramstore owns per-diagram view documents: node
// references, layout, the snapshot timeline, and snapshot-scoped local
// entities.
package diagramstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/DavidROliverBA/bac4-sub000/internal/apperr"
	"github.com/DavidROliverBA/bac4-sub000/internal/graphstore"
	"github.com/DavidROliverBA/bac4-sub000/internal/model"
	"github.com/DavidROliverBA/bac4-sub000/internal/schema"
	"github.com/DavidROliverBA/bac4-sub000/internal/storage"
)

// Store coordinates reads and writes of diagram view documents.
type Store struct {
	store  storage.Provider
	locks  *storage.PathLocker
	graph  *graphstore.Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates a diagram store over the vault provider.
func New(store storage.Provider, locks *storage.PathLocker, graph *graphstore.Store, logger *slog.Logger) *Store {
	return &Store{store: store, locks: locks, graph: graph, logger: logger, now: time.Now}
}

// Load reads and decodes a diagram document.
func (s *Store) Load(path string) (*model.Diagram, error) {
	if !strings.HasSuffix(path, storage.DocumentSuffix) {
		return nil, apperr.Formatf(path, "not a diagram document (want %s suffix)", storage.DocumentSuffix)
	}
	raw, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	return schema.DecodeDiagram(raw, path)
}

func (s *Store) save(path string, d *model.Diagram) error {
	d.Metadata.Updated = s.now()
	raw, err := schema.EncodeDiagram(d)
	if err != nil {
		return err
	}
	return s.store.Write(path, raw)
}

// mutate runs fn against the loaded diagram under the document lock and
// persists the result when fn succeeds.
func (s *Store) mutate(path string, fn func(d *model.Diagram) error) error {
	return s.locks.With(path, func() error {
		d, err := s.Load(path)
		if err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
		return s.save(path, d)
	})
}

// Create initializes a new diagram document at path with an empty view
// and a single current snapshot.
func (s *Store) Create(_ context.Context, path, name string, dtype model.DiagramType) (*model.Diagram, error) {
	if !strings.HasSuffix(path, storage.DocumentSuffix) {
		return nil, apperr.Formatf(path, "not a diagram document (want %s suffix)", storage.DocumentSuffix)
	}
	if s.store.Exists(path) {
		return nil, fmt.Errorf("diagram already exists at %s: %w", path, apperr.ErrConflict)
	}
	now := s.now()
	snap := model.Snapshot{
		ID:     model.NewID(),
		Label:  "Current",
		Layout: model.Layout{},
	}
	d := &model.Diagram{
		Metadata:          model.Metadata{Name: name, Type: dtype, Created: now, Updated: now},
		View:              model.View{Nodes: []string{}},
		Snapshots:         []model.Snapshot{snap},
		CurrentSnapshotID: snap.ID,
	}
	raw, err := schema.EncodeDiagram(d)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(path, raw); err != nil {
		return nil, err
	}
	return d, nil
}

// Get loads a diagram, creating it on first open of the path.
func (s *Store) Get(ctx context.Context, path string) (*model.Diagram, error) {
	d, err := s.Load(path)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	name := strings.TrimSuffix(baseName(path), storage.DocumentSuffix)
	return s.Create(ctx, path, name, model.DiagramContext)
}

// AddNodeToView adds a global node reference to the diagram and places
// it in the current snapshot's layout. Only the current snapshot is
// touched; sibling snapshots stay independent.
func (s *Store) AddNodeToView(_ context.Context, path, nodeID string, pos model.Position) error {
	g, err := s.graph.Load()
	if err != nil {
		return err
	}
	if g.Node(nodeID) == nil {
		return apperr.NotFound("node", nodeID)
	}
	return s.mutate(path, func(d *model.Diagram) error {
		cur := d.Current()
		if cur == nil {
			return apperr.NotFound("snapshot", d.CurrentSnapshotID)
		}
		if !d.View.HasNode(nodeID) {
			d.View.Nodes = append(d.View.Nodes, nodeID)
		}
		if cur.Layout == nil {
			cur.Layout = model.Layout{}
		}
		cur.Layout[nodeID] = pos
		return nil
	})
}

// RemoveNodeFromView drops the node reference, its layout entries in
// every snapshot, and any drill-down link. The global node itself is
// untouched.
func (s *Store) RemoveNodeFromView(_ context.Context, path, nodeID string) error {
	return s.mutate(path, func(d *model.Diagram) error {
		if !d.View.HasNode(nodeID) {
			return apperr.NotFound("node", nodeID)
		}
		nodes := d.View.Nodes[:0]
		for _, n := range d.View.Nodes {
			if n != nodeID {
				nodes = append(nodes, n)
			}
		}
		d.View.Nodes = nodes
		delete(d.View.ChildLinks, nodeID)
		for i := range d.Snapshots {
			delete(d.Snapshots[i].Layout, nodeID)
		}
		return nil
	})
}

// UpdateLayout moves or resizes a node within the current snapshot.
func (s *Store) UpdateLayout(_ context.Context, path, nodeID string, pos model.Position) error {
	return s.mutate(path, func(d *model.Diagram) error {
		cur := d.Current()
		if cur == nil {
			return apperr.NotFound("snapshot", d.CurrentSnapshotID)
		}
		if _, ok := cur.Layout[nodeID]; !ok {
			return apperr.NotFound("node", nodeID)
		}
		cur.Layout[nodeID] = pos
		return nil
	})
}

// UpdateLayouts applies a batch of position updates to the current
// snapshot in one write. Entries whose node is no longer placed in the
// snapshot are dropped; the node was removed after the move was queued.
func (s *Store) UpdateLayouts(_ context.Context, path string, positions map[string]model.Position) error {
	if len(positions) == 0 {
		return nil
	}
	return s.mutate(path, func(d *model.Diagram) error {
		cur := d.Current()
		if cur == nil {
			return apperr.NotFound("snapshot", d.CurrentSnapshotID)
		}
		for id, pos := range positions {
			if _, ok := cur.Layout[id]; ok {
				cur.Layout[id] = pos
			}
		}
		return nil
	})
}

// NextNodeLabel derives the next auto-name for the diagram from the
// labels currently visible in it.
func (s *Store) NextNodeLabel(_ context.Context, path string) (string, error) {
	d, err := s.Load(path)
	if err != nil {
		return "", err
	}
	g, err := s.graph.Load()
	if err != nil {
		return "", err
	}
	var labels []string
	for _, id := range d.View.Nodes {
		if n := g.Node(id); n != nil {
			labels = append(labels, n.Label)
		}
	}
	if cur := d.Current(); cur != nil {
		for _, ln := range cur.LocalNodes {
			labels = append(labels, ln.Label)
		}
	}
	return "Node " + strconv.Itoa(model.CounterFrom(labels)), nil
}

func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
