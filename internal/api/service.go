package api

import (
	"context"
	"log/slog"
	"sync"

	"github.com/DavidROliverBA/bac4-sub000/internal/autosave"
	"github.com/DavidROliverBA/bac4-sub000/internal/diagramstore"
	"github.com/DavidROliverBA/bac4-sub000/internal/graphstore"
	"github.com/DavidROliverBA/bac4-sub000/internal/index"
	"github.com/DavidROliverBA/bac4-sub000/internal/migrate"
	"github.com/DavidROliverBA/bac4-sub000/internal/model"
	"github.com/DavidROliverBA/bac4-sub000/internal/navigate"
	"github.com/DavidROliverBA/bac4-sub000/internal/validate"
)

// Service coordinates the domain stores for the API layer.
type Service struct {
	Graph    *graphstore.Store
	Diagrams *diagramstore.Store
	Nav      *navigate.Resolver
	Engine   *migrate.Engine
	DB       index.DiagramIndex
	Saver    *autosave.Scheduler
	Logger   *slog.Logger

	mu             sync.Mutex
	pendingLayouts map[string]map[string]model.Position
}

// NewService creates a new API service.
func NewService(graph *graphstore.Store, diagrams *diagramstore.Store, nav *navigate.Resolver, engine *migrate.Engine, db index.DiagramIndex, saver *autosave.Scheduler, logger *slog.Logger) *Service {
	return &Service{
		Graph:          graph,
		Diagrams:       diagrams,
		Nav:            nav,
		Engine:         engine,
		DB:             db,
		Saver:          saver,
		Logger:         logger,
		pendingLayouts: make(map[string]map[string]model.Position),
	}
}

// ScheduleLayout debounces layout writes for one diagram. Moves are
// merged into a pending set per diagram, so dragging several nodes
// inside one idle window persists all of them; per node the last
// scheduled position wins. The fired write runs after the request has
// ended, so it is not bound to a request context.
func (s *Service) ScheduleLayout(path, nodeID string, pos model.Position) {
	s.mu.Lock()
	batch, ok := s.pendingLayouts[path]
	if !ok {
		batch = make(map[string]model.Position)
		s.pendingLayouts[path] = batch
	}
	batch[nodeID] = pos
	s.mu.Unlock()

	s.Saver.Schedule(path, func() error {
		s.mu.Lock()
		queued := s.pendingLayouts[path]
		delete(s.pendingLayouts, path)
		s.mu.Unlock()
		if len(queued) == 0 {
			return nil
		}
		return s.Diagrams.UpdateLayouts(context.Background(), path, queued)
	})
}

// ValidateDiagram resolves a diagram's current snapshot into concrete
// nodes and edges and runs the pattern analyzer over them. Local sketch
// nodes participate with their local IDs.
func (s *Service) ValidateDiagram(ctx context.Context, path string) (*validate.Report, error) {
	d, err := s.Diagrams.Load(path)
	if err != nil {
		return nil, err
	}
	g, err := s.Graph.Load()
	if err != nil {
		return nil, err
	}

	cur := d.Current()

	inView := make(map[string]struct{}, len(d.View.Nodes))
	var nodes []model.Node
	for _, id := range d.View.Nodes {
		if n := g.Node(id); n != nil {
			nodes = append(nodes, *n)
			inView[id] = struct{}{}
		}
	}
	if cur != nil {
		for _, ln := range cur.LocalNodes {
			nodes = append(nodes, model.Node{
				ID:          ln.ID,
				Type:        ln.Type,
				Label:       ln.Label,
				Description: ln.Description,
				Technology:  ln.Technology,
			})
			inView[ln.ID] = struct{}{}
		}
	}

	var edges []model.Edge
	for _, e := range g.Edges {
		_, okS := inView[e.Source]
		_, okT := inView[e.Target]
		if okS && okT {
			edges = append(edges, e)
		}
	}
	if cur != nil {
		for _, le := range cur.LocalEdges {
			edges = append(edges, model.Edge{
				ID:     le.ID,
				Source: le.Source,
				Target: le.Target,
				Type:   le.Type,
				Label:  le.Label,
			})
		}
	}

	return validate.Analyze(nodes, edges, d.Metadata.Type), nil
}
