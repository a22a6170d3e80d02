package diagramstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DavidROliverBA/bac4-sub000/internal/apperr"
	"github.com/DavidROliverBA/bac4-sub000/internal/model"
)

// CreateSnapshot deep-copies the current snapshot's layout, edges, and
// local entities into a new timeline entry. The current snapshot does
// NOT change: the caller stays where they are and switches explicitly.
func (s *Store) CreateSnapshot(_ context.Context, path, label, description string, ts *time.Time) (*model.Snapshot, error) {
	var created model.Snapshot
	err := s.mutate(path, func(d *model.Diagram) error {
		cur := d.Current()
		if cur == nil {
			return apperr.NotFound("snapshot", d.CurrentSnapshotID)
		}
		created = cur.Clone()
		created.ID = model.NewID()
		created.Label = label
		created.Description = description
		created.Timestamp = ts
		d.Snapshots = append(d.Snapshots, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// SwitchSnapshot makes the given snapshot current.
func (s *Store) SwitchSnapshot(_ context.Context, path, snapshotID string) error {
	return s.mutate(path, func(d *model.Diagram) error {
		if d.Snapshot(snapshotID) == nil {
			return apperr.NotFound("snapshot", snapshotID)
		}
		d.CurrentSnapshotID = snapshotID
		return nil
	})
}

// DeleteSnapshot removes a snapshot from the timeline. The last
// remaining snapshot and the currently active one are protected; the
// caller must switch away before deleting the active snapshot.
func (s *Store) DeleteSnapshot(_ context.Context, path, snapshotID string) error {
	return s.mutate(path, func(d *model.Diagram) error {
		if d.Snapshot(snapshotID) == nil {
			return apperr.NotFound("snapshot", snapshotID)
		}
		if len(d.Snapshots) == 1 {
			return fmt.Errorf("cannot delete the last remaining snapshot: %w", apperr.ErrConflict)
		}
		if d.CurrentSnapshotID == snapshotID {
			return fmt.Errorf("cannot delete the active snapshot, switch away first: %w", apperr.ErrConflict)
		}
		out := d.Snapshots[:0]
		for _, snap := range d.Snapshots {
			if snap.ID != snapshotID {
				out = append(out, snap)
			}
		}
		d.Snapshots = out
		return nil
	})
}

// LocalNodeDraft is the caller-supplied shape for a snapshot-scoped
// sketch node.
type LocalNodeDraft struct {
	Type        model.NodeType `json:"type"`
	Label       string         `json:"label"`
	Description string         `json:"description,omitempty"`
	Technology  string         `json:"technology,omitempty"`
	Style       model.Style    `json:"style,omitempty"`
}

// AddLocalNode adds a sketch node to one snapshot. The label must be
// unique against the global graph and every local node already in that
// snapshot.
func (s *Store) AddLocalNode(ctx context.Context, path, snapshotID string, draft LocalNodeDraft, pos model.Position) (*model.LocalNode, error) {
	if draft.Label == "" {
		return nil, apperr.Format(path, "local node label is required")
	}
	unique, err := s.graph.CheckNameUniqueness(ctx, draft.Label, "")
	if err != nil {
		return nil, err
	}
	if !unique.IsUnique {
		return nil, &apperr.DuplicateNameError{Label: draft.Label, ExistingID: unique.ExistingNode.ID}
	}
	var created model.LocalNode
	err = s.mutate(path, func(d *model.Diagram) error {
		snap := d.Snapshot(snapshotID)
		if snap == nil {
			return apperr.NotFound("snapshot", snapshotID)
		}
		for _, ln := range snap.LocalNodes {
			if ln.Label == draft.Label {
				return &apperr.DuplicateNameError{Label: draft.Label, ExistingID: ln.ID}
			}
		}
		created = model.LocalNode{
			ID:          model.NewLocalID(),
			Type:        draft.Type,
			Label:       draft.Label,
			Description: draft.Description,
			Technology:  draft.Technology,
			Style:       draft.Style,
		}
		snap.LocalNodes = append(snap.LocalNodes, created)
		if snap.Layout == nil {
			snap.Layout = model.Layout{}
		}
		snap.Layout[created.ID] = pos
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// AddLocalEdge adds a snapshot-scoped edge. Endpoints may be global
// node IDs or local node IDs present in the same snapshot.
func (s *Store) AddLocalEdge(_ context.Context, path, snapshotID string, source, target string, etype model.EdgeType, label string) (*model.LocalEdge, error) {
	g, err := s.graph.Load()
	if err != nil {
		return nil, err
	}
	var created model.LocalEdge
	err = s.mutate(path, func(d *model.Diagram) error {
		snap := d.Snapshot(snapshotID)
		if snap == nil {
			return apperr.NotFound("snapshot", snapshotID)
		}
		for _, end := range []string{source, target} {
			if model.IsLocalID(end) {
				found := false
				for _, ln := range snap.LocalNodes {
					if ln.ID == end {
						found = true
						break
					}
				}
				if !found {
					return apperr.NotFound("node", end)
				}
			} else if g.Node(end) == nil {
				return apperr.NotFound("node", end)
			}
		}
		created = model.LocalEdge{
			ID:     model.NewLocalID(),
			Source: source,
			Target: target,
			Type:   etype,
			Label:  label,
		}
		snap.LocalEdges = append(snap.LocalEdges, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// PromoteNodeToGlobal converts a local node into a global node: the
// global graph gains the node (label uniqueness enforced there), the
// snapshot's layout key and local-edge endpoints are rewritten from the
// local ID to the new global ID, the local node is removed, and the
// diagram's view gains the reference.
//
// The graph document is written first so the view never references a
// node that is not on disk. If the diagram write then fails, the
// freshly created global node is removed again so the caller observes
// all-or-nothing behavior.
func (s *Store) PromoteNodeToGlobal(ctx context.Context, path, snapshotID, localNodeID string) (*model.Node, error) {
	d, err := s.Load(path)
	if err != nil {
		return nil, err
	}
	snap := d.Snapshot(snapshotID)
	if snap == nil {
		return nil, apperr.NotFound("snapshot", snapshotID)
	}
	var local *model.LocalNode
	for i := range snap.LocalNodes {
		if snap.LocalNodes[i].ID == localNodeID {
			local = &snap.LocalNodes[i]
			break
		}
	}
	if local == nil {
		return nil, apperr.NotFound("node", localNodeID)
	}

	node, err := s.graph.CreateNode(ctx, model.NodeDraft{
		Type:        local.Type,
		Label:       local.Label,
		Description: local.Description,
		Technology:  local.Technology,
		Style:       local.Style,
	})
	if err != nil {
		return nil, err
	}

	err = s.mutate(path, func(d *model.Diagram) error {
		snap := d.Snapshot(snapshotID)
		if snap == nil {
			return apperr.NotFound("snapshot", snapshotID)
		}
		locals := snap.LocalNodes[:0]
		found := false
		for _, ln := range snap.LocalNodes {
			if ln.ID == localNodeID {
				found = true
				continue
			}
			locals = append(locals, ln)
		}
		if !found {
			return apperr.NotFound("node", localNodeID)
		}
		snap.LocalNodes = locals

		if pos, ok := snap.Layout[localNodeID]; ok {
			delete(snap.Layout, localNodeID)
			snap.Layout[node.ID] = pos
		}
		for i := range snap.LocalEdges {
			if snap.LocalEdges[i].Source == localNodeID {
				snap.LocalEdges[i].Source = node.ID
			}
			if snap.LocalEdges[i].Target == localNodeID {
				snap.LocalEdges[i].Target = node.ID
			}
		}
		if !d.View.HasNode(node.ID) {
			d.View.Nodes = append(d.View.Nodes, node.ID)
		}
		return nil
	})
	if err != nil {
		// Compensate: the view rewrite failed, so retract the node to
		// keep the promotion all-or-nothing for the caller.
		if _, delErr := s.graph.DeleteNode(ctx, node.ID); delErr != nil {
			s.logger.Error("promotion rollback failed",
				slog.String("node", node.ID), slog.String("error", delErr.Error()))
		}
		return nil, err
	}
	return node, nil
}
