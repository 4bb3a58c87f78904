// Package graphview computes the temporally filtered entity graph and
// maintains a force-directed layout incrementally as the visible epoch
// changes, so scrubbing the timeline never destroys user-adjusted positions.
package graphview

import (
	"chronoscope/server/internal/world"
)

// EdgeKind distinguishes explicit relations from synthesized child→parent
// hierarchy links.
type EdgeKind string

const (
	EdgeRelation  EdgeKind = "relation"
	EdgeHierarchy EdgeKind = "hierarchy"
)

// Edge is one visible graph edge. Key() is stable across snapshots and is
// what the diff operates on.
type Edge struct {
	From  string   `json:"from"`
	To    string   `json:"to"`
	Kind  EdgeKind `json:"kind"`
	Label string   `json:"label,omitempty"`
}

// Key returns the stable identity of the edge.
func (e Edge) Key() string {
	return e.From + "→" + e.To + "#" + string(e.Kind) + ":" + e.Label
}

// VisibleSet is the filtered node/edge set for one epoch snapshot.
type VisibleSet struct {
	Nodes map[string]*world.Entity
	Edges map[string]Edge
}

// Filter holds the source graph the temporal filter runs over.
type Filter struct {
	entities  map[string]*world.Entity
	relations []world.Relation
}

// NewFilter indexes the snapshot's entities and relations.
func NewFilter(entities map[string]*world.Entity, relations []world.Relation) *Filter {
	return &Filter{entities: entities, relations: relations}
}

// VisibleSet computes the node/edge set for an epoch and a visibility mask.
// A node is visible iff it was created on or before the epoch, its type is
// not hidden, and it carries none of the hidden tags. An edge is visible
// iff both endpoints are. Hierarchy links are synthesized per child whose
// parent made it into the node set; a filtered-out parent simply means no
// hierarchy edge.
func (f *Filter) VisibleSet(epoch world.Epoch, hiddenTypes map[world.EntityType]bool, hiddenTags map[string]bool) VisibleSet {
	set := VisibleSet{
		Nodes: make(map[string]*world.Entity),
		Edges: make(map[string]Edge),
	}
	for id, entity := range f.entities {
		if !visible(entity, epoch, hiddenTypes, hiddenTags) {
			continue
		}
		set.Nodes[id] = entity
	}
	for _, rel := range f.relations {
		if _, ok := set.Nodes[rel.From.ID]; !ok {
			continue
		}
		if _, ok := set.Nodes[rel.To.ID]; !ok {
			continue
		}
		edge := Edge{From: rel.From.ID, To: rel.To.ID, Kind: EdgeRelation, Label: rel.Type}
		set.Edges[edge.Key()] = edge
	}
	for id, entity := range set.Nodes {
		if entity.ParentID == "" {
			continue
		}
		if _, ok := set.Nodes[entity.ParentID]; !ok {
			continue
		}
		edge := Edge{From: id, To: entity.ParentID, Kind: EdgeHierarchy}
		set.Edges[edge.Key()] = edge
	}
	return set
}

func visible(entity *world.Entity, epoch world.Epoch, hiddenTypes map[world.EntityType]bool, hiddenTags map[string]bool) bool {
	if entity.CreatedAt > epoch {
		return false
	}
	if hiddenTypes[entity.Type] {
		return false
	}
	for _, tag := range entity.Tags {
		if hiddenTags[tag] {
			return false
		}
	}
	return true
}

// DefaultHiddenTags mirrors the backend's default graph exclusions.
func DefaultHiddenTags() map[string]bool {
	return map[string]bool{"dead": true, "inactive": true, "absorbed": true}
}
