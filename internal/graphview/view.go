package graphview

import (
	"math"
	"math/rand"

	"chronoscope/server/internal/palette"
	"chronoscope/server/internal/world"
)

const (
	// seedJitter is the spread applied when seeding a new node near its
	// parent so coincident spawns don't stack exactly.
	seedJitter = 24.0

	relayoutIterations = 60
	diffIterations     = 12
)

// Diff summarizes what one Apply changed; diagnostics and tests read it.
type Diff struct {
	AddedNodes   int
	RemovedNodes int
	AddedEdges   int
	RemovedEdges int
	Relayout     bool
}

// NodeView is the serialized node the client draws.
type NodeView struct {
	ID    string      `json:"id"`
	Name  string      `json:"name,omitempty"`
	Type  string      `json:"type"`
	Icon  string      `json:"icon"`
	Color palette.HSL `json:"color"`
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
}

// Scene is the rendered graph state for one epoch.
type Scene struct {
	Nodes []NodeView `json:"nodes"`
	Edges []Edge     `json:"edges"`
}

// View diffs successive visible sets against a persistent layout instead of
// rebuilding the scene, preserving positions when the slider moves by one
// step. A full force relayout runs only when the diff adds more nodes than
// the placed set grew by, or on an explicit shuffle.
type View struct {
	layout  ForceLayout
	current VisibleSet
	width   float64
	height  float64
	rng     *rand.Rand
}

// NewView wraps a layout backend with empty state.
func NewView(layout ForceLayout, width, height float64, seed int64) *View {
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 600
	}
	return &View{
		layout: layout,
		current: VisibleSet{
			Nodes: make(map[string]*world.Entity),
			Edges: make(map[string]Edge),
		},
		width:  width,
		height: height,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Apply diffs the new visible set against the rendered one. Removed
// elements leave the layout, new nodes are seeded near their parent when it
// is already placed, and topology-neutral updates touch nothing.
func (v *View) Apply(next VisibleSet, shuffle bool) Diff {
	var diff Diff
	before := len(v.current.Nodes)

	for id := range v.current.Nodes {
		if _, ok := next.Nodes[id]; !ok {
			v.layout.RemoveNode(id)
			diff.RemovedNodes++
		}
	}
	for key := range v.current.Edges {
		if _, ok := next.Edges[key]; !ok {
			v.layout.RemoveEdge(key)
			diff.RemovedEdges++
		}
	}

	positions := v.layout.Positions()
	for id, entity := range next.Nodes {
		if _, ok := v.current.Nodes[id]; ok {
			continue
		}
		x, y := v.seedPosition(entity, positions)
		v.layout.AddNode(id, x, y)
		diff.AddedNodes++
	}
	for key, edge := range next.Edges {
		if _, ok := v.current.Edges[key]; ok {
			continue
		}
		v.layout.AddEdge(key, edge.From, edge.To)
		diff.AddedEdges++
	}

	v.current = next

	netGrowth := len(next.Nodes) - before
	if netGrowth < 0 {
		netGrowth = 0
	}
	if shuffle || diff.AddedNodes > netGrowth {
		v.layout.RunLayout(relayoutIterations)
		diff.Relayout = true
	} else if diff.AddedNodes > 0 {
		v.layout.RunLayout(diffIterations)
	}
	return diff
}

// seedPosition places a new node near its parent when the parent is already
// placed, otherwise at a random point inside the canvas bounds.
func (v *View) seedPosition(entity *world.Entity, positions map[string]Point) (float64, float64) {
	if entity.ParentID != "" {
		if parent, ok := positions[entity.ParentID]; ok {
			return parent.X + (v.rng.Float64()-0.5)*seedJitter,
				parent.Y + (v.rng.Float64()-0.5)*seedJitter
		}
	}
	return v.rng.Float64() * v.width, v.rng.Float64() * v.height
}

// Shuffle forces a full relayout of the current scene.
func (v *View) Shuffle() {
	v.layout.RunLayout(relayoutIterations)
}

// MoveNode pins a node position, mirroring a user drag in the client.
func (v *View) MoveNode(id string, x, y float64) {
	v.layout.SetPosition(id, x, y)
}

// Scene serializes the rendered graph for the client.
func (v *View) Scene() Scene {
	return v.sceneFor(v.current)
}

// SceneFor serializes an arbitrary visible set against the current layout
// positions without disturbing the rendered diff state. Nodes the layout
// has never placed are omitted.
func (v *View) SceneFor(set VisibleSet) Scene {
	return v.sceneFor(set)
}

func (v *View) sceneFor(set VisibleSet) Scene {
	positions := v.layout.Positions()
	scene := Scene{
		Nodes: make([]NodeView, 0, len(set.Nodes)),
		Edges: make([]Edge, 0, len(set.Edges)),
	}
	for id, entity := range set.Nodes {
		p, ok := positions[id]
		if !ok {
			continue
		}
		scene.Nodes = append(scene.Nodes, NodeView{
			ID:    id,
			Name:  entity.Name,
			Type:  string(entity.Type),
			Icon:  palette.IconOf(entity),
			Color: palette.ColorOf(string(entity.Type)),
			X:     round1(p.X),
			Y:     round1(p.Y),
		})
	}
	for _, edge := range set.Edges {
		scene.Edges = append(scene.Edges, edge)
	}
	return scene
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
