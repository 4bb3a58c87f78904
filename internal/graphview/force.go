package graphview

import (
	"math"
	"math/rand"
)

// ForceLayout is the minimal capability surface the view needs from a
// layout backend. Any force-directed or alternative engine can sit behind
// it; the default is the spring embedder below.
type ForceLayout interface {
	AddNode(id string, x, y float64)
	RemoveNode(id string)
	AddEdge(key, from, to string)
	RemoveEdge(key string)
	RunLayout(iterations int)
	Positions() map[string]Point
	SetPosition(id string, x, y float64)
}

// Point is a node position in canvas coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type springEdge struct {
	from, to string
}

// SpringLayout is a plain Fruchterman-Reingold style embedder over a
// bounded canvas: pairwise repulsion, spring attraction along edges, and a
// cooling step per iteration.
type SpringLayout struct {
	width    float64
	height   float64
	nodes    map[string]Point
	edges    map[string]springEdge
	adjacent map[string][]string
	rng      *rand.Rand
}

const (
	springLength   = 80.0
	repulsionScale = 2400.0
	coolingStart   = 12.0
)

// NewSpringLayout builds an empty layout over the given canvas bounds. The
// seed keeps tests deterministic; production callers pass any value.
func NewSpringLayout(width, height float64, seed int64) *SpringLayout {
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 600
	}
	return &SpringLayout{
		width:    width,
		height:   height,
		nodes:    make(map[string]Point),
		edges:    make(map[string]springEdge),
		adjacent: make(map[string][]string),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// AddNode places a node at the given position, or at a random point inside
// the canvas when the coordinates are NaN.
func (l *SpringLayout) AddNode(id string, x, y float64) {
	if math.IsNaN(x) || math.IsNaN(y) {
		x = l.rng.Float64() * l.width
		y = l.rng.Float64() * l.height
	}
	l.nodes[id] = Point{X: x, Y: y}
}

// RemoveNode drops a node and every edge touching it.
func (l *SpringLayout) RemoveNode(id string) {
	delete(l.nodes, id)
	for key, edge := range l.edges {
		if edge.from == id || edge.to == id {
			delete(l.edges, key)
		}
	}
	l.rebuildAdjacency()
}

// AddEdge registers an edge between two placed nodes. Edges referencing
// unplaced nodes are ignored.
func (l *SpringLayout) AddEdge(key, from, to string) {
	if _, ok := l.nodes[from]; !ok {
		return
	}
	if _, ok := l.nodes[to]; !ok {
		return
	}
	l.edges[key] = springEdge{from: from, to: to}
	l.adjacent[from] = append(l.adjacent[from], to)
	l.adjacent[to] = append(l.adjacent[to], from)
}

// RemoveEdge drops an edge by key.
func (l *SpringLayout) RemoveEdge(key string) {
	delete(l.edges, key)
	l.rebuildAdjacency()
}

func (l *SpringLayout) rebuildAdjacency() {
	l.adjacent = make(map[string][]string, len(l.nodes))
	for _, edge := range l.edges {
		l.adjacent[edge.from] = append(l.adjacent[edge.from], edge.to)
		l.adjacent[edge.to] = append(l.adjacent[edge.to], edge.from)
	}
}

// RunLayout performs the given number of force iterations over all nodes.
func (l *SpringLayout) RunLayout(iterations int) {
	if iterations <= 0 || len(l.nodes) == 0 {
		return
	}
	ids := make([]string, 0, len(l.nodes))
	for id := range l.nodes {
		ids = append(ids, id)
	}
	temperature := coolingStart
	for iter := 0; iter < iterations; iter++ {
		displacement := make(map[string]Point, len(ids))
		for _, a := range ids {
			pa := l.nodes[a]
			d := displacement[a]
			for _, b := range ids {
				if a == b {
					continue
				}
				pb := l.nodes[b]
				dx, dy := pa.X-pb.X, pa.Y-pb.Y
				distSq := dx*dx + dy*dy
				if distSq < 0.01 {
					dx, dy = l.rng.Float64()-0.5, l.rng.Float64()-0.5
					distSq = dx*dx + dy*dy
				}
				force := repulsionScale / distSq
				dist := math.Sqrt(distSq)
				d.X += dx / dist * force
				d.Y += dy / dist * force
			}
			displacement[a] = d
		}
		for key := range l.edges {
			edge := l.edges[key]
			pa, pb := l.nodes[edge.from], l.nodes[edge.to]
			dx, dy := pa.X-pb.X, pa.Y-pb.Y
			dist := math.Hypot(dx, dy)
			if dist < 0.01 {
				continue
			}
			pull := (dist - springLength) / dist * 0.5
			da := displacement[edge.from]
			da.X -= dx * pull
			da.Y -= dy * pull
			displacement[edge.from] = da
			db := displacement[edge.to]
			db.X += dx * pull
			db.Y += dy * pull
			displacement[edge.to] = db
		}
		for _, id := range ids {
			d := displacement[id]
			mag := math.Hypot(d.X, d.Y)
			if mag > temperature {
				d.X = d.X / mag * temperature
				d.Y = d.Y / mag * temperature
			}
			p := l.nodes[id]
			p.X = clamp(p.X+d.X, 0, l.width)
			p.Y = clamp(p.Y+d.Y, 0, l.height)
			l.nodes[id] = p
		}
		temperature *= 0.95
	}
}

// Positions returns a copy of the current node positions.
func (l *SpringLayout) Positions() map[string]Point {
	out := make(map[string]Point, len(l.nodes))
	for id, p := range l.nodes {
		out[id] = p
	}
	return out
}

// SetPosition pins a node, preserving a user drag across diffs.
func (l *SpringLayout) SetPosition(id string, x, y float64) {
	if _, ok := l.nodes[id]; !ok {
		return
	}
	l.nodes[id] = Point{X: clamp(x, 0, l.width), Y: clamp(y, 0, l.height)}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var _ ForceLayout = (*SpringLayout)(nil)
