// Package spatial places child entities inside a parent tile without
// overlap. Placement is a fixed closed-form heuristic rather than a packing
// solver: tile occupancy is small and reproducibility matters more than
// optimal use of space.
package spatial

import (
	"math"
	"sort"

	"chronoscope/server/internal/world"
)

// Offset is a tile-local normalized coordinate in [0,1]x[0,1].
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Style selects between the canonical circular layout and the grid variant
// used for capacity slot assignment.
type Style int

const (
	StyleRing Style = iota
	StyleGrid
)

const ringRadius = 0.3

// Slots returns n placement offsets for the given style. For the ring style
// the exact policy is: one child centered, two on the diagonal, three or
// more evenly spaced on a radius-0.3 circle starting at the top and
// proceeding clockwise.
func Slots(n int, style Style) []Offset {
	if n <= 0 {
		return nil
	}
	if style == StyleGrid {
		return gridSlots(n)
	}
	switch n {
	case 1:
		return []Offset{{X: 0.5, Y: 0.5}}
	case 2:
		return []Offset{{X: 0.35, Y: 0.35}, {X: 0.65, Y: 0.65}}
	}
	slots := make([]Offset, 0, n)
	for i := 0; i < n; i++ {
		angle := (2*math.Pi/float64(n))*float64(i) - math.Pi/2
		slots = append(slots, Offset{
			X: 0.5 + ringRadius*math.Cos(angle),
			Y: 0.5 + ringRadius*math.Sin(angle),
		})
	}
	return slots
}

func gridSlots(n int) []Offset {
	side := int(math.Ceil(math.Sqrt(float64(n))))
	step := 1.0 / float64(side+1)
	slots := make([]Offset, 0, n)
	for row := 0; row < side && len(slots) < n; row++ {
		for col := 0; col < side && len(slots) < n; col++ {
			slots = append(slots, Offset{
				X: step * float64(col+1),
				Y: step * float64(row+1),
			})
		}
	}
	return slots
}

// Place assigns one offset per child entity. Children are sorted by id
// before placement so the result is identical across rebuilds regardless of
// input order. Children carrying a generator-assigned slot index keep their
// slot; the rest fill the remaining positions in sorted order.
func Place(children []*world.Entity, style Style) map[string]Offset {
	if len(children) == 0 {
		return nil
	}
	ordered := make([]*world.Entity, len(children))
	copy(ordered, children)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	slots := Slots(len(ordered), style)
	placed := make(map[string]Offset, len(ordered))
	taken := make(map[int]bool, len(ordered))

	// First pass honors explicit slot indices within range.
	pending := make([]*world.Entity, 0, len(ordered))
	for _, child := range ordered {
		if idx, ok := child.SlotIndex(); ok && idx >= 0 && idx < len(slots) && !taken[idx] {
			placed[child.ID] = slots[idx]
			taken[idx] = true
			continue
		}
		pending = append(pending, child)
	}

	next := 0
	for _, child := range pending {
		for next < len(slots) && taken[next] {
			next++
		}
		if next >= len(slots) {
			placed[child.ID] = Offset{X: 0.5, Y: 0.5}
			continue
		}
		placed[child.ID] = slots[next]
		taken[next] = true
	}
	return placed
}
