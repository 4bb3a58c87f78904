// Package render turns the loaded world and an (epoch, progress) position
// into screen-space geometry. The output is a display list a thin client
// paints back-to-front; all transforms are already applied.
package render

import "chronoscope/server/internal/palette"

// OpKind tags entries in the display list.
type OpKind string

const (
	OpRect  OpKind = "rect"
	OpLine  OpKind = "line"
	OpIcon  OpKind = "icon"
	OpGlyph OpKind = "glyph"
)

// DrawOp is one paint instruction in screen space. Fields are pruned per
// kind when serialized; coordinates are pixels after the camera transform.
type DrawOp struct {
	Kind  OpKind  `json:"kind"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w,omitempty"`
	H     float64 `json:"h,omitempty"`
	X2    float64 `json:"x2,omitempty"`
	Y2    float64 `json:"y2,omitempty"`
	Color string  `json:"color,omitempty"`
	Text  string  `json:"text,omitempty"`
	Scale float64 `json:"scale,omitempty"`
	Alpha float64 `json:"alpha,omitempty"`
	Ref   string  `json:"ref,omitempty"`
}

// CameraState is the view transform snapshot included with each frame so
// the client can echo input coordinates back in world space.
type CameraState struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// Frame is one fully rendered view of the world at a fractional epoch.
type Frame struct {
	Epoch    int         `json:"epoch"`
	Progress float64     `json:"progress"`
	Camera   CameraState `json:"camera"`
	Ops      []DrawOp    `json:"ops"`
}

// Legend describes the biome palette for the overlay the client renders
// alongside the map.
type LegendEntry struct {
	BiomeID string      `json:"biome_id"`
	Color   string      `json:"color"`
	Swatch  palette.HSL `json:"swatch"`
}
