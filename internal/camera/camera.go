// Package camera maintains the pan/zoom view state and the screen/world
// coordinate transform. One Camera instance is owned by the hub; pointer and
// wheel handlers are its only mutators.
package camera

const (
	// MinZoom and MaxZoom bound the zoom scalar. Requested factors are
	// clamped to this range, never silently dropped.
	MinZoom = 0.1
	MaxZoom = 5.0

	// WheelOutFactor and WheelInFactor apply per wheel tick depending on
	// the delta sign.
	WheelOutFactor = 0.9
	WheelInFactor  = 1.1
)

// Camera holds the view translation in pixels and the zoom scalar.
type Camera struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`

	dragging  bool
	lastDragX float64
	lastDragY float64
}

// New returns a camera at the origin with unit zoom.
func New() *Camera {
	return &Camera{Zoom: 1.0}
}

// Pan translates the camera by a screen-space delta.
func (c *Camera) Pan(dx, dy float64) {
	c.X += dx
	c.Y += dy
}

// ZoomBy multiplies the zoom by factor and clamps the result to
// [MinZoom, MaxZoom].
func (c *Camera) ZoomBy(factor float64) {
	z := c.Zoom * factor
	if z < MinZoom {
		z = MinZoom
	}
	if z > MaxZoom {
		z = MaxZoom
	}
	c.Zoom = z
}

// Wheel applies one wheel tick: a positive delta zooms out, a negative
// delta zooms in, matching the usual deltaY convention.
func (c *Camera) Wheel(delta float64) {
	if delta > 0 {
		c.ZoomBy(WheelOutFactor)
	} else if delta < 0 {
		c.ZoomBy(WheelInFactor)
	}
}

// WorldToScreen transforms a world-space point into screen space.
func (c *Camera) WorldToScreen(wx, wy float64) (float64, float64) {
	return (wx - c.X) * c.Zoom, (wy - c.Y) * c.Zoom
}

// ScreenToWorld inverts WorldToScreen.
func (c *Camera) ScreenToWorld(sx, sy float64) (float64, float64) {
	return sx/c.Zoom + c.X, sy/c.Zoom + c.Y
}

// Center resets zoom to 1.0 and translates so the content rectangle sits
// centered in the viewport.
func (c *Camera) Center(contentW, contentH, viewportW, viewportH float64) {
	c.Zoom = 1.0
	c.X = (contentW - viewportW) / 2
	c.Y = (contentH - viewportH) / 2
}

// DragStart enters the dragging state at a pointer position.
func (c *Camera) DragStart(sx, sy float64) {
	c.dragging = true
	c.lastDragX = sx
	c.lastDragY = sy
}

// DragMove pans by the pointer delta while dragging. Moves outside an
// active drag are ignored.
func (c *Camera) DragMove(sx, sy float64) {
	if !c.dragging {
		return
	}
	c.X -= (sx - c.lastDragX) / c.Zoom
	c.Y -= (sy - c.lastDragY) / c.Zoom
	c.lastDragX = sx
	c.lastDragY = sy
}

// DragEnd leaves the dragging state. Pointer-leave must call this too so a
// drag can never get stuck.
func (c *Camera) DragEnd() {
	c.dragging = false
}

// Dragging reports whether a drag is in progress.
func (c *Camera) Dragging() bool {
	return c.dragging
}
