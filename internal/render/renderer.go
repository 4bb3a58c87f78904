package render

import (
	"math"

	"chronoscope/server/internal/camera"
	"chronoscope/server/internal/history"
	"chronoscope/server/internal/world"
)

const (
	backgroundColor = "#11131a"
	gridColor       = "#2a2e3a"

	// gridZoomCutoff skips grid lines below this zoom; at that scale they
	// alias into noise and dominate the op count.
	gridZoomCutoff = 0.5
)

// locatedKinds are the entity types whose events resolve to the parent
// entity's position when used as an event anchor.
var locatedKinds = map[world.EntityType]bool{
	world.TypeFaction:   true,
	world.TypeResource:  true,
	world.TypeCharacter: true,
	world.TypeBoss:      true,
}

// Renderer paints the world for a possibly fractional epoch. It owns no
// mutable state beyond the caches handed to it; a faulty entity or event is
// skipped without aborting the frame.
type Renderer struct {
	layout    world.Layout
	cache     Cache
	entities  map[string]*world.Entity
	index     *history.Index
	cam       *camera.Camera
	viewportW float64
	viewportH float64
}

// New builds a renderer over the prepared caches.
func New(layout world.Layout, cache Cache, entities map[string]*world.Entity, index *history.Index, cam *camera.Camera) *Renderer {
	return &Renderer{
		layout:    layout,
		cache:     cache,
		entities:  entities,
		index:     index,
		cam:       cam,
		viewportW: 800,
		viewportH: 600,
	}
}

// SetViewport records the client surface size used for the background fill.
func (r *Renderer) SetViewport(w, h float64) {
	if w > 0 {
		r.viewportW = w
	}
	if h > 0 {
		r.viewportH = h
	}
}

// Draw produces the display list for one frame. Layer order is fixed:
// background, terrain, grid, entity icons, event glyphs.
func (r *Renderer) Draw(epoch float64, progress float64) Frame {
	whole := world.Epoch(math.Floor(epoch))
	frame := Frame{
		Epoch:    whole,
		Progress: progress,
		Camera:   CameraState{X: r.cam.X, Y: r.cam.Y, Zoom: r.cam.Zoom},
	}
	frame.Ops = append(frame.Ops, DrawOp{
		Kind: OpRect, X: 0, Y: 0, W: r.viewportW, H: r.viewportH, Color: backgroundColor,
	})
	r.drawTerrain(&frame)
	r.drawGrid(&frame)
	r.drawEntities(&frame, whole)
	r.drawEvents(&frame, whole, progress)
	return frame
}

func (r *Renderer) drawTerrain(frame *Frame) {
	zoom := r.cam.Zoom
	for key, biomeID := range r.layout.Cells {
		x, y, ok := world.ParseCoordKey(key)
		if !ok {
			continue
		}
		sx, sy := r.cam.WorldToScreen(float64(x)*TileSize, float64(y)*TileSize)
		frame.Ops = append(frame.Ops, DrawOp{
			Kind:  OpRect,
			X:     sx,
			Y:     sy,
			W:     TileSize * zoom,
			H:     TileSize * zoom,
			Color: TerrainColor(biomeID),
			Ref:   biomeID,
		})
	}
}

func (r *Renderer) drawGrid(frame *Frame) {
	if r.cam.Zoom < gridZoomCutoff {
		return
	}
	w := float64(r.layout.Width) * TileSize
	h := float64(r.layout.Height) * TileSize
	for gx := 0; gx <= r.layout.Width; gx++ {
		x := float64(gx) * TileSize
		x1, y1 := r.cam.WorldToScreen(x, 0)
		x2, y2 := r.cam.WorldToScreen(x, h)
		frame.Ops = append(frame.Ops, DrawOp{Kind: OpLine, X: x1, Y: y1, X2: x2, Y2: y2, Color: gridColor})
	}
	for gy := 0; gy <= r.layout.Height; gy++ {
		y := float64(gy) * TileSize
		x1, y1 := r.cam.WorldToScreen(0, y)
		x2, y2 := r.cam.WorldToScreen(w, y)
		frame.Ops = append(frame.Ops, DrawOp{Kind: OpLine, X: x1, Y: y1, X2: x2, Y2: y2, Color: gridColor})
	}
}

// drawEntities paints static icons for location entities born on or before
// the visible epoch. Unborn entities are invisible, not dimmed.
func (r *Renderer) drawEntities(frame *Frame, epoch world.Epoch) {
	for id, entry := range r.cache {
		if entry.Type != world.TypeLocation {
			continue
		}
		if entry.CreatedAt > epoch {
			continue
		}
		sx, sy := r.cam.WorldToScreen(entry.X, entry.Y)
		frame.Ops = append(frame.Ops, DrawOp{
			Kind:  OpIcon,
			X:     sx,
			Y:     sy,
			Text:  entry.Icon,
			Scale: r.cam.Zoom,
			Alpha: 1,
			Ref:   id,
		})
	}
}

func (r *Renderer) drawEvents(frame *Frame, epoch world.Epoch, progress float64) {
	for _, evt := range r.index.At(epoch) {
		entry, ok := r.resolveTarget(evt)
		if !ok {
			continue
		}
		glyph, style := glyphFor(history.Classify(evt.Type))
		scale, dy, alpha := effectTransform(style, progress)
		sx, sy := r.cam.WorldToScreen(entry.X, entry.Y)
		frame.Ops = append(frame.Ops, DrawOp{
			Kind:  OpGlyph,
			X:     sx,
			Y:     sy + dy*r.cam.Zoom,
			Text:  glyph,
			Scale: scale * r.cam.Zoom,
			Alpha: alpha,
			Ref:   evt.Type,
		})
	}
}

// resolveTarget finds the on-screen anchor for an event: an explicit
// location id wins; a Location primary entity targets itself; a located
// kind resolves through its parent. Events with no anchor are dropped.
func (r *Renderer) resolveTarget(evt history.Event) (CacheEntry, bool) {
	if evt.LocationID != "" {
		if entry, ok := r.cache[evt.LocationID]; ok {
			return entry, true
		}
	}
	if evt.PrimaryID == "" {
		return CacheEntry{}, false
	}
	primary, ok := r.entities[evt.PrimaryID]
	if !ok {
		return CacheEntry{}, false
	}
	if primary.Type == world.TypeLocation {
		if entry, ok := r.cache[primary.ID]; ok {
			return entry, true
		}
		return CacheEntry{}, false
	}
	if locatedKinds[primary.Type] && primary.ParentID != "" {
		if entry, ok := r.cache[primary.ParentID]; ok {
			return entry, true
		}
	}
	return CacheEntry{}, false
}
