package render

import (
	"chronoscope/server/internal/palette"
	"chronoscope/server/internal/spatial"
	"chronoscope/server/internal/world"
)

// TileSize is the edge length of one biome tile in world pixels.
const TileSize = 96.0

// CacheEntry pins an entity to a world-space pixel position. Derived data:
// the cache is rebuilt whenever the entity set changes and never persisted.
type CacheEntry struct {
	X         float64
	Y         float64
	Icon      string
	Type      world.EntityType
	CreatedAt world.Epoch
}

// Cache maps entity ids to their resolved world positions.
type Cache map[string]CacheEntry

// BuildCache positions every locatable entity. Entities with an explicit
// grid coordinate anchor at their tile center; their children spread on the
// tile via the layout engine; anything else parented to a cached entity
// inherits the parent position. Entities with no resolvable position are
// simply absent from the cache.
func BuildCache(snapshot *world.Snapshot) Cache {
	cache := make(Cache, len(snapshot.Entities))
	children := snapshot.ChildrenOf()

	for i := range snapshot.Entities {
		e := &snapshot.Entities[i]
		x, y, ok := e.Coord()
		if !ok {
			continue
		}
		cache[e.ID] = CacheEntry{
			X:         float64(x)*TileSize + TileSize/2,
			Y:         float64(y)*TileSize + TileSize/2,
			Icon:      palette.IconOf(e),
			Type:      e.Type,
			CreatedAt: e.CreatedAt,
		}
		placeChildren(cache, children, e, float64(x)*TileSize, float64(y)*TileSize)
	}

	// Remaining entities inherit positions through parent chains. Bounded
	// passes cover nested parents without risking cycles.
	for pass := 0; pass < 4; pass++ {
		added := 0
		for i := range snapshot.Entities {
			e := &snapshot.Entities[i]
			if _, done := cache[e.ID]; done || e.ParentID == "" {
				continue
			}
			parent, ok := cache[e.ParentID]
			if !ok {
				continue
			}
			cache[e.ID] = CacheEntry{
				X:         parent.X,
				Y:         parent.Y,
				Icon:      palette.IconOf(e),
				Type:      e.Type,
				CreatedAt: e.CreatedAt,
			}
			added++
		}
		if added == 0 {
			break
		}
	}
	return cache
}

func placeChildren(cache Cache, children map[string][]*world.Entity, parent *world.Entity, originX, originY float64) {
	kids := children[parent.ID]
	if len(kids) == 0 {
		return
	}
	offsets := spatial.Place(kids, spatial.StyleRing)
	for _, kid := range kids {
		offset, ok := offsets[kid.ID]
		if !ok {
			continue
		}
		cache[kid.ID] = CacheEntry{
			X:         originX + offset.X*TileSize,
			Y:         originY + offset.Y*TileSize,
			Icon:      palette.IconOf(kid),
			Type:      kid.Type,
			CreatedAt: kid.CreatedAt,
		}
	}
}
