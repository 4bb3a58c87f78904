package world

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Epoch is a discrete simulation time step. Entities and events carry the
// epoch they were created in; playback positions between two epochs are
// expressed as epoch + progress elsewhere.
type Epoch = int

// EntityType is an open tag set. The generator backend may introduce new
// types at any time, so consumers must tolerate unknown values.
type EntityType string

const (
	TypeBiome     EntityType = "Biome"
	TypeLocation  EntityType = "Location"
	TypeFaction   EntityType = "Faction"
	TypeCharacter EntityType = "Character"
	TypeResource  EntityType = "Resource"
	TypeEvent     EntityType = "Event"
	TypeConflict  EntityType = "Conflict"
	TypeItem      EntityType = "Item"
	TypeRitual    EntityType = "Ritual"
	TypeBelief    EntityType = "Belief"
	TypeBoss      EntityType = "Boss"
	TypeCreature  EntityType = "Creature"
)

// Entity is an immutable world element produced by the generator. Entities
// are never edited or deleted client-side; retired entities stay in the set
// and are hidden by tag filtering.
type Entity struct {
	ID           string         `json:"id"`
	DefinitionID string         `json:"definition_id,omitempty"`
	Type         EntityType     `json:"type"`
	Name         string         `json:"name,omitempty"`
	ParentID     string         `json:"parent_id,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	CreatedAt    Epoch          `json:"created_at"`
	Data         map[string]any `json:"data,omitempty"`
}

// HasTag reports whether the entity carries the given tag.
func (e *Entity) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Coord returns the grid coordinate stored under data.coord. Biomes carry
// one; most other entities do not.
func (e *Entity) Coord() (int, int, bool) {
	if e == nil || e.Data == nil {
		return 0, 0, false
	}
	raw, ok := e.Data["coord"]
	if !ok {
		return 0, 0, false
	}
	pair, ok := raw.([]any)
	if !ok || len(pair) < 2 {
		return 0, 0, false
	}
	x, okX := coerceInt(pair[0])
	y, okY := coerceInt(pair[1])
	if !okX || !okY {
		return 0, 0, false
	}
	return x, y, true
}

// Icon returns an explicit icon override if the entity carries one, either
// under data.icon or a top-level icon attribute mirrored into data.
func (e *Entity) Icon() (string, bool) {
	if e == nil || e.Data == nil {
		return "", false
	}
	if raw, ok := e.Data["icon"]; ok {
		if s, ok := raw.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// SlotIndex returns the spatial slot assigned by the generator, if any.
// Entities that already own a slot keep it across layout rebuilds.
func (e *Entity) SlotIndex() (int, bool) {
	if e == nil || e.Data == nil {
		return 0, false
	}
	raw, ok := e.Data["slot_index"]
	if !ok {
		raw, ok = e.Data["spatial_slot_index"]
	}
	if !ok {
		return 0, false
	}
	return coerceInt(raw)
}

func coerceInt(v any) (int, bool) {
	switch value := v.(type) {
	case float64:
		return int(value), true
	case int:
		return value, true
	case json.Number:
		n, err := value.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Relation links two entities. The backend embeds full endpoint entities in
// each relation record; the relation's effective epoch is the later of the
// two endpoint creation epochs.
type Relation struct {
	From Entity `json:"from_entity"`
	To   Entity `json:"to_entity"`
	Type string `json:"relation_type"`
}

// EffectiveEpoch is the first epoch at which both endpoints exist.
func (r Relation) EffectiveEpoch() Epoch {
	if r.From.CreatedAt > r.To.CreatedAt {
		return r.From.CreatedAt
	}
	return r.To.CreatedAt
}

// UnmarshalJSON tolerates relation_type encoded either as a bare string or
// as an object with an id field.
func (r *Relation) UnmarshalJSON(data []byte) error {
	type alias struct {
		From Entity          `json:"from_entity"`
		To   Entity          `json:"to_entity"`
		Type json.RawMessage `json:"relation_type"`
	}
	var aux alias
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.From = aux.From
	r.To = aux.To
	r.Type = decodeRelationType(aux.Type)
	return nil
}

func decodeRelationType(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}

// Layout is the biome tile grid. Cells maps "x,y" coordinate keys to biome
// identifiers; absent keys mean no land and are not rendered.
type Layout struct {
	Width  int               `json:"width"`
	Height int               `json:"height"`
	Cells  map[string]string `json:"cells"`
}

// CoordKey builds the canonical "x,y" key used by the cells map.
func CoordKey(x, y int) string {
	return strconv.Itoa(x) + "," + strconv.Itoa(y)
}

// ParseCoordKey inverts CoordKey. Malformed keys report false.
func ParseCoordKey(key string) (int, int, bool) {
	sep := strings.IndexByte(key, ',')
	if sep <= 0 || sep == len(key)-1 {
		return 0, 0, false
	}
	x, errX := strconv.Atoi(strings.TrimSpace(key[:sep]))
	y, errY := strconv.Atoi(strings.TrimSpace(key[sep+1:]))
	if errX != nil || errY != nil {
		return 0, 0, false
	}
	return x, y, true
}

// BiomeAt returns the biome id occupying the cell, if any.
func (l *Layout) BiomeAt(x, y int) (string, bool) {
	if l == nil || l.Cells == nil {
		return "", false
	}
	id, ok := l.Cells[CoordKey(x, y)]
	return id, ok
}

// Validate checks the layout invariants: positive dimensions and every
// referenced coordinate inside [0,width)x[0,height).
func (l *Layout) Validate() error {
	if l == nil {
		return fmt.Errorf("layout: nil")
	}
	if l.Width < 1 || l.Height < 1 {
		return fmt.Errorf("layout: dimensions %dx%d out of range", l.Width, l.Height)
	}
	for key := range l.Cells {
		x, y, ok := ParseCoordKey(key)
		if !ok {
			return fmt.Errorf("layout: malformed cell key %q", key)
		}
		if x < 0 || x >= l.Width || y < 0 || y >= l.Height {
			return fmt.Errorf("layout: cell %q outside %dx%d grid", key, l.Width, l.Height)
		}
	}
	return nil
}

// Snapshot bundles everything the engine needs to render one world: the tile
// grid, the flat entity list, explicit relations, and the raw event log
// lines. It is the unit of persistence and of cache rebuilds.
type Snapshot struct {
	Layout    Layout     `json:"layout"`
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations,omitempty"`
	RawLog    []string   `json:"logs,omitempty"`
}

// EntityIndex builds an id lookup over the snapshot's entities.
func (s *Snapshot) EntityIndex() map[string]*Entity {
	index := make(map[string]*Entity, len(s.Entities))
	for i := range s.Entities {
		index[s.Entities[i].ID] = &s.Entities[i]
	}
	return index
}

// ChildrenOf groups entities by parent id, preserving input order.
func (s *Snapshot) ChildrenOf() map[string][]*Entity {
	children := make(map[string][]*Entity)
	for i := range s.Entities {
		e := &s.Entities[i]
		if e.ParentID == "" {
			continue
		}
		children[e.ParentID] = append(children[e.ParentID], e)
	}
	return children
}
