// Package palette derives stable colors and glyphs from entity identity so
// every view of the world agrees on how an archetype looks without any
// shared state or randomness.
package palette

import (
	"fmt"

	"chronoscope/server/internal/world"
)

// hashSeed folds a string into a non-negative 31-ish bit value using the
// classic rolling hash (h = h*31 + c) wrapped to signed 32-bit.
func hashSeed(seed string) int32 {
	var h int32
	for _, r := range seed {
		h = h*31 + int32(r)
	}
	if h < 0 {
		if h == -2147483648 {
			return 2147483647
		}
		return -h
	}
	return h
}

// HSL is a color in hue/saturation/lightness space. Hue is in degrees,
// saturation and lightness in percent.
type HSL struct {
	H int `json:"h"`
	S int `json:"s"`
	L int `json:"l"`
}

// String renders the CSS hsl() form consumed by the thin client.
func (c HSL) String() string {
	return fmt.Sprintf("hsl(%d, %d%%, %d%%)", c.H, c.S, c.L)
}

// ColorOf maps a seed string to a deterministic HSL color. The same seed
// always yields the same color for the lifetime of the process; distinct
// seeds spread across hue [0,360), saturation [60,80) and lightness [40,60).
func ColorOf(seed string) HSL {
	h := hashSeed(seed)
	return HSL{
		H: int(h % 360),
		S: 60 + int(h%20),
		L: 40 + int(h%20),
	}
}

// glyph tables keyed by entity type. A hashed seed indexes into the table
// so all instances of one archetype share a glyph.
var glyphsByType = map[world.EntityType][]string{
	world.TypeBiome:     {"🌲", "🏜️", "🗻", "🌾", "🧊", "🌋"},
	world.TypeLocation:  {"🏘️", "🏰", "⛺", "🗼", "🛖", "⛩️"},
	world.TypeFaction:   {"⚔️", "🛡️", "👑", "🏴", "🪓"},
	world.TypeCharacter: {"🧙", "🤴", "🧝", "🥷", "👸"},
	world.TypeResource:  {"⛏️", "🪵", "💎", "🌿", "🐟"},
	world.TypeEvent:     {"📜", "🔔", "🎭"},
	world.TypeConflict:  {"💥", "⚔️", "🔥"},
	world.TypeItem:      {"🗡️", "🏺", "📿", "🔮"},
	world.TypeRitual:    {"🕯️", "🔮", "🎆"},
	world.TypeBelief:    {"☀️", "🌙", "⭐", "🐍"},
	world.TypeBoss:      {"🐉", "👹", "💀"},
	world.TypeCreature:  {"🐺", "🦅", "🐗", "🕷️"},
}

const fallbackGlyph = "❔"

// IconOf resolves the glyph for an entity. An explicit data.icon wins;
// otherwise the definition id is hashed so archetype instances match, with
// the entity id as a last resort.
func IconOf(entity *world.Entity) string {
	if entity == nil {
		return fallbackGlyph
	}
	if icon, ok := entity.Icon(); ok {
		return icon
	}
	seed := entity.DefinitionID
	if seed == "" {
		seed = entity.ID
	}
	table, ok := glyphsByType[entity.Type]
	if !ok || len(table) == 0 {
		return fallbackGlyph
	}
	return table[int(hashSeed(seed))%len(table)]
}
