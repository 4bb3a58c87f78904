package render

import (
	"sort"
	"strings"

	"chronoscope/server/internal/palette"
)

// terrainColors maps biome id fragments to fill colors. Resolution is by
// substring match so "b_dark_forest" and "forest_edge" both read as forest.
var terrainColors = []struct {
	fragment string
	color    string
}{
	{"forest", "#2d6a4f"},
	{"jungle", "#1b4332"},
	{"desert", "#e9c46a"},
	{"dune", "#e9c46a"},
	{"mountain", "#6c757d"},
	{"peak", "#adb5bd"},
	{"swamp", "#495e43"},
	{"marsh", "#495e43"},
	{"tundra", "#dee2e6"},
	{"snow", "#f8f9fa"},
	{"ice", "#cfe8ef"},
	{"water", "#457b9d"},
	{"ocean", "#1d3557"},
	{"lake", "#457b9d"},
	{"volcano", "#9d0208"},
	{"lava", "#d00000"},
	{"plain", "#80b918"},
	{"grass", "#80b918"},
	{"steppe", "#a3b18a"},
}

const defaultTerrainColor = "#555b6e"

// TerrainColor resolves a biome id to its fill color. Ids matching no
// known fragment share the default fill; the legend still tells them
// apart by their hashed swatch.
func TerrainColor(biomeID string) string {
	lowered := strings.ToLower(biomeID)
	for _, entry := range terrainColors {
		if strings.Contains(lowered, entry.fragment) {
			return entry.color
		}
	}
	return defaultTerrainColor
}

// BuildLegend lists one entry per distinct biome id present in the cell
// set, sorted for a stable overlay.
func BuildLegend(cells map[string]string) []LegendEntry {
	seen := make(map[string]bool)
	ids := make([]string, 0, len(cells))
	for _, id := range cells {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	legend := make([]LegendEntry, 0, len(ids))
	for _, id := range ids {
		legend = append(legend, LegendEntry{
			BiomeID: id,
			Color:   TerrainColor(id),
			Swatch:  palette.ColorOf(id),
		})
	}
	return legend
}
