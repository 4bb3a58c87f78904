package render

import (
	"testing"
)

func TestTerrainColorFragments(t *testing.T) {
	tests := []struct {
		biomeID string
		want    string
	}{
		{"b_forest", "#2d6a4f"},
		{"dark_forest_edge", "#2d6a4f"},
		{"b_desert", "#e9c46a"},
		{"THE_GREAT_OCEAN", "#1d3557"},
		{"volcanic_peak", "#adb5bd"},
	}
	for _, tc := range tests {
		if got := TerrainColor(tc.biomeID); got != tc.want {
			t.Errorf("TerrainColor(%q) = %q, want %q", tc.biomeID, got, tc.want)
		}
	}
}

func TestTerrainColorFallsBackToDefault(t *testing.T) {
	if got := TerrainColor("b_crystal_fields"); got != defaultTerrainColor {
		t.Fatalf("unknown biome color = %q, want the default fill", got)
	}
	if TerrainColor("") != defaultTerrainColor {
		t.Fatalf("empty biome id must use the default color")
	}
}

func TestBuildLegend(t *testing.T) {
	cells := map[string]string{
		"0,0": "b_forest",
		"1,0": "b_forest",
		"2,0": "b_desert",
		"3,0": "",
		"4,0": "b_crystal_fields",
	}
	legend := BuildLegend(cells)
	if len(legend) != 3 {
		t.Fatalf("legend has %d entries, want 3", len(legend))
	}
	if legend[0].BiomeID != "b_crystal_fields" || legend[1].BiomeID != "b_desert" || legend[2].BiomeID != "b_forest" {
		t.Fatalf("legend not sorted: %+v", legend)
	}
	for _, entry := range legend {
		if entry.Color == "" {
			t.Fatalf("entry %s has no color", entry.BiomeID)
		}
	}
	// Unmatched biomes share the default fill but keep distinct swatches.
	if legend[0].Color != defaultTerrainColor {
		t.Fatalf("unknown biome fill = %q", legend[0].Color)
	}
	if legend[0].Swatch == legend[1].Swatch {
		t.Fatalf("swatches collide: %+v", legend[:2])
	}
}
