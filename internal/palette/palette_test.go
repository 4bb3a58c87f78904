package palette

import (
	"testing"

	"chronoscope/server/internal/world"
)

func TestColorOfDeterministic(t *testing.T) {
	seeds := []string{"", "faction-iron-pact", "loc-001", "🌲"}
	for _, seed := range seeds {
		first := ColorOf(seed)
		for i := 0; i < 5; i++ {
			if got := ColorOf(seed); got != first {
				t.Fatalf("seed %q drifted: %+v vs %+v", seed, got, first)
			}
		}
	}
}

func TestColorOfRanges(t *testing.T) {
	seeds := []string{"", "a", "faction", "really-long-identifier-0123456789", "edge"}
	for _, seed := range seeds {
		c := ColorOf(seed)
		if c.H < 0 || c.H >= 360 {
			t.Errorf("seed %q hue %d out of range", seed, c.H)
		}
		if c.S < 60 || c.S >= 80 {
			t.Errorf("seed %q saturation %d out of range", seed, c.S)
		}
		if c.L < 40 || c.L >= 60 {
			t.Errorf("seed %q lightness %d out of range", seed, c.L)
		}
	}
}

func TestColorOfEmptySeed(t *testing.T) {
	want := HSL{H: 0, S: 60, L: 40}
	if got := ColorOf(""); got != want {
		t.Fatalf("ColorOf(\"\") = %+v, want %+v", got, want)
	}
}

func TestHSLString(t *testing.T) {
	got := HSL{H: 120, S: 65, L: 45}.String()
	if got != "hsl(120, 65%, 45%)" {
		t.Fatalf("String() = %q", got)
	}
}

func TestHashSeedNeverNegative(t *testing.T) {
	seeds := []string{"", "x", "collision-prone", "aaaaaaaaaaaaaaaaaaaaaaaa", "zzzzzzzz"}
	for _, seed := range seeds {
		if h := hashSeed(seed); h < 0 {
			t.Fatalf("hashSeed(%q) = %d", seed, h)
		}
	}
}

func TestIconOfPrecedence(t *testing.T) {
	tests := []struct {
		name   string
		entity *world.Entity
		want   string
	}{
		{
			name:   "explicit icon wins",
			entity: &world.Entity{ID: "e1", Type: world.TypeFaction, Data: map[string]any{"icon": "🏳️"}},
			want:   "🏳️",
		},
		{
			name:   "nil entity falls back",
			entity: nil,
			want:   fallbackGlyph,
		},
		{
			name:   "unknown type falls back",
			entity: &world.Entity{ID: "e2", Type: world.EntityType("mystery")},
			want:   fallbackGlyph,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IconOf(tc.entity); got != tc.want {
				t.Fatalf("IconOf = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIconOfSharedArchetype(t *testing.T) {
	a := &world.Entity{ID: "char-1", DefinitionID: "def-wizard", Type: world.TypeCharacter}
	b := &world.Entity{ID: "char-2", DefinitionID: "def-wizard", Type: world.TypeCharacter}
	if IconOf(a) != IconOf(b) {
		t.Fatalf("same archetype diverged: %q vs %q", IconOf(a), IconOf(b))
	}
}

func TestIconOfFallsBackToEntityID(t *testing.T) {
	e := &world.Entity{ID: "boss-ember", Type: world.TypeBoss}
	got := IconOf(e)
	if got == fallbackGlyph {
		t.Fatalf("expected a boss glyph, got fallback")
	}
	if got != IconOf(e) {
		t.Fatalf("icon not stable")
	}
}
