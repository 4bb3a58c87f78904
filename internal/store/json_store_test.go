package store

import (
	"errors"
	"testing"

	"chronoscope/server/internal/world"
)

func newTestStore(t *testing.T) *JSONStore {
	t.Helper()
	s, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	snap := &world.Snapshot{
		Layout: world.Layout{
			Width:  2,
			Height: 2,
			Cells:  map[string]string{"0,0": "b_forest", "1,1": "b_ocean"},
		},
		Entities: []world.Entity{
			{ID: "loc-1", Type: world.TypeLocation, Name: "Riverwatch", CreatedAt: 1,
				Data: map[string]any{"coord": []any{float64(0), float64(0)}}},
		},
		RawLog: []string{`{"event_type":"growth","created_at":1}`},
	}
	if err := s.SaveSnapshot("latest", snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := s.LoadSnapshot("latest")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Layout.Width != 2 || loaded.Layout.Cells["1,1"] != "b_ocean" {
		t.Fatalf("layout mangled: %+v", loaded.Layout)
	}
	if len(loaded.Entities) != 1 || loaded.Entities[0].Name != "Riverwatch" {
		t.Fatalf("entities mangled: %+v", loaded.Entities)
	}
	if len(loaded.RawLog) != 1 {
		t.Fatalf("raw log mangled: %v", loaded.RawLog)
	}
}

func TestLoadSnapshotMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.LoadSnapshot("nothing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := newTestStore(t)
	first := &world.Snapshot{Layout: world.Layout{Width: 2, Height: 2}}
	second := &world.Snapshot{Layout: world.Layout{Width: 5, Height: 5}}
	if err := s.SaveSnapshot("latest", first); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveSnapshot("latest", second); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	loaded, err := s.LoadSnapshot("latest")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Layout.Width != 5 {
		t.Fatalf("overwrite lost: %+v", loaded.Layout)
	}
}

func TestHistoryAppendAndLoad(t *testing.T) {
	s := newTestStore(t)
	if err := s.AppendHistory("latest", []string{`{"a":1}`, "", `{"b":2}`}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.AppendHistory("latest", []string{`{"c":3}`}); err != nil {
		t.Fatalf("second append: %v", err)
	}
	lines, err := s.LoadHistory("latest")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{`{"a":1}`, `{"b":2}`, `{"c":3}`}
	if len(lines) != len(want) {
		t.Fatalf("lines = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("lines = %v, want %v", lines, want)
		}
	}
}

func TestLoadHistoryMissingIsEmpty(t *testing.T) {
	s := newTestStore(t)
	lines, err := s.LoadHistory("latest")
	if err != nil || lines != nil {
		t.Fatalf("missing history: %v, %v", lines, err)
	}
}

func TestSanitizeNames(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveSnapshot("../../evil name", &world.Snapshot{Layout: world.Layout{Width: 2, Height: 2}}); err != nil {
		t.Fatalf("save with hostile name: %v", err)
	}
	if _, err := s.LoadSnapshot("../../evil name"); err != nil {
		t.Fatalf("load with hostile name: %v", err)
	}
}
