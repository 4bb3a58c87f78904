package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLatestLayoutShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bare layout", body: `{"width":3,"height":2,"cells":{"0,0":"b_forest"}}`},
		{name: "enveloped layout", body: `{"layout":{"width":3,"height":2,"cells":{"0,0":"b_forest"}}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/simulation/latest_layout" {
					t.Errorf("path = %s", r.URL.Path)
				}
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			layout, err := New(srv.URL).LatestLayout(context.Background())
			if err != nil {
				t.Fatalf("LatestLayout: %v", err)
			}
			if layout.Width != 3 || layout.Height != 2 || layout.Cells["0,0"] != "b_forest" {
				t.Fatalf("layout = %+v", layout)
			}
		})
	}
}

func TestLatestEntitiesRequiresArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"something_else":1}`))
	}))
	defer srv.Close()
	if _, err := New(srv.URL).LatestEntities(context.Background()); err == nil {
		t.Fatalf("missing entities array accepted")
	}
}

func TestWorldGraphSendsExcludeTags(t *testing.T) {
	var gotTags []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTags = r.URL.Query()["exclude_tags"]
		w.Write([]byte(`{"entities":{"e1":{"id":"e1"}},"relations":[]}`))
	}))
	defer srv.Close()

	payload, err := New(srv.URL).WorldGraph(context.Background(), []string{"dead", "absorbed"})
	if err != nil {
		t.Fatalf("WorldGraph: %v", err)
	}
	if len(gotTags) != 2 || gotTags[0] != "dead" || gotTags[1] != "absorbed" {
		t.Fatalf("exclude_tags = %v", gotTags)
	}
	if _, ok := payload.Entities["e1"]; !ok {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestBuildClampsDimensions(t *testing.T) {
	var got struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if err := New(srv.URL).Build(context.Background(), 1, 500, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got.Width != 2 || got.Height != 20 {
		t.Fatalf("sent %dx%d, want clamped 2x20", got.Width, got.Height)
	}
}

func TestErrorStatusSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.HistoryLogs(context.Background()); err == nil {
		t.Fatalf("500 response accepted")
	}
	if err := c.Run(context.Background(), 5); err == nil {
		t.Fatalf("500 on post accepted")
	}
}

func TestMetadataPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/simulation/metadata" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"seed":42,"template":"islands"}`))
	}))
	defer srv.Close()

	meta, err := New(srv.URL).Metadata(context.Background())
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if meta["seed"] != float64(42) || meta["template"] != "islands" {
		t.Fatalf("metadata = %+v", meta)
	}
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"running":true}`))
	}))
	defer srv.Close()
	running, err := New(srv.URL).Status(context.Background())
	if err != nil || !running {
		t.Fatalf("Status = %v, %v", running, err)
	}
}
