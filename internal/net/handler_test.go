package net

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	server "chronoscope/server"
	"chronoscope/server/internal/backend"
	"chronoscope/server/internal/store"
)

// fakeGenerator stubs the upstream simulation API.
func fakeGenerator(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/simulation/latest_layout", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"width":2,"height":2,"cells":{"0,0":"b_forest"}}`))
	})
	mux.HandleFunc("/api/simulation/world/graph", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{
			"entities":{"loc-1":{"id":"loc-1","type":"Location","created_at":0,"data":{"coord":[0,0]}}},
			"relations":[]
		}`))
	})
	mux.HandleFunc("/api/simulation/history_logs", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"logs":["{\"event_type\":\"growth\",\"created_at\":3}"]}`))
	})
	mux.HandleFunc("/api/simulation/run", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/api/simulation/build", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/api/simulation/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"running":false}`))
	})
	mux.HandleFunc("/api/simulation/metadata", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"seed":42,"template":"islands"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestHandler(t *testing.T) (*Handler, *server.Hub, store.Storage) {
	t.Helper()
	gen := fakeGenerator(t)
	st, err := store.NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	hub := server.NewHub(server.HubConfig{LayoutSeed: 1})
	h := NewHandler(Options{
		Hub:          hub,
		Backend:      backend.New(gen.URL),
		Store:        st,
		SnapshotName: "latest",
		Poll:         backend.PollConfig{Interval: time.Millisecond, MaxAttempts: 10, StagnationLimit: 2},
	})
	return h, hub, st
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
}

func TestFrameEndpointRequiresSnapshot(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/api/view/frame?epoch=1", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("frame without snapshot = %d, want 409", rec.Code)
	}
}

func TestFrameEndpointRejectsGarbageParams(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/api/view/frame?epoch=banana", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("garbage epoch = %d, want 400", rec.Code)
	}
}

func TestRunIngestsWorld(t *testing.T) {
	h, hub, st := newTestHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/api/world/run", map[string]int{"epochs": 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("run = %d body %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["maxEpoch"] != float64(3) {
		t.Fatalf("response = %+v", resp)
	}

	if pos := hub.Position(); pos.MaxEpoch != 3 {
		t.Fatalf("hub not loaded: %+v", pos)
	}
	if _, err := st.LoadSnapshot("latest"); err != nil {
		t.Fatalf("snapshot not persisted: %v", err)
	}
	lines, err := st.LoadHistory("latest")
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(lines) != 1 || lines[0] != `{"event_type":"growth","created_at":3}` {
		t.Fatalf("history lines = %#v", lines)
	}
}

func TestRefreshLoadsWithoutRun(t *testing.T) {
	h, hub, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/api/world/refresh", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh = %d body %s", rec.Code, rec.Body.String())
	}
	if d := hub.Diagnostics(); d.Entities != 1 {
		t.Fatalf("diagnostics = %+v", d)
	}
}

func TestFrameEndpointAfterLoad(t *testing.T) {
	h, _, _ := newTestHandler(t)
	doJSON(t, h, http.MethodPost, "/api/world/refresh", nil)

	rec := doJSON(t, h, http.MethodGet, "/api/view/frame?epoch=3&progress=0.5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("frame = %d", rec.Code)
	}
	var frame struct {
		Epoch int `json:"epoch"`
		Ops   []struct {
			Kind string `json:"kind"`
		} `json:"ops"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if frame.Epoch != 3 || len(frame.Ops) == 0 {
		t.Fatalf("frame = %+v", frame)
	}
}

func TestGraphEndpointHonorsEpoch(t *testing.T) {
	h, _, _ := newTestHandler(t)
	doJSON(t, h, http.MethodPost, "/api/world/refresh", nil)

	rec := doJSON(t, h, http.MethodGet, "/api/view/graph?epoch=0", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("graph = %d", rec.Code)
	}
	var scene struct {
		Nodes []struct {
			ID string `json:"id"`
		} `json:"nodes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &scene); err != nil {
		t.Fatalf("decode scene: %v", err)
	}
	if len(scene.Nodes) != 1 || scene.Nodes[0].ID != "loc-1" {
		t.Fatalf("scene = %+v", scene)
	}

	if rec := doJSON(t, h, http.MethodGet, "/api/view/graph?epoch=later", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("garbage epoch = %d, want 400", rec.Code)
	}
}

func TestBuildProxiesUpstream(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/api/world/build", map[string]int{"width": 5, "height": 5})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("build = %d", rec.Code)
	}
}

func TestStatusEndpointMergesMetadata(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/api/world/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Running  bool           `json:"running"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Running {
		t.Fatalf("running = true, want false")
	}
	if resp.Metadata["template"] != "islands" {
		t.Fatalf("metadata = %+v", resp.Metadata)
	}
}

func TestDiagnosticsEndpoint(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/diagnostics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("diagnostics = %d", rec.Code)
	}
	var d map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := d["subscribers"]; !ok {
		t.Fatalf("diagnostics shape = %+v", d)
	}
}
