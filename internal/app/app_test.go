package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"chronoscope/server/internal/config"
	"chronoscope/server/internal/store"
)

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CHRONOSCOPE_ADDR", ":7070")
	t.Setenv("CHRONOSCOPE_BACKEND_URL", "http://elsewhere:8000")
	t.Setenv("CHRONOSCOPE_STORE_DIR", "/tmp/snaps")

	cfg := config.Default()
	applyEnv(&cfg)
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Backend.URL != "http://elsewhere:8000" {
		t.Fatalf("backend url = %q", cfg.Backend.URL)
	}
	if cfg.Store.Dir != "/tmp/snaps" {
		t.Fatalf("store dir = %q", cfg.Store.Dir)
	}
}

func TestBuildStoreDefaultsToJSON(t *testing.T) {
	dir := t.TempDir()
	st, err := buildStore(config.StoreConfig{Backend: "json", Dir: dir})
	if err != nil {
		t.Fatalf("buildStore: %v", err)
	}
	defer st.Close()
	if _, ok := st.(*store.JSONStore); !ok {
		t.Fatalf("store type = %T", st)
	}
}

func TestBuildRouterSinkSelection(t *testing.T) {
	jsonPath := filepath.Join(t.TempDir(), "events.jsonl")
	router, err := buildRouter(config.LoggingConfig{
		Sinks:    []string{"memory", "json"},
		JSONPath: jsonPath,
	})
	if err != nil {
		t.Fatalf("buildRouter: %v", err)
	}
	defer func() {
		router.Close(context.Background())
	}()
	if router.Sink("memory") == nil || router.Sink("json") == nil {
		t.Fatalf("sinks not registered")
	}
	if _, err := os.Stat(jsonPath); err != nil {
		t.Fatalf("json sink file not created: %v", err)
	}

	if _, err := buildRouter(config.LoggingConfig{Sinks: []string{"syslog"}}); err == nil {
		t.Fatalf("unknown sink accepted")
	}
}
