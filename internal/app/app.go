// Package app wires configuration, logging, storage and the hub into a
// running HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	server "chronoscope/server"
	"chronoscope/server/internal/backend"
	"chronoscope/server/internal/config"
	appnet "chronoscope/server/internal/net"
	"chronoscope/server/internal/store"
	"chronoscope/server/internal/telemetry"
	"chronoscope/server/logging"
	"chronoscope/server/logging/sinks"
)

// Options controls Run. Fields left zero fall back to config defaults.
type Options struct {
	ConfigPath string
	// Addr overrides the configured listen address when non-empty.
	Addr   string
	Logger telemetry.Logger
}

// Run starts the server and blocks until ctx is cancelled or the
// listener fails.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	applyEnv(&cfg)
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}

	logger := opts.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.New(os.Stdout, "", log.LstdFlags))
	}
	metrics := telemetry.NewCounters()

	router, err := buildRouter(cfg.Logging)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = router.Close(shutdownCtx)
	}()

	st, err := buildStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer func() {
		_ = st.Close()
	}()

	hub := server.NewHub(server.HubConfig{
		FrameRate:     cfg.Playback.FrameRate,
		EpochDuration: cfg.Playback.EpochDurationValue(),
		GraphWidth:    cfg.Playback.GraphWidth,
		GraphHeight:   cfg.Playback.GraphHeight,
		Logger:        logger,
		Metrics:       metrics,
		Publisher:     router,
	})

	// A previously persisted snapshot restores the last session.
	if snap, err := st.LoadSnapshot("latest"); err == nil {
		if err := hub.LoadSnapshot(snap); err != nil {
			logger.Printf("restore persisted snapshot: %v", err)
		} else {
			logger.Printf("restored persisted snapshot")
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		logger.Printf("load persisted snapshot: %v", err)
	}

	stop := make(chan struct{})
	go hub.RunPlayback(stop)
	defer close(stop)

	handler := appnet.NewHandler(appnet.Options{
		Hub:     hub,
		Backend: backend.New(cfg.Backend.URL),
		Store:   st,
		Poll: backend.PollConfig{
			Interval:        cfg.Backend.PollIntervalValue(),
			MaxAttempts:     cfg.Backend.PollMaxAttempts,
			StagnationLimit: cfg.Backend.PollStagnationLimit,
		},
		Logger: logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// applyEnv layers environment overrides on top of the file config.
func applyEnv(cfg *config.Config) {
	if v := os.Getenv("CHRONOSCOPE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CHRONOSCOPE_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("CHRONOSCOPE_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("CHRONOSCOPE_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("CHRONOSCOPE_STORE_DIR"); v != "" {
		cfg.Store.Dir = v
	}
}

func buildStore(cfg config.StoreConfig) (store.Storage, error) {
	switch cfg.Backend {
	case "postgres":
		return store.NewPostgresStore(cfg.DSN)
	default:
		return store.NewJSONStore(cfg.Dir)
	}
}

func buildRouter(cfg config.LoggingConfig) (*logging.Router, error) {
	logCfg := logging.DefaultConfig()
	if cfg.BufferSize > 0 {
		logCfg.BufferSize = cfg.BufferSize
	}
	if len(cfg.Sinks) > 0 {
		logCfg.EnabledSinks = cfg.Sinks
	}
	if cfg.JSONPath != "" {
		logCfg.JSON.FilePath = cfg.JSONPath
	}

	var named []logging.NamedSink
	for _, name := range logCfg.EnabledSinks {
		switch name {
		case "console":
			named = append(named, logging.NamedSink{
				Name: name,
				Sink: sinks.NewConsoleSink(os.Stdout, logCfg.Console),
			})
		case "json":
			path := logCfg.JSON.FilePath
			if path == "" {
				path = "events.jsonl"
			}
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, err
			}
			named = append(named, logging.NamedSink{
				Name: name,
				Sink: sinks.NewJSONSink(f, logCfg.JSON.FlushInterval),
			})
		case "memory":
			named = append(named, logging.NamedSink{
				Name: name,
				Sink: sinks.NewMemorySink(),
			})
		default:
			return nil, fmt.Errorf("unknown logging sink %q", name)
		}
	}
	return logging.NewRouter(logging.SystemClock{}, logCfg, named)
}
