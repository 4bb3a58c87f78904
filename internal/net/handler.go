// Package net exposes the engine over HTTP: a chi router for the JSON
// API and a websocket endpoint for live playback.
package net

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	server "chronoscope/server"
	"chronoscope/server/internal/backend"
	"chronoscope/server/internal/store"
	"chronoscope/server/internal/telemetry"
	"chronoscope/server/internal/world"
)

// Options collects the handler's dependencies.
type Options struct {
	Hub          *server.Hub
	Backend      *backend.Client
	Store        store.Storage
	SnapshotName string
	Poll         backend.PollConfig
	Logger       telemetry.Logger
}

// Handler routes API and websocket traffic to the hub.
type Handler struct {
	hub          *server.Hub
	backend      *backend.Client
	store        store.Storage
	snapshotName string
	poll         backend.PollConfig
	logger       telemetry.Logger
	mux          *chi.Mux
}

// NewHandler builds the router.
func NewHandler(opts Options) *Handler {
	h := &Handler{
		hub:          opts.Hub,
		backend:      opts.Backend,
		store:        opts.Store,
		snapshotName: opts.SnapshotName,
		poll:         opts.Poll,
		logger:       opts.Logger,
	}
	if h.snapshotName == "" {
		h.snapshotName = "latest"
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", h.handleHealth)
	r.Get("/diagnostics", h.handleDiagnostics)
	r.Route("/api", func(r chi.Router) {
		r.Get("/view/frame", h.handleFrame)
		r.Get("/view/graph", h.handleGraph)
		r.Get("/view/legend", h.handleLegend)
		r.Get("/world/status", h.handleStatus)
		r.Post("/world/build", h.handleBuild)
		r.Post("/world/run", h.handleRun)
		r.Post("/world/refresh", h.handleRefresh)
	})
	r.Get("/ws", h.handleWS)
	h.mux = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) logf(format string, args ...any) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleDiagnostics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.hub.Diagnostics())
}

func (h *Handler) handleFrame(w http.ResponseWriter, r *http.Request) {
	epoch, err := parseFloat(r.URL.Query().Get("epoch"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	progress, err := parseFloat(r.URL.Query().Get("progress"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	frame, err := h.hub.FrameNow(epoch, progress)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

func (h *Handler) handleGraph(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("epoch"); raw != "" {
		epoch, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, h.hub.GraphSceneAt(world.Epoch(epoch)))
		return
	}
	writeJSON(w, http.StatusOK, h.hub.GraphScene())
}

func (h *Handler) handleLegend(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.hub.Legend())
}

// handleStatus proxies the upstream run state together with whatever
// metadata the backend exposes about the current world.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	running, err := h.backend.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	meta, err := h.backend.Metadata(r.Context())
	if err != nil {
		h.logf("metadata fetch failed: %v", err)
		meta = nil
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"running":  running,
		"metadata": meta,
	})
}

type buildRequest struct {
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	BiomeIDs []string `json:"biomeIds,omitempty"`
}

func (h *Handler) handleBuild(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.backend.Build(r.Context(), req.Width, req.Height, req.BiomeIDs); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "building"})
}

type runRequest struct {
	Epochs int `json:"epochs"`
}

// handleRun starts a simulation run upstream, polls its history until the
// log stops growing, then ingests the finished world into the hub.
func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Epochs <= 0 {
		req.Epochs = 10
	}
	if err := h.backend.Run(r.Context(), req.Epochs); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	result, err := backend.Poll(r.Context(), h.backend, world.Epoch(req.Epochs), h.poll)
	if err != nil && !errors.Is(err, backend.ErrPollTimeout) {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	if errors.Is(err, backend.ErrPollTimeout) {
		h.logf("run poll hit the attempt ceiling after %d polls, ingesting partial history", result.Attempts)
	}

	snap, ingestErr := h.ingest(r.Context(), result.Logs)
	if ingestErr != nil {
		writeError(w, http.StatusBadGateway, ingestErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "loaded",
		"maxEpoch": result.MaxEpoch,
		"entities": len(snap.Entities),
		"partial":  errors.Is(err, backend.ErrPollTimeout),
	})
}

// handleRefresh refetches the latest backend state without starting a run.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	logs, err := h.backend.HistoryLogs(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	snap, err := h.ingest(r.Context(), logs)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "loaded",
		"entities": len(snap.Entities),
	})
}

// ingest assembles a snapshot from the backend, persists it and loads it
// into the hub. Persistence failures log but do not fail the request.
func (h *Handler) ingest(ctx context.Context, logs []string) (*world.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	layout, err := h.backend.LatestLayout(ctx)
	if err != nil {
		return nil, err
	}
	graph, err := h.backend.WorldGraph(ctx, nil)
	if err != nil {
		return nil, err
	}
	entities := make([]world.Entity, 0, len(graph.Entities))
	for _, e := range graph.Entities {
		entities = append(entities, e)
	}
	snap := &world.Snapshot{
		Layout:    layout,
		Entities:  entities,
		Relations: graph.Relations,
		RawLog:    logs,
	}
	if h.store != nil {
		if err := h.store.SaveSnapshot(h.snapshotName, snap); err != nil {
			h.logf("persist snapshot %q failed: %v", h.snapshotName, err)
		}
		if err := h.store.AppendHistory(h.snapshotName, logs); err != nil {
			h.logf("persist history %q failed: %v", h.snapshotName, err)
		}
	}
	if err := h.hub.LoadSnapshot(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func parseFloat(s string, fallback float64) (float64, error) {
	if s == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(s, 64)
}
