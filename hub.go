// Package server hosts the playback hub: it owns the loaded world
// snapshot, the render pipeline, the playback clock and the relation
// graph, and fans frames out to websocket subscribers.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chronoscope/server/internal/camera"
	"chronoscope/server/internal/graphview"
	"chronoscope/server/internal/history"
	"chronoscope/server/internal/playback"
	"chronoscope/server/internal/render"
	"chronoscope/server/internal/telemetry"
	"chronoscope/server/internal/world"
	"chronoscope/server/logging"
)

const writeWait = 5 * time.Second

type subscriber struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

// Hub coordinates snapshot state, playback and subscribers. All state
// transitions run under h.mu; websocket writes additionally serialize on
// each subscriber's own mutex so a slow client never blocks the lock.
type Hub struct {
	cfg HubConfig

	mu          sync.Mutex
	snapshot    *world.Snapshot
	entities    map[string]*world.Entity
	cache       render.Cache
	index       *history.Index
	cam         *camera.Camera
	renderer    *render.Renderer
	ctrl        *playback.Controller
	filter      *graphview.Filter
	view        *graphview.View
	hiddenTypes map[world.EntityType]bool
	hiddenTags  map[string]bool

	subscribers map[string]*subscriber
	nextSubID   int

	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher
}

// NewHub builds an empty hub. Call LoadSnapshot before starting playback.
func NewHub(cfg HubConfig) *Hub {
	cfg = cfg.withDefaults()
	h := &Hub{
		cfg:         cfg,
		cam:         camera.New(),
		ctrl:        playback.New(cfg.EpochDuration),
		hiddenTypes: make(map[world.EntityType]bool),
		hiddenTags:  make(map[string]bool),
		subscribers: make(map[string]*subscriber),
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		publisher:   cfg.Publisher,
	}
	if h.publisher == nil {
		h.publisher = logging.NopPublisher()
	}
	for tag := range graphview.DefaultHiddenTags() {
		h.hiddenTags[tag] = true
	}
	h.view = graphview.NewView(
		graphview.NewSpringLayout(cfg.GraphWidth, cfg.GraphHeight, cfg.LayoutSeed),
		cfg.GraphWidth, cfg.GraphHeight, cfg.LayoutSeed,
	)
	return h
}

func (h *Hub) logf(format string, args ...any) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
	}
}

func (h *Hub) count(metric string, delta uint64) {
	if h.metrics != nil {
		h.metrics.Add(metric, delta)
	}
}

func (h *Hub) publish(eventType logging.EventType, epoch int, category string, subject logging.SubjectRef, payload any) {
	h.publisher.Publish(context.Background(), logging.Event{
		Type:     eventType,
		Epoch:    epoch,
		Subject:  subject,
		Severity: logging.SeverityInfo,
		Category: category,
		Payload:  payload,
	})
}

// LoadSnapshot replaces the active world. Playback stops, the render
// cache and history index rebuild, the camera recenters and the graph
// view is re-derived at epoch zero.
func (h *Hub) LoadSnapshot(snap *world.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("load snapshot: nil snapshot")
	}
	if err := snap.Layout.Validate(); err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	h.mu.Lock()
	h.ctrl.Stop()
	h.snapshot = snap
	h.entities = snap.EntityIndex()
	h.cache = render.BuildCache(snap)
	h.index = history.Build(snap.RawLog)
	h.ctrl.SetMaxEpoch(h.index.MaxEpoch())
	h.ctrl.Seek(0)
	h.renderer = render.New(snap.Layout, h.cache, h.entities, h.index, h.cam)
	h.filter = graphview.NewFilter(h.entities, snap.Relations)
	h.view.Apply(h.filter.VisibleSet(0, h.hiddenTypes, h.hiddenTags), true)
	skipped := h.index.Skipped()
	maxEpoch := h.index.MaxEpoch()
	h.mu.Unlock()

	h.logf("snapshot loaded: %d entities, %d relations, max epoch %d, %d malformed log lines skipped",
		len(snap.Entities), len(snap.Relations), maxEpoch, skipped)
	h.count("snapshot_loads", 1)
	h.publish("snapshot_loaded", 0, logging.CategorySystem,
		logging.SubjectRef{ID: "snapshot", Kind: logging.SubjectSnapshot},
		map[string]any{"entities": len(snap.Entities), "maxEpoch": maxEpoch, "skipped": skipped})
	h.broadcastPlayback()
	h.broadcastLegend()
	return nil
}

// SetViewport records the client canvas size and recenters the camera
// over the terrain.
func (h *Hub) SetViewport(width, height int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.renderer == nil {
		return
	}
	h.renderer.SetViewport(float64(width), float64(height))
	h.cam.Center(
		float64(h.snapshot.Layout.Width)*render.TileSize,
		float64(h.snapshot.Layout.Height)*render.TileSize,
		float64(width), float64(height),
	)
}

// RunPlayback drives the frame loop until stop closes. Each tick advances
// the playback clock, renders a frame and broadcasts it. Graph scenes
// rebroadcast whenever an integer epoch boundary is crossed.
func (h *Hub) RunPlayback(stop <-chan struct{}) {
	interval := time.Second / time.Duration(h.cfg.FrameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.mu.Lock()
	h.ctrl.OnCrossing(func(epoch int) {
		// Called with h.mu held by the Advance below.
		h.refreshGraphLocked(world.Epoch(epoch), false)
	})
	h.mu.Unlock()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			h.step(now)
		}
	}
}

func (h *Hub) step(now time.Time) {
	h.mu.Lock()
	if h.renderer == nil {
		h.mu.Unlock()
		return
	}
	pos := h.ctrl.Advance(now)
	frame := h.renderer.Draw(float64(pos.Epoch), pos.Progress)
	h.mu.Unlock()

	h.broadcast(frameMessage{Ver: protocolVersion, Type: "frame", Frame: frame})
	h.count("frames_rendered", 1)
}

// refreshGraphLocked re-derives the visible set for epoch and applies it
// to the force view. Callers hold h.mu.
func (h *Hub) refreshGraphLocked(epoch world.Epoch, shuffle bool) {
	if h.filter == nil {
		return
	}
	diff := h.view.Apply(h.filter.VisibleSet(epoch, h.hiddenTypes, h.hiddenTags), shuffle)
	scene := h.view.Scene()
	go h.broadcast(graphMessage{Ver: protocolVersion, Type: "graph", Scene: scene})
	if diff.AddedNodes > 0 || diff.RemovedNodes > 0 {
		h.count("graph_diffs", 1)
	}
}

// Play starts or resumes playback.
func (h *Hub) Play() {
	h.mu.Lock()
	started := h.ctrl.Play()
	h.mu.Unlock()
	if started {
		h.logf("playback started")
		pos := h.Position()
		h.publish("playback_started", pos.Epoch, logging.CategoryPlayback,
			logging.SubjectRef{Kind: logging.SubjectSystem}, nil)
	}
	h.broadcastPlayback()
}

// Pause halts playback at the current position.
func (h *Hub) Pause() {
	h.mu.Lock()
	h.ctrl.Stop()
	h.mu.Unlock()
	h.broadcastPlayback()
}

// Seek cancels playback and jumps to epoch, clamped to the log range.
func (h *Hub) Seek(epoch int) {
	h.mu.Lock()
	h.ctrl.Seek(epoch)
	pos := h.ctrl.Current()
	h.refreshGraphLocked(world.Epoch(pos.Epoch), false)
	h.mu.Unlock()
	h.broadcastPlayback()
	h.step(time.Now())
}

// Pan shifts the camera by a screen-space delta.
func (h *Hub) Pan(dx, dy float64) {
	h.mu.Lock()
	h.cam.Pan(dx, dy)
	h.mu.Unlock()
}

// Wheel applies a scroll-wheel zoom step around the current focus.
func (h *Hub) Wheel(delta float64) {
	h.mu.Lock()
	h.cam.Wheel(delta)
	h.mu.Unlock()
}

// DragStart begins a camera drag at a screen position.
func (h *Hub) DragStart(x, y float64) {
	h.mu.Lock()
	h.cam.DragStart(x, y)
	h.mu.Unlock()
}

// DragMove continues an active drag.
func (h *Hub) DragMove(x, y float64) {
	h.mu.Lock()
	h.cam.DragMove(x, y)
	h.mu.Unlock()
}

// DragEnd finishes an active drag.
func (h *Hub) DragEnd() {
	h.mu.Lock()
	h.cam.DragEnd()
	h.mu.Unlock()
}

// SetHiddenTypes replaces the set of entity types excluded from the
// relation graph and re-derives the scene at the current epoch.
func (h *Hub) SetHiddenTypes(types []string) {
	h.mu.Lock()
	h.hiddenTypes = make(map[world.EntityType]bool, len(types))
	for _, t := range types {
		h.hiddenTypes[world.EntityType(t)] = true
	}
	pos := h.ctrl.Current()
	h.refreshGraphLocked(world.Epoch(pos.Epoch), false)
	h.mu.Unlock()
}

// ShuffleGraph randomizes node positions and reruns the full layout.
func (h *Hub) ShuffleGraph() {
	h.mu.Lock()
	h.view.Shuffle()
	scene := h.view.Scene()
	h.mu.Unlock()
	h.broadcast(graphMessage{Ver: protocolVersion, Type: "graph", Scene: scene})
}

// MoveNode pins a graph node at an explicit position.
func (h *Hub) MoveNode(id string, x, y float64) {
	h.mu.Lock()
	h.view.MoveNode(id, x, y)
	h.mu.Unlock()
}

// GraphScene returns the current force-layout scene.
func (h *Hub) GraphScene() graphview.Scene {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.view.Scene()
}

// GraphSceneAt previews the graph as it stood at an explicit epoch, reusing
// the current node positions without disturbing the live scene.
func (h *Hub) GraphSceneAt(epoch world.Epoch) graphview.Scene {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.filter == nil {
		return graphview.Scene{}
	}
	return h.view.SceneFor(h.filter.VisibleSet(epoch, h.hiddenTypes, h.hiddenTags))
}

// FrameNow renders a frame at an explicit position without touching the
// playback clock. Used by the HTTP frame endpoint.
func (h *Hub) FrameNow(epoch float64, progress float64) (render.Frame, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.renderer == nil {
		return render.Frame{}, fmt.Errorf("no snapshot loaded")
	}
	return h.renderer.Draw(epoch, progress), nil
}

// Legend lists the terrain swatches for the loaded layout.
func (h *Hub) Legend() []render.LegendEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.snapshot == nil {
		return nil
	}
	return render.BuildLegend(h.snapshot.Layout.Cells)
}

// Position reports the playback clock.
func (h *Hub) Position() playback.Position {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ctrl.Current()
}

// DiagnosticsSnapshot summarizes hub state for the diagnostics endpoint.
type DiagnosticsSnapshot struct {
	Subscribers int  `json:"subscribers"`
	Entities    int  `json:"entities"`
	Relations   int  `json:"relations"`
	MaxEpoch    int  `json:"maxEpoch"`
	SkippedLogs int  `json:"skippedLogs"`
	Playing     bool `json:"playing"`
	Epoch       int  `json:"epoch"`
}

// Diagnostics returns a point-in-time summary of the hub.
func (h *Hub) Diagnostics() DiagnosticsSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	d := DiagnosticsSnapshot{Subscribers: len(h.subscribers)}
	if h.snapshot != nil {
		d.Entities = len(h.snapshot.Entities)
		d.Relations = len(h.snapshot.Relations)
	}
	if h.index != nil {
		d.MaxEpoch = h.index.MaxEpoch()
		d.SkippedLogs = h.index.Skipped()
	}
	pos := h.ctrl.Current()
	d.Playing = pos.Playing
	d.Epoch = pos.Epoch
	return d
}

// Subscribe registers a websocket connection and returns its id. The new
// subscriber immediately receives the playback state, legend and current
// graph scene.
func (h *Hub) Subscribe(conn *websocket.Conn) string {
	h.mu.Lock()
	h.nextSubID++
	id := fmt.Sprintf("sub-%d", h.nextSubID)
	sub := &subscriber{id: id, conn: conn}
	h.subscribers[id] = sub
	pos := h.ctrl.Current()
	var scene *graphview.Scene
	if h.filter != nil {
		s := h.view.Scene()
		scene = &s
	}
	var legend []render.LegendEntry
	if h.snapshot != nil {
		legend = render.BuildLegend(h.snapshot.Layout.Cells)
	}
	h.mu.Unlock()

	h.logf("subscriber %s connected", id)
	h.count("subscribers_joined", 1)
	h.publish("subscriber_joined", pos.Epoch, logging.CategoryTransport,
		logging.SubjectRef{ID: id, Kind: logging.SubjectSystem}, nil)
	h.send(sub, playbackMessage{Ver: protocolVersion, Type: "playback",
		Epoch: pos.Epoch, Progress: pos.Progress, Playing: pos.Playing, MaxEpoch: pos.MaxEpoch})
	if legend != nil {
		h.send(sub, legendMessage{Ver: protocolVersion, Type: "legend", Entries: legend})
	}
	if scene != nil {
		h.send(sub, graphMessage{Ver: protocolVersion, Type: "graph", Scene: *scene})
	}
	return id
}

// Disconnect drops a subscriber and closes its connection.
func (h *Hub) Disconnect(id string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	sub.mu.Lock()
	_ = sub.conn.Close()
	sub.mu.Unlock()
	h.logf("subscriber %s disconnected", id)
	h.count("subscribers_left", 1)
	h.publish("subscriber_left", 0, logging.CategoryTransport,
		logging.SubjectRef{ID: id, Kind: logging.SubjectSystem}, nil)
}

// ServeConn registers conn as a subscriber and pumps its inbound
// messages until the connection drops. It blocks for the lifetime of the
// connection and always deregisters on return.
func (h *Hub) ServeConn(conn *websocket.Conn) {
	id := h.Subscribe(conn)
	defer h.Disconnect(id)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logf("subscriber %s read error: %v", id, err)
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			h.logf("subscriber %s sent malformed message: %v", id, err)
			h.count("malformed_messages", 1)
			continue
		}
		h.HandleMessage(id, msg)
	}
}

// HandleMessage dispatches one decoded client message for subscriber id.
func (h *Hub) HandleMessage(id string, msg clientMessage) {
	switch msg.Type {
	case "play":
		h.Play()
	case "pause":
		h.Pause()
	case "seek":
		if msg.Epoch != nil {
			h.Seek(*msg.Epoch)
		}
	case "pan":
		h.Pan(msg.DX, msg.DY)
	case "wheel":
		h.Wheel(msg.Delta)
	case "drag_start":
		h.DragStart(msg.X, msg.Y)
	case "drag_move":
		h.DragMove(msg.X, msg.Y)
	case "drag_end":
		h.DragEnd()
	case "viewport":
		h.SetViewport(msg.Width, msg.Height)
	case "graph_hidden_types":
		h.SetHiddenTypes(msg.Types)
	case "graph_shuffle":
		h.ShuffleGraph()
	case "graph_move":
		h.MoveNode(msg.NodeID, msg.X, msg.Y)
	case "heartbeat":
		h.mu.Lock()
		sub := h.subscribers[id]
		h.mu.Unlock()
		if sub != nil {
			h.send(sub, heartbeatMessage{Ver: protocolVersion, Type: "heartbeat",
				ServerTime: time.Now().UnixMilli(), ClientTime: msg.SentAt})
		}
	default:
		h.mu.Lock()
		sub := h.subscribers[id]
		h.mu.Unlock()
		if sub != nil {
			h.send(sub, errorMessage{Ver: protocolVersion, Type: "error",
				Message: fmt.Sprintf("unknown message type %q", msg.Type)})
		}
		h.count("unknown_messages", 1)
	}
}

func (h *Hub) broadcastPlayback() {
	pos := h.Position()
	h.broadcast(playbackMessage{Ver: protocolVersion, Type: "playback",
		Epoch: pos.Epoch, Progress: pos.Progress, Playing: pos.Playing, MaxEpoch: pos.MaxEpoch})
}

func (h *Hub) broadcastLegend() {
	entries := h.Legend()
	if entries == nil {
		return
	}
	h.broadcast(legendMessage{Ver: protocolVersion, Type: "legend", Entries: entries})
}

// broadcast marshals v once and writes it to every subscriber. Write
// failures disconnect the offending subscriber.
func (h *Hub) broadcast(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logf("broadcast marshal failed: %v", err)
		return
	}
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		if err := h.writeRaw(sub, payload); err != nil {
			h.logf("dropping subscriber %s: %v", sub.id, err)
			h.Disconnect(sub.id)
		}
	}
}

func (h *Hub) send(sub *subscriber, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logf("send marshal failed: %v", err)
		return
	}
	if err := h.writeRaw(sub, payload); err != nil {
		h.logf("dropping subscriber %s: %v", sub.id, err)
		h.Disconnect(sub.id)
	}
}

func (h *Hub) writeRaw(sub *subscriber, payload []byte) error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if err := sub.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return sub.conn.WriteMessage(websocket.TextMessage, payload)
}
