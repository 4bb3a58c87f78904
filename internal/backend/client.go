// Package backend consumes the world-generator HTTP API. The generator is a
// black box; this client only knows the JSON shapes it returns and the
// polling discipline for long-running operations.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chronoscope/server/internal/world"
)

const defaultTimeout = 15 * time.Second

// Client talks to one generator backend instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for the given base URL ("http://host:port").
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// NewWithHTTPClient injects a custom http.Client, used by tests.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	c := New(baseURL)
	if hc != nil {
		c.http = hc
	}
	return c
}

// LatestLayout fetches the biome grid, tolerating both the bare layout and
// the {layout: ...} envelope.
func (c *Client) LatestLayout(ctx context.Context) (world.Layout, error) {
	body, err := c.get(ctx, "/api/simulation/latest_layout", nil)
	if err != nil {
		return world.Layout{}, err
	}
	var envelope struct {
		Layout *world.Layout `json:"layout"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Layout != nil {
		return *envelope.Layout, nil
	}
	var layout world.Layout
	if err := json.Unmarshal(body, &layout); err != nil {
		return world.Layout{}, fmt.Errorf("backend: decode layout: %w", err)
	}
	return layout, nil
}

// LatestEntities fetches the flat entity list.
func (c *Client) LatestEntities(ctx context.Context) ([]world.Entity, error) {
	body, err := c.get(ctx, "/api/simulation/latest_entities", nil)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Entities []world.Entity `json:"entities"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("backend: decode entities: %w", err)
	}
	if envelope.Entities == nil {
		return nil, fmt.Errorf("backend: entities payload missing entities array")
	}
	return envelope.Entities, nil
}

// GraphPayload is the entity graph as the backend serves it.
type GraphPayload struct {
	Entities  map[string]world.Entity `json:"entities"`
	Relations []world.Relation        `json:"relations"`
}

// WorldGraph fetches the filtered graph. excludeTags maps onto repeatable
// exclude_tags query parameters; nil applies the backend defaults.
func (c *Client) WorldGraph(ctx context.Context, excludeTags []string) (GraphPayload, error) {
	values := url.Values{}
	for _, tag := range excludeTags {
		values.Add("exclude_tags", tag)
	}
	body, err := c.get(ctx, "/api/simulation/world/graph", values)
	if err != nil {
		return GraphPayload{}, err
	}
	return decodeGraph(body)
}

// LatestGraph fetches the unfiltered in-memory graph.
func (c *Client) LatestGraph(ctx context.Context) (GraphPayload, error) {
	body, err := c.get(ctx, "/api/simulation/latest_graph", nil)
	if err != nil {
		return GraphPayload{}, err
	}
	return decodeGraph(body)
}

func decodeGraph(body []byte) (GraphPayload, error) {
	var payload GraphPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return GraphPayload{}, fmt.Errorf("backend: decode graph: %w", err)
	}
	return payload, nil
}

// HistoryLogs fetches the raw event log lines.
func (c *Client) HistoryLogs(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, "/api/simulation/history_logs", nil)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Logs []string `json:"logs"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("backend: decode history logs: %w", err)
	}
	return envelope.Logs, nil
}

// Status reports whether a simulation run is in flight.
func (c *Client) Status(ctx context.Context) (bool, error) {
	body, err := c.get(ctx, "/api/simulation/status", nil)
	if err != nil {
		return false, err
	}
	var envelope struct {
		Running bool `json:"running"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false, fmt.Errorf("backend: decode status: %w", err)
	}
	return envelope.Running, nil
}

// Metadata fetches the backend's free-form run metadata (seed, template,
// generation settings). The shape is backend-defined so it passes through
// as a generic map.
func (c *Client) Metadata(ctx context.Context) (map[string]any, error) {
	body, err := c.get(ctx, "/api/simulation/metadata", nil)
	if err != nil {
		return nil, err
	}
	var meta map[string]any
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("backend: decode metadata: %w", err)
	}
	return meta, nil
}

// Build triggers world (re)generation. Dimensions are clamped to the
// backend's accepted [2,20] range before sending; every engine cache must
// be invalidated after a successful build.
func (c *Client) Build(ctx context.Context, width, height int, biomeIDs []string) error {
	payload := struct {
		Width    int      `json:"width"`
		Height   int      `json:"height"`
		BiomeIDs []string `json:"biome_ids,omitempty"`
	}{
		Width:    clampDimension(width),
		Height:   clampDimension(height),
		BiomeIDs: biomeIDs,
	}
	return c.post(ctx, "/api/simulation/build", payload)
}

// Run kicks off a simulation advance for the given number of epochs. The
// caller must poll HistoryLogs afterwards; see Poller.
func (c *Client) Run(ctx context.Context, epochs int) error {
	payload := struct {
		Epochs int `json:"epochs"`
	}{Epochs: epochs}
	return c.post(ctx, "/api/simulation/run", payload)
}

func clampDimension(v int) int {
	if v < 2 {
		return 2
	}
	if v > 20 {
		return 20
	}
	return v
}

func (c *Client) get(ctx context.Context, path string, values url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(values) > 0 {
		endpoint += "?" + values.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend: %s returned %s", path, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: read %s: %w", path, err)
	}
	return body, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("backend: encode %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend: %s returned %s", path, resp.Status)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
