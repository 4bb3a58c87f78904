// Package history normalizes the backend's heterogeneous event log into
// canonical records, buckets them by epoch, and classifies event types for
// the animation layer.
package history

import (
	"encoding/json"

	"chronoscope/server/internal/world"
)

// Event is the canonical history record. The backend emits several shapes;
// Normalize maps them all onto this one.
type Event struct {
	Type       string         `json:"event_type"`
	Epoch      world.Epoch    `json:"epoch"`
	PrimaryID  string         `json:"primary_entity,omitempty"`
	LocationID string         `json:"location_id,omitempty"`
	Summary    string         `json:"summary,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// rawEvent mirrors the loose wire shapes: the epoch may live at the root
// under created_at or age, or inside the data payload under age; the primary
// entity may be a bare id or an embedded entity object.
type rawEvent struct {
	Type       string          `json:"event_type"`
	CreatedAt  any             `json:"created_at"`
	Age        any             `json:"age"`
	Primary    json.RawMessage `json:"primary_entity"`
	LocationID string          `json:"location_id"`
	Summary    string          `json:"summary"`
	Data       map[string]any  `json:"data"`
}

// Normalize parses one raw log line into a canonical Event. The second
// return is false when the line is not a JSON object; such lines are skipped
// by the index, never fatal.
func Normalize(line []byte) (Event, bool) {
	var raw rawEvent
	if err := json.Unmarshal(line, &raw); err != nil {
		return Event{}, false
	}
	evt := Event{
		Type:       raw.Type,
		Epoch:      resolveEpoch(raw),
		PrimaryID:  decodePrimary(raw.Primary),
		LocationID: raw.LocationID,
		Summary:    raw.Summary,
		Data:       raw.Data,
	}
	return evt, true
}

// resolveEpoch applies the documented precedence: created_at, then age, then
// data.age, then zero. All values are coerced to numbers.
func resolveEpoch(raw rawEvent) world.Epoch {
	if raw.CreatedAt != nil {
		if n, ok := anyToEpoch(raw.CreatedAt); ok {
			return n
		}
	}
	if raw.Age != nil {
		if n, ok := anyToEpoch(raw.Age); ok {
			return n
		}
	}
	if raw.Data != nil {
		if v, ok := raw.Data["age"]; ok {
			if n, ok := anyToEpoch(v); ok {
				return n
			}
		}
	}
	return 0
}

func numberToEpoch(n json.Number) (world.Epoch, bool) {
	if i, err := n.Int64(); err == nil {
		return world.Epoch(i), true
	}
	if f, err := n.Float64(); err == nil {
		return world.Epoch(f), true
	}
	return 0, false
}

func anyToEpoch(v any) (world.Epoch, bool) {
	switch value := v.(type) {
	case float64:
		return world.Epoch(value), true
	case json.Number:
		return numberToEpoch(value)
	case string:
		return numberToEpoch(json.Number(value))
	default:
		return 0, false
	}
}

func decodePrimary(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}
