// Package logging is the structured event pipeline for the engine: typed
// events flow through a buffered router into pluggable sinks. Rendering and
// playback publish here instead of writing to the standard logger so frame
// production is never blocked on IO.
package logging

import (
	"context"
	"time"
)

// EventType names a structured event, e.g. "playback_started".
type EventType string

// Severity orders events for sink filtering.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

// SubjectKind tags what an event is about.
type SubjectKind string

const (
	SubjectUnknown  SubjectKind = "unknown"
	SubjectEntity   SubjectKind = "entity"
	SubjectEvent    SubjectKind = "event"
	SubjectFrame    SubjectKind = "frame"
	SubjectSnapshot SubjectKind = "snapshot"
	SubjectSystem   SubjectKind = "system"
)

// SubjectRef points an event at the thing it describes.
type SubjectRef struct {
	ID   string      `json:"id"`
	Kind SubjectKind `json:"kind"`
}

// Event categories used across the engine.
const (
	CategoryRender    = "render"
	CategoryPlayback  = "playback"
	CategoryTransport = "transport"
	CategorySystem    = "system"
)

// Event is one structured log record. Epoch is the simulation epoch the
// event refers to, not wall-clock time.
type Event struct {
	Type     EventType      `json:"type"`
	Epoch    int            `json:"epoch"`
	Time     time.Time      `json:"time"`
	Subject  SubjectRef     `json:"subject"`
	Severity Severity       `json:"severity"`
	Category string         `json:"category,omitempty"`
	Payload  any            `json:"payload,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// WithExtra returns the event with one extra field attached.
func (e Event) WithExtra(key string, value any) Event {
	if e.Extra == nil {
		e.Extra = make(map[string]any, 1)
	}
	e.Extra[key] = value
	return e
}

// Publisher accepts events for asynchronous delivery.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// PublisherFunc adapts a function into a Publisher.
type PublisherFunc func(ctx context.Context, event Event)

// Publish implements Publisher.
func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

// NopPublisher discards everything; the default for tests and tools.
func NopPublisher() Publisher {
	return nopPublisher{}
}

type fieldPublisher struct {
	next   Publisher
	fields map[string]any
}

func (p *fieldPublisher) Publish(ctx context.Context, event Event) {
	if p.next == nil {
		return
	}
	if len(p.fields) > 0 {
		event = cloneForFields(event)
		if event.Extra == nil {
			event.Extra = make(map[string]any, len(p.fields))
		}
		for k, v := range p.fields {
			if _, exists := event.Extra[k]; !exists {
				event.Extra[k] = v
			}
		}
	}
	p.next.Publish(ctx, event)
}

// WithFields decorates a publisher so every event carries the given extras
// unless the event already set them.
func WithFields(p Publisher, fields map[string]any) Publisher {
	if p == nil {
		return NopPublisher()
	}
	if len(fields) == 0 {
		return p
	}
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &fieldPublisher{next: p, fields: copied}
}

func cloneForFields(event Event) Event {
	cloned := event
	if event.Extra != nil {
		copied := make(map[string]any, len(event.Extra))
		for k, v := range event.Extra {
			copied[k] = v
		}
		cloned.Extra = copied
	}
	return cloned
}
