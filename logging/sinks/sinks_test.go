package sinks

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"chronoscope/server/logging"
)

func TestConsoleSinkFormat(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, logging.ConsoleConfig{})
	err := sink.Write(logging.Event{
		Type:     "playback_started",
		Epoch:    4,
		Severity: logging.SeverityInfo,
		Subject:  logging.SubjectRef{ID: "sub-1", Kind: logging.SubjectSystem},
		Payload:  map[string]any{"fps": 30},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	line := buf.String()
	for _, fragment := range []string{"[playback_started]", "epoch=4", "subject=system:sub-1", "severity=info", `payload={"fps":30}`} {
		if !strings.Contains(line, fragment) {
			t.Errorf("line %q missing %q", line, fragment)
		}
	}
}

func TestConsoleSinkSubjectFallbacks(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, logging.ConsoleConfig{})
	sink.Write(logging.Event{Type: "t", Subject: logging.SubjectRef{Kind: logging.SubjectFrame}})
	if !strings.Contains(buf.String(), "subject=frame") {
		t.Fatalf("kind-only subject wrong: %q", buf.String())
	}
}

func TestJSONSinkImmediateFlush(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONSink(&buf, 0)
	event := logging.Event{
		Type:     "frame_rendered",
		Epoch:    7,
		Time:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryRender,
	}
	if err := sink.Write(event); err != nil {
		t.Fatalf("write: %v", err)
	}
	scanner := bufio.NewScanner(&buf)
	if !scanner.Scan() {
		t.Fatalf("no line flushed")
	}
	var decoded map[string]any
	if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSONL line: %v", err)
	}
	if decoded["type"] != "frame_rendered" || decoded["epoch"] != float64(7) {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestJSONSinkBatchedFlushOnClose(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONSink(&buf, time.Hour)
	sink.Write(logging.Event{Type: "a"})
	sink.Write(logging.Event{Type: "b"})
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	lines := strings.Count(buf.String(), "\n")
	if lines != 2 {
		t.Fatalf("flushed %d lines, want 2", lines)
	}
}

func TestMemorySink(t *testing.T) {
	sink := NewMemorySink()
	sink.Write(logging.Event{Type: "one", Extra: map[string]any{"k": "v"}})
	events := sink.Events()
	if len(events) != 1 || events[0].Type != "one" {
		t.Fatalf("events = %+v", events)
	}
	// The retained copy is isolated from later mutation.
	events[0].Extra["k"] = "changed"
	if sink.Events()[0].Extra["k"] != "v" {
		t.Fatalf("memory sink shares extra maps with callers")
	}
	sink.Reset()
	if len(sink.Events()) != 0 {
		t.Fatalf("reset did not clear")
	}
}
