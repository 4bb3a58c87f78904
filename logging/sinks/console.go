// Package sinks holds logging.Sink implementations: a human-readable
// console sink, a batched JSONL sink, and an in-memory sink for tests.
package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"chronoscope/server/logging"
)

// ConsoleSink writes one formatted line per event.
type ConsoleSink struct {
	logger *log.Logger
}

// NewConsoleSink wraps a writer; cfg reserves color handling for the CLI.
func NewConsoleSink(w io.Writer, cfg logging.ConsoleConfig) *ConsoleSink {
	return &ConsoleSink{logger: log.New(w, "", log.LstdFlags)}
}

// Write satisfies logging.Sink.
func (s *ConsoleSink) Write(event logging.Event) error {
	if s.logger == nil {
		return nil
	}
	s.logger.Printf("[%s] epoch=%d subject=%s severity=%s%s",
		event.Type, event.Epoch, formatSubject(event.Subject), formatSeverity(event.Severity), formatPayload(event.Payload))
	return nil
}

// Close satisfies logging.Sink.
func (s *ConsoleSink) Close(context.Context) error {
	return nil
}

func formatSeverity(sev logging.Severity) string {
	switch sev {
	case logging.SeverityDebug:
		return "debug"
	case logging.SeverityInfo:
		return "info"
	case logging.SeverityWarn:
		return "warn"
	case logging.SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

func formatSubject(ref logging.SubjectRef) string {
	if ref.ID == "" {
		return string(ref.Kind)
	}
	if ref.Kind == "" {
		return ref.ID
	}
	return fmt.Sprintf("%s:%s", ref.Kind, ref.ID)
}

func formatPayload(payload any) string {
	if payload == nil {
		return ""
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(" payload=%v", payload)
	}
	return " payload=" + string(data)
}
