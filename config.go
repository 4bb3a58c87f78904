package server

import (
	"time"

	"chronoscope/server/internal/telemetry"
	"chronoscope/server/logging"
)

// HubConfig tunes the engine hub. Zero values fall back to the defaults
// below at construction time.
type HubConfig struct {
	// FrameRate is the playback tick rate in frames per second.
	FrameRate int
	// EpochDuration is the wall-clock animation window of one epoch.
	EpochDuration time.Duration
	// GraphWidth and GraphHeight bound the force-layout canvas.
	GraphWidth  float64
	GraphHeight float64
	// LayoutSeed keeps graph seeding deterministic in tests; any value
	// works in production.
	LayoutSeed int64
	// SnapshotName is the store key snapshots persist under.
	SnapshotName string

	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	// Publisher receives structured engine events. Nil disables them.
	Publisher logging.Publisher
}

const (
	defaultFrameRate     = 30
	defaultEpochDuration = 1200 * time.Millisecond
)

// DefaultHubConfig returns the tuning the server ships with.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		FrameRate:     defaultFrameRate,
		EpochDuration: defaultEpochDuration,
		GraphWidth:    800,
		GraphHeight:   600,
		LayoutSeed:    time.Now().UnixNano(),
		SnapshotName:  "latest",
	}
}

func (c HubConfig) withDefaults() HubConfig {
	if c.FrameRate <= 0 {
		c.FrameRate = defaultFrameRate
	}
	if c.EpochDuration <= 0 {
		c.EpochDuration = defaultEpochDuration
	}
	if c.GraphWidth <= 0 {
		c.GraphWidth = 800
	}
	if c.GraphHeight <= 0 {
		c.GraphHeight = 600
	}
	if c.SnapshotName == "" {
		c.SnapshotName = "latest"
	}
	return c
}
