// Package config loads the server configuration from a TOML file with
// sensible defaults for every field.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Backend  BackendConfig  `toml:"backend"`
	Store    StoreConfig    `toml:"store"`
	Playback PlaybackConfig `toml:"playback"`
	Logging  LoggingConfig  `toml:"logging"`
}

// ServerConfig covers the HTTP listener.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// BackendConfig points at the upstream simulation API.
type BackendConfig struct {
	URL string `toml:"url"`
	// PollInterval separates history polls while a run is in flight.
	PollInterval duration `toml:"poll_interval"`
	// PollMaxAttempts caps polling before giving up on a run.
	PollMaxAttempts int `toml:"poll_max_attempts"`
	// PollStagnationLimit is how many unchanged polls mean the run is done.
	PollStagnationLimit int `toml:"poll_stagnation_limit"`
}

// StoreConfig selects and configures snapshot persistence.
type StoreConfig struct {
	// Backend is "json" or "postgres".
	Backend string `toml:"backend"`
	// Dir holds snapshots when Backend is "json".
	Dir string `toml:"dir"`
	// DSN is the connection string when Backend is "postgres".
	DSN string `toml:"dsn"`
}

// PlaybackConfig tunes the frame loop.
type PlaybackConfig struct {
	FrameRate     int      `toml:"frame_rate"`
	EpochDuration duration `toml:"epoch_duration"`
	GraphWidth    float64  `toml:"graph_width"`
	GraphHeight   float64  `toml:"graph_height"`
}

// LoggingConfig selects event log sinks.
type LoggingConfig struct {
	// Sinks lists enabled sinks: "console", "json", "memory".
	Sinks []string `toml:"sinks"`
	// JSONPath is where the json sink writes, when enabled.
	JSONPath string `toml:"json_path"`
	// BufferSize bounds the router queue.
	BufferSize int `toml:"buffer_size"`
}

// duration wraps time.Duration for TOML string values like "1200ms".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration the server runs with when no file is
// provided.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8090"},
		Backend: BackendConfig{
			URL:                 "http://localhost:8000",
			PollInterval:        duration{2 * time.Second},
			PollMaxAttempts:     150,
			PollStagnationLimit: 5,
		},
		Store: StoreConfig{
			Backend: "json",
			Dir:     "snapshots",
		},
		Playback: PlaybackConfig{
			FrameRate:     30,
			EpochDuration: duration{1200 * time.Millisecond},
			GraphWidth:    800,
			GraphHeight:   600,
		},
		Logging: LoggingConfig{
			Sinks:      []string{"console"},
			BufferSize: 512,
		},
	}
}

// Load reads path and overlays it on the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case "json", "postgres":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == "postgres" && c.Store.DSN == "" {
		return fmt.Errorf("store backend postgres requires a dsn")
	}
	if c.Playback.FrameRate < 0 {
		return fmt.Errorf("frame_rate must not be negative")
	}
	return nil
}

// EpochDurationValue unwraps the TOML duration.
func (p PlaybackConfig) EpochDurationValue() time.Duration {
	return p.EpochDuration.Duration
}

// PollIntervalValue unwraps the TOML duration.
func (b BackendConfig) PollIntervalValue() time.Duration {
	return b.PollInterval.Duration
}
