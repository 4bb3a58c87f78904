package backend

import (
	"context"
	"errors"
	"time"

	"chronoscope/server/internal/history"
	"chronoscope/server/internal/world"
)

// ErrPollTimeout reports that a poll exceeded its absolute attempt ceiling.
// It is fatal to the current operation only; the engine state is untouched.
var ErrPollTimeout = errors.New("backend: poll attempt ceiling exceeded")

// PollConfig tunes the history poller.
type PollConfig struct {
	// Interval between polls.
	Interval time.Duration
	// MaxAttempts is the absolute ceiling; exceeding it yields
	// ErrPollTimeout.
	MaxAttempts int
	// StagnationLimit ends polling normally after this many consecutive
	// polls with an unchanged observed max epoch.
	StagnationLimit int
}

// DefaultPollConfig matches the cadence the original UI used against the
// generator.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:        2 * time.Second,
		MaxAttempts:     150,
		StagnationLimit: 5,
	}
}

// PollResult is what a poll run collected, whether it reached the target or
// stagnated early.
type PollResult struct {
	Logs      []string
	MaxEpoch  world.Epoch
	Attempts  int
	Stagnated bool
}

// historySource is the slice of Client the poller needs; tests supply fakes.
type historySource interface {
	HistoryLogs(ctx context.Context) ([]string, error)
}

// Poll repeatedly fetches history logs until the observed max epoch reaches
// target, the max epoch stagnates for StagnationLimit consecutive polls
// (a normal completion returning what was collected), the attempt ceiling
// trips (ErrPollTimeout), or the context is cancelled. Transient fetch
// errors count as attempts and are retried.
func Poll(ctx context.Context, src historySource, target world.Epoch, cfg PollConfig) (PollResult, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 150
	}
	if cfg.StagnationLimit <= 0 {
		cfg.StagnationLimit = 5
	}

	var result PollResult
	lastMax := world.Epoch(-1)
	stagnant := 0

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		result.Attempts++
		if result.Attempts > cfg.MaxAttempts {
			return result, ErrPollTimeout
		}

		logs, err := src.HistoryLogs(ctx)
		if err == nil {
			result.Logs = logs
			result.MaxEpoch = history.Build(logs).MaxEpoch()
			if result.MaxEpoch >= target {
				return result, nil
			}
			if result.MaxEpoch == lastMax {
				stagnant++
				if stagnant >= cfg.StagnationLimit {
					result.Stagnated = true
					return result, nil
				}
			} else {
				stagnant = 0
				lastMax = result.MaxEpoch
			}
		} else if ctx.Err() != nil {
			return result, ctx.Err()
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}
