// Package playback owns the epoch cursor: a frame-driven state machine that
// converts elapsed wall-clock time into a continuous epoch position, fires
// boundary crossings exactly once, and guarantees cooperative cancellation
// within one frame.
package playback

import (
	"sync"
	"time"
)

// State enumerates the controller's two modes. There is no paused state; a
// stop returns to Idle and a later play resumes from the current cursor.
type State int

const (
	Idle State = iota
	Playing
)

// Position is the externally visible cursor: an integer epoch plus a
// fractional progress in [0,1] inside it.
type Position struct {
	Epoch    int     `json:"epoch"`
	Progress float64 `json:"progress"`
	Playing  bool    `json:"playing"`
	MaxEpoch int     `json:"maxEpoch"`
}

// Controller is the single owner of playback state. All mutations happen
// through its methods; the zero value is unusable, use New.
type Controller struct {
	mu            sync.Mutex
	state         State
	epoch         int
	progress      float64
	maxEpoch      int
	epochDuration time.Duration

	startEpoch int
	startTime  time.Time
	lastWhole  int

	onCrossing func(epoch int)
	done       chan struct{}
}

// New builds an idle controller. epochDuration is the wall-clock length of
// one epoch's animation window.
func New(epochDuration time.Duration) *Controller {
	if epochDuration <= 0 {
		epochDuration = time.Second
	}
	return &Controller{
		epochDuration: epochDuration,
		done:          make(chan struct{}),
	}
}

// SetMaxEpoch updates the playback ceiling, clamping the cursor back if the
// new ceiling is lower.
func (c *Controller) SetMaxEpoch(max int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if max < 0 {
		max = 0
	}
	c.maxEpoch = max
	if c.epoch > max {
		c.epoch = max
		c.progress = 0
	}
}

// OnCrossing registers the side-effect callback fired once per epoch
// boundary crossed during playback.
func (c *Controller) OnCrossing(fn func(epoch int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCrossing = fn
}

// Play enters the Playing state from the current cursor. A re-entrant call
// while already playing is rejected so two runs can never interleave.
func (c *Controller) Play() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Playing {
		return false
	}
	if c.epoch >= c.maxEpoch && c.progress >= 1.0 {
		// Restart from the beginning when the last run finished.
		c.epoch = 0
		c.progress = 0
	}
	c.state = Playing
	c.startEpoch = c.epoch
	c.startTime = time.Time{} // stamped on the first frame
	c.lastWhole = c.epoch
	c.done = make(chan struct{})
	return true
}

// Stop requests cancellation. The flag flips immediately; a frame already
// being produced is the last one, matching the one-frame guarantee.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Idle
}

// Seek cancels any active playback first, then applies the manual cursor so
// the two control paths never fight over epoch state.
func (c *Controller) Seek(epoch int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Idle
	if epoch < 0 {
		epoch = 0
	}
	if epoch > c.maxEpoch {
		epoch = c.maxEpoch
	}
	c.epoch = epoch
	c.progress = 0
}

// Advance moves the cursor for one frame at the given wall-clock instant.
// The first frame after Play stamps the start time; subsequent frames map
// elapsed time onto a continuous epoch position. Reaching the ceiling clamps
// to (maxEpoch, 1.0), stops playback and resolves the completion signal.
// Calling Advance while idle returns the cursor unchanged.
func (c *Controller) Advance(now time.Time) Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Playing {
		return c.positionLocked()
	}
	if c.startTime.IsZero() {
		c.startTime = now
	}
	elapsed := now.Sub(c.startTime)
	target := float64(c.startEpoch) + float64(elapsed)/float64(c.epochDuration)

	whole := int(target)
	if whole > c.maxEpoch {
		c.epoch = c.maxEpoch
		c.progress = 1.0
		c.state = Idle
		c.fireCrossingsLocked(c.maxEpoch)
		close(c.done)
		return c.positionLocked()
	}

	c.epoch = whole
	c.progress = target - float64(whole)
	c.fireCrossingsLocked(whole)
	return c.positionLocked()
}

// fireCrossingsLocked invokes the boundary callback once for each integer
// epoch passed since the previous frame.
func (c *Controller) fireCrossingsLocked(upto int) {
	if c.onCrossing == nil {
		c.lastWhole = upto
		return
	}
	for e := c.lastWhole + 1; e <= upto; e++ {
		c.onCrossing(e)
	}
	if upto > c.lastWhole {
		c.lastWhole = upto
	}
}

// Done exposes the completion signal for the current run. The channel is
// closed when playback reaches the ceiling; cancelled runs never resolve it.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Current returns the cursor without advancing it.
func (c *Controller) Current() Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

func (c *Controller) positionLocked() Position {
	return Position{
		Epoch:    c.epoch,
		Progress: c.progress,
		Playing:  c.state == Playing,
		MaxEpoch: c.maxEpoch,
	}
}
