package backend

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeSource scripts a sequence of log responses; the last entry repeats.
type fakeSource struct {
	responses [][]string
	errs      []error
	calls     int
}

func (f *fakeSource) HistoryLogs(context.Context) ([]string, error) {
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return f.responses[i], err
}

func line(epoch int) string {
	return fmt.Sprintf(`{"event_type":"growth","created_at":%d}`, epoch)
}

func fastPoll() PollConfig {
	return PollConfig{Interval: time.Millisecond, MaxAttempts: 20, StagnationLimit: 3}
}

func TestPollReachesTarget(t *testing.T) {
	src := &fakeSource{responses: [][]string{
		{line(1)},
		{line(1), line(2)},
		{line(1), line(2), line(5)},
	}}
	result, err := Poll(context.Background(), src, 5, fastPoll())
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if result.MaxEpoch != 5 || result.Stagnated {
		t.Fatalf("result = %+v", result)
	}
	if len(result.Logs) != 3 {
		t.Fatalf("logs = %d lines, want 3", len(result.Logs))
	}
}

func TestPollStagnationIsNormalCompletion(t *testing.T) {
	src := &fakeSource{responses: [][]string{{line(2)}}}
	result, err := Poll(context.Background(), src, 10, fastPoll())
	if err != nil {
		t.Fatalf("stagnation must not error: %v", err)
	}
	if !result.Stagnated {
		t.Fatalf("result not marked stagnated: %+v", result)
	}
	if result.MaxEpoch != 2 {
		t.Fatalf("maxEpoch = %d, want the collected 2", result.MaxEpoch)
	}
}

func TestPollCeilingIsTimeout(t *testing.T) {
	// Every poll reports a new epoch so stagnation never triggers.
	var responses [][]string
	for i := 1; i <= 30; i++ {
		responses = append(responses, []string{line(i)})
	}
	src := &fakeSource{responses: responses}
	cfg := fastPoll()
	cfg.StagnationLimit = 100
	result, err := Poll(context.Background(), src, 1000, cfg)
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("err = %v, want ErrPollTimeout", err)
	}
	if result.Attempts != cfg.MaxAttempts+1 {
		t.Fatalf("attempts = %d", result.Attempts)
	}
	if len(result.Logs) == 0 {
		t.Fatalf("partial logs discarded on timeout")
	}
}

func TestPollRetriesTransientErrors(t *testing.T) {
	src := &fakeSource{
		responses: [][]string{nil, nil, {line(3)}},
		errs:      []error{errors.New("conn refused"), errors.New("conn refused"), nil},
	}
	result, err := Poll(context.Background(), src, 3, fastPoll())
	if err != nil {
		t.Fatalf("transient errors should be retried: %v", err)
	}
	if result.MaxEpoch != 3 || result.Attempts != 3 {
		t.Fatalf("result = %+v", result)
	}
}

func TestPollHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &fakeSource{responses: [][]string{{line(1)}}}
	cfg := fastPoll()
	cfg.Interval = time.Hour
	_, err := Poll(ctx, src, 10, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
