package history

import (
	"chronoscope/server/internal/world"
)

// Index buckets normalized events by epoch. Buckets preserve log insertion
// order and are never sorted further. Rebuilding from a fuller log replaces
// the prior index wholesale.
type Index struct {
	byEpoch  map[world.Epoch][]Event
	maxEpoch world.Epoch
	skipped  int
}

// Build parses a raw log into a fresh index. Lines that fail to parse are
// counted and skipped; a malformed line never aborts the load. An empty or
// fully malformed log yields maxEpoch zero.
func Build(lines []string) *Index {
	idx := &Index{byEpoch: make(map[world.Epoch][]Event)}
	for _, line := range lines {
		if line == "" {
			continue
		}
		evt, ok := Normalize([]byte(line))
		if !ok {
			idx.skipped++
			continue
		}
		idx.byEpoch[evt.Epoch] = append(idx.byEpoch[evt.Epoch], evt)
		if evt.Epoch > idx.maxEpoch {
			idx.maxEpoch = evt.Epoch
		}
	}
	return idx
}

// At returns the bucket for an epoch in insertion order. The returned slice
// is shared; callers must not mutate it.
func (i *Index) At(epoch world.Epoch) []Event {
	if i == nil {
		return nil
	}
	return i.byEpoch[epoch]
}

// MaxEpoch is the highest epoch observed across the log.
func (i *Index) MaxEpoch() world.Epoch {
	if i == nil {
		return 0
	}
	return i.maxEpoch
}

// Len is the number of indexed events.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	total := 0
	for _, bucket := range i.byEpoch {
		total += len(bucket)
	}
	return total
}

// Skipped counts log lines dropped during the build.
func (i *Index) Skipped() int {
	if i == nil {
		return 0
	}
	return i.skipped
}

// Epochs returns the set of epochs that have at least one event.
func (i *Index) Epochs() []world.Epoch {
	if i == nil {
		return nil
	}
	epochs := make([]world.Epoch, 0, len(i.byEpoch))
	for epoch := range i.byEpoch {
		epochs = append(epochs, epoch)
	}
	return epochs
}
