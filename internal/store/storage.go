// Package store persists fetched world snapshots and history logs so a
// restarted engine can replay without the generator backend.
package store

import (
	"errors"

	"chronoscope/server/internal/world"
)

// ErrNotFound reports a missing named snapshot.
var ErrNotFound = errors.New("store: snapshot not found")

// Storage is the persistence boundary. Implementations must be safe for
// concurrent use by the hub and the HTTP handlers.
type Storage interface {
	SaveSnapshot(name string, snapshot *world.Snapshot) error
	LoadSnapshot(name string) (*world.Snapshot, error)
	AppendHistory(name string, lines []string) error
	LoadHistory(name string) ([]string, error)
	Close() error
}
