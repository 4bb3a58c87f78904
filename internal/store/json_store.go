package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"chronoscope/server/internal/world"
)

// JSONStore keeps snapshots as pretty-printed JSON files and history logs
// as JSONL, one directory per store.
type JSONStore struct {
	mu  sync.Mutex
	dir string
}

// NewJSONStore creates the data directory if needed.
func NewJSONStore(dir string) (*JSONStore, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create %s: %w", dir, err)
	}
	return &JSONStore{dir: dir}, nil
}

func (s *JSONStore) snapshotPath(name string) string {
	return filepath.Join(s.dir, sanitize(name)+".json")
}

func (s *JSONStore) historyPath(name string) string {
	return filepath.Join(s.dir, sanitize(name)+".history.jsonl")
}

func sanitize(name string) string {
	if name == "" {
		return "world"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// SaveSnapshot writes the snapshot atomically via a temp file rename.
func (s *JSONStore) SaveSnapshot(name string, snapshot *world.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode snapshot %s: %w", name, err)
	}
	path := s.snapshotPath(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: write snapshot %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("store: commit snapshot %s: %w", name, err)
	}
	return nil
}

// LoadSnapshot reads a named snapshot, reporting ErrNotFound when absent.
func (s *JSONStore) LoadSnapshot(name string) (*world.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.snapshotPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: read snapshot %s: %w", name, err)
	}
	var snapshot world.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("store: decode snapshot %s: %w", name, err)
	}
	return &snapshot, nil
}

// AppendHistory appends raw log lines to the JSONL file. Empty lines are
// skipped to keep the file replayable.
func (s *JSONStore) AppendHistory(name string, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := os.OpenFile(s.historyPath(name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("store: open history %s: %w", name, err)
	}
	defer file.Close()
	writer := bufio.NewWriter(file)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, err := writer.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("store: append history %s: %w", name, err)
		}
	}
	return writer.Flush()
}

// LoadHistory reads all stored history lines; a missing file is an empty
// history, not an error.
func (s *JSONStore) LoadHistory(name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := os.Open(s.historyPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: open history %s: %w", name, err)
	}
	defer file.Close()
	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("store: scan history %s: %w", name, err)
	}
	return lines, nil
}

// Close satisfies Storage; the JSON store holds no long-lived handles.
func (s *JSONStore) Close() error {
	return nil
}

var _ Storage = (*JSONStore)(nil)
