package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver

	"chronoscope/server/internal/world"
)

// PostgresStore persists snapshots and history in PostgreSQL with JSONB
// payload columns.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the connection, verifies it, and initializes the
// schema.
func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}
	store := &PostgresStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: initialize schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		name TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS history_lines (
		id BIGSERIAL PRIMARY KEY,
		snapshot_name TEXT NOT NULL,
		line TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS history_lines_snapshot_idx
		ON history_lines (snapshot_name, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveSnapshot upserts the snapshot payload under its name.
func (s *PostgresStore) SaveSnapshot(name string, snapshot *world.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("store: encode snapshot %s: %w", name, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO snapshots (name, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET payload = $2, updated_at = NOW()`,
		name, payload)
	if err != nil {
		return fmt.Errorf("store: save snapshot %s: %w", name, err)
	}
	return nil
}

// LoadSnapshot reads a named snapshot, reporting ErrNotFound when absent.
func (s *PostgresStore) LoadSnapshot(name string) (*world.Snapshot, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM snapshots WHERE name = $1`, name).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: load snapshot %s: %w", name, err)
	}
	var snapshot world.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("store: decode snapshot %s: %w", name, err)
	}
	return &snapshot, nil
}

// AppendHistory inserts log lines in order inside one transaction.
func (s *PostgresStore) AppendHistory(name string, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin history append: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO history_lines (snapshot_name, line) VALUES ($1, $2)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("store: prepare history append: %w", err)
	}
	defer stmt.Close()
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, err := stmt.Exec(name, line); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: append history %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// LoadHistory reads all lines for a snapshot in insertion order.
func (s *PostgresStore) LoadHistory(name string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT line FROM history_lines WHERE snapshot_name = $1 ORDER BY id`, name)
	if err != nil {
		return nil, fmt.Errorf("store: load history %s: %w", name, err)
	}
	defer rows.Close()
	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("store: scan history %s: %w", name, err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var _ Storage = (*PostgresStore)(nil)
