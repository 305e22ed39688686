package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLStore persists the venue snapshot in a single-row SQLite table. It is
// the slower shared copy; the file store is authoritative when newer.
type SQLStore struct {
	db *sql.DB
}

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS venue_snapshot (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	last_updated TEXT NOT NULL,
	payload BLOB NOT NULL
)`

// NewSQLStore opens (and if needed initializes) the snapshot database.
func NewSQLStore(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db: %w", err)
	}
	if _, err := db.Exec(snapshotSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing snapshot db: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Name() string { return "sqlite" }

// Close releases the underlying database handle.
func (s *SQLStore) Close() error { return s.db.Close() }

// Load reads the snapshot row. An empty table yields an empty snapshot.
func (s *SQLStore) Load() (*VenueSnapshot, error) {
	var lastUpdated string
	var payload []byte
	err := s.db.QueryRow(`SELECT last_updated, payload FROM venue_snapshot WHERE id = 1`).
		Scan(&lastUpdated, &payload)
	if err == sql.ErrNoRows {
		return EmptySnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}

	var snap VenueSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot payload: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339, lastUpdated); err == nil && snap.LastUpdated.IsZero() {
		snap.LastUpdated = ts
	}
	if snap.Venues == nil {
		snap.Venues = make(map[string]*VenueRecord)
	}
	return &snap, nil
}

// Save upserts the snapshot row (idempotent overwrite).
func (s *SQLStore) Save(snap *VenueSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot payload: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO venue_snapshot (id, last_updated, payload) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_updated = excluded.last_updated, payload = excluded.payload`,
		snap.LastUpdated.UTC().Format(time.RFC3339), payload)
	if err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}
