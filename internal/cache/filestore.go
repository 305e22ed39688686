package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore persists the venue snapshot as a single JSON file. The file is
// written by the external scraper; Save is only used for repair.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed snapshot store. A leading ~/ expands to
// the home directory.
func NewFileStore(path string) (*FileStore, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Name() string { return "file" }

// Load reads the snapshot file. A missing file yields an empty snapshot,
// not an error.
func (s *FileStore) Load() (*VenueSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return EmptySnapshot(), nil
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap VenueSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if snap.Venues == nil {
		snap.Venues = make(map[string]*VenueRecord)
	}
	return &snap, nil
}

// Save writes the snapshot atomically via a temp file rename.
func (s *FileStore) Save(snap *VenueSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}
