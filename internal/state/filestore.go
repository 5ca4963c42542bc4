package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists the two state documents. Implementations must make each
// save atomic: a reader never observes a half-written document.
type Store interface {
	LoadSettings() (Settings, bool, error)
	SaveSettings(Settings) error
	LoadMarkers() (Markers, error)
	SaveMarkers(Markers) error
}

// FileStore keeps settings.json and markers.json in a directory, rewriting
// each file in full through a temp-file rename on every save.
type FileStore struct {
	dir string
}

const (
	settingsFile = "settings.json"
	markersFile  = "markers.json"
)

// NewFileStore creates the state directory if needed and returns a FileStore.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("state dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// LoadSettings reads the settings document. The second return value is false
// when no document exists yet and the caller should fall back to defaults.
func (s *FileStore) LoadSettings() (Settings, bool, error) {
	var settings Settings
	ok, err := s.load(settingsFile, &settings)
	if err != nil {
		return Settings{}, false, err
	}
	if ok && settings.Accounts == nil {
		settings.Accounts = []string{}
	}
	return settings, ok, nil
}

// SaveSettings atomically rewrites the settings document.
func (s *FileStore) SaveSettings(settings Settings) error {
	return s.save(settingsFile, settings)
}

// LoadMarkers reads the marker document, returning an empty map when absent.
func (s *FileStore) LoadMarkers() (Markers, error) {
	markers := Markers{}
	if _, err := s.load(markersFile, &markers); err != nil {
		return nil, err
	}
	return markers, nil
}

// SaveMarkers atomically rewrites the marker document.
func (s *FileStore) SaveMarkers(markers Markers) error {
	return s.save(markersFile, markers)
}

func (s *FileStore) load(name string, out any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

func (s *FileStore) save(name string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
