// Package prefs persists per-viewer display preferences in a YAML file.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"

	"github.com/HaPhanBaoMinh/ktail/internal/domain"
)

type document struct {
	Viewers map[string]domain.ViewPreferences `yaml:"viewers,omitempty"`
}

// Store serves reads from memory and writes the file in the background.
type Store struct {
	path string
	log  logr.Logger

	mu      sync.Mutex
	cache   map[string]domain.ViewPreferences
	version uint64

	writeMu sync.Mutex
	written uint64
	pending sync.WaitGroup
}

// Open loads path. A missing file is an empty store. An empty path keeps the
// store in memory only.
func Open(path string, log logr.Logger) (*Store, error) {
	s := &Store{path: strings.TrimSpace(path), log: log, cache: map[string]domain.ViewPreferences{}}
	if s.path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse preferences %s: %w", s.path, err)
	}
	for k, v := range doc.Viewers {
		s.cache[k] = v
	}
	return s, nil
}

// Key builds the preferences key of a viewer.
func Key(app, namespace, name string) string {
	return strings.Join([]string{app, namespace, name}, "/")
}

func (s *Store) Get(key string) domain.ViewPreferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache[key]
}

// Set updates the cache and schedules a write. Write failures are logged.
func (s *Store) Set(key string, p domain.ViewPreferences) {
	s.mu.Lock()
	s.cache[key] = p
	s.version++
	version := s.version
	snapshot := make(map[string]domain.ViewPreferences, len(s.cache))
	for k, v := range s.cache {
		snapshot[k] = v
	}
	s.mu.Unlock()

	if s.path == "" {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.write(version, snapshot); err != nil {
			s.log.Error(err, "save preferences", "path", s.path)
		}
	}()
}

// Flush waits for scheduled writes to finish.
func (s *Store) Flush() {
	s.pending.Wait()
}

func (s *Store) write(version uint64, viewers map[string]domain.ViewPreferences) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if version <= s.written {
		return nil
	}
	raw, err := yaml.Marshal(document{Viewers: viewers})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}
	s.written = version
	s.log.V(2).Info("preferences saved", "path", s.path, "viewers", len(viewers))
	return nil
}
