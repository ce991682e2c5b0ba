// Package cache persists per-script extraction results keyed by content
// hash, so unchanged files skip re-extraction on the next audit. A corrupt or
// version-skewed cache degrades to a cold run, never to an error.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"depaudit/pkg/event"
)

// DefaultDir is the cache directory relative to the project root.
const DefaultDir = ".depaudit/cache"

// DefaultFile is the cache filename.
const DefaultFile = "events.msgpack"

// formatVersion invalidates caches written by incompatible releases.
const formatVersion = 2

// entry stores one script's extraction result.
type entry struct {
	Hash   string        `msgpack:"h"`
	Events []event.Event `msgpack:"e"`
}

// cacheData is the on-disk structure.
type cacheData struct {
	Version int              `msgpack:"v"`
	Entries map[string]entry `msgpack:"entries"`
}

// Store is a content-hash keyed event cache with msgpack persistence.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	path    string
}

// Open loads the store at path, or returns an empty store when the file is
// missing, unreadable, or from another format version.
func Open(path string) *Store {
	s := &Store{
		entries: make(map[string]entry),
		path:    path,
	}

	f, err := os.Open(path)
	if err != nil {
		return s
	}
	defer f.Close()

	var data cacheData
	if err := msgpack.NewDecoder(f).Decode(&data); err != nil || data.Version != formatVersion {
		return s
	}
	if data.Entries != nil {
		s.entries = data.Entries
	}
	return s
}

// OpenDefault opens the store at its default location under root.
func OpenDefault(root string) *Store {
	return Open(filepath.Join(root, DefaultDir, DefaultFile))
}

// Get returns the cached events for a script if the content hash still
// matches.
func (s *Store) Get(scriptPath, hash string) ([]event.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[scriptPath]
	if !ok || e.Hash != hash {
		return nil, false
	}
	return e.Events, true
}

// Put records the extraction result for a script.
func (s *Store) Put(scriptPath, hash string, events []event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[scriptPath] = entry{Hash: hash, Events: events}
}

// Len returns the number of cached scripts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Save persists the store to its path, creating parent directories.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	defer f.Close()

	return s.encode(f)
}

// SaveTo writes the store to the given writer.
func (s *Store) SaveTo(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.encode(w)
}

func (s *Store) encode(w io.Writer) error {
	data := cacheData{
		Version: formatVersion,
		Entries: s.entries,
	}
	if err := msgpack.NewEncoder(w).Encode(&data); err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	return nil
}

// LoadFrom replaces the store contents from the given reader.
func (s *Store) LoadFrom(r io.Reader) error {
	var data cacheData
	if err := msgpack.NewDecoder(r).Decode(&data); err != nil {
		return fmt.Errorf("decoding cache: %w", err)
	}
	if data.Version != formatVersion {
		return fmt.Errorf("cache version mismatch: have %d, want %d", data.Version, formatVersion)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = data.Entries
	if s.entries == nil {
		s.entries = make(map[string]entry)
	}
	return nil
}

// HashFile computes the SHA256 content hash used as the cache key.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("failed to hash file %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
