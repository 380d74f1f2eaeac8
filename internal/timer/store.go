package timer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Snapshot is the persisted form of a running countdown. Only the start
// instant and the planned duration are stored; remaining time is always
// rederived from the wall clock so a reloaded process cannot drift.
type Snapshot struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// StateStore persists countdown snapshots across process restarts.
type StateStore interface {
	Load(key string) (Snapshot, bool, error)
	Save(key string, snapshot Snapshot) error
	Remove(key string) error
}

// MemoryStore keeps snapshots in process memory. It backs tests and
// deployments that do not need restart survival.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Snapshot
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Snapshot)}
}

// Load returns the snapshot for key if one exists.
func (s *MemoryStore) Load(key string) (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, ok := s.entries[key]
	return snapshot, ok, nil
}

// Save stores the snapshot under key, replacing any previous value.
func (s *MemoryStore) Save(key string, snapshot Snapshot) error {
	s.mu.Lock()
	s.entries[key] = snapshot
	s.mu.Unlock()
	return nil
}

// Remove deletes the snapshot for key. Removing an absent key is a no-op.
func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// FileStore persists one JSON file per key under a directory, so countdowns
// survive process restarts.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore constructs a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("timer: store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("timer: create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".json")
}

// Load returns the snapshot for key if its file exists and parses.
func (s *FileStore) Load(key string) (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("timer: read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		// A corrupt snapshot is indistinguishable from no snapshot; the
		// countdown restarts fresh rather than failing.
		return Snapshot{}, false, nil
	}
	return snapshot, true, nil
}

// Save writes the snapshot for key atomically via a temp file rename.
func (s *FileStore) Save(key string, snapshot Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("timer: encode snapshot: %w", err)
	}

	target := s.path(key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("timer: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("timer: commit snapshot: %w", err)
	}
	return nil
}

// Remove deletes the snapshot file for key. Removing an absent key is a no-op.
func (s *FileStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("timer: remove snapshot: %w", err)
	}
	return nil
}

func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
}
