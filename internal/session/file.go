package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// FileStore writes slots to a JSON file with restricted permissions. A
// sibling lock file serializes access across concurrent avatarctl processes.
type FileStore struct {
	path   string
	lock   *flock.Flock
	mu     sync.Mutex
	expiry time.Duration
	now    func() time.Time
}

type fileState struct {
	Slots map[string]entry `json:"slots"`
}

// NewFileStore builds a FileStore rooted at path.
func NewFileStore(path string, expiry time.Duration) *FileStore {
	return &FileStore{
		path:   path,
		lock:   flock.New(path + ".lock"),
		expiry: expiry,
		now:    time.Now,
	}
}

// Path returns the token file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(slots ...string) (map[string]string, error) {
	if err := validateSlots(slots); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	if err := s.lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock session file: %w", err)
	}
	defer s.lock.Unlock() //nolint:errcheck

	state, err := s.load()
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make(map[string]string, len(slots))
	for _, slot := range slots {
		if e, ok := state.Slots[slot]; ok && e.live(now) {
			out[slot] = e.Value
		}
	}
	return out, nil
}

func (s *FileStore) Set(values map[string]string) error {
	slots := make([]string, 0, len(values))
	for slot := range values {
		slots = append(slots, slot)
	}
	if err := validateSlots(slots); err != nil {
		return err
	}
	return s.update(func(state *fileState, now time.Time) {
		expires := expiryFor(now, s.expiry)
		for slot, value := range values {
			state.Slots[slot] = entry{Value: value, ExpiresAt: expires}
		}
	})
}

func (s *FileStore) Clear(slots ...string) error {
	return s.update(func(state *fileState, _ time.Time) {
		for _, slot := range slots {
			delete(state.Slots, slot)
		}
	})
}

func (s *FileStore) update(mutate func(*fileState, time.Time)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureDir(); err != nil {
		return err
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock session file: %w", err)
	}
	defer s.lock.Unlock() //nolint:errcheck

	state, err := s.load()
	if err != nil {
		return err
	}
	now := s.now()
	mutate(&state, now)
	for slot, e := range state.Slots {
		if !e.live(now) {
			delete(state.Slots, slot)
		}
	}
	return s.save(state)
}

func (s *FileStore) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("ensure session directory: %w", err)
	}
	return nil
}

// load reads the token file. A missing file resolves to an empty state.
func (s *FileStore) load() (fileState, error) {
	state := fileState{Slots: map[string]entry{}}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return state, nil
		}
		return state, fmt.Errorf("read session file: %w", err)
	}
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("decode session file: %w", err)
	}
	if state.Slots == nil {
		state.Slots = map[string]entry{}
	}
	return state, nil
}

// save writes through a temp file and rename so readers never see a partial pair.
func (s *FileStore) save(state fileState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*.json")
	if err != nil {
		return fmt.Errorf("create session temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("chmod session temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
