package session

import (
	"sync"
	"time"
)

// MemoryStore keeps slots in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	slots  map[string]entry
	expiry time.Duration
	now    func() time.Time
}

// MemoryOption customises MemoryStore construction.
type MemoryOption func(*MemoryStore)

// WithMemoryClock overrides the clock used for expiry (used in tests).
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore returns an empty store whose slots expire after expiry.
// A non-positive expiry disables expiry.
func NewMemoryStore(expiry time.Duration, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{slots: make(map[string]entry), expiry: expiry, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Get(slots ...string) (map[string]string, error) {
	if err := validateSlots(slots); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	out := make(map[string]string, len(slots))
	for _, slot := range slots {
		if e, ok := s.slots[slot]; ok && e.live(now) {
			out[slot] = e.Value
		}
	}
	return out, nil
}

func (s *MemoryStore) Set(values map[string]string) error {
	slots := make([]string, 0, len(values))
	for slot := range values {
		slots = append(slots, slot)
	}
	if err := validateSlots(slots); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	expires := expiryFor(s.now(), s.expiry)
	for slot, value := range values {
		s.slots[slot] = entry{Value: value, ExpiresAt: expires}
	}
	return nil
}

func (s *MemoryStore) Clear(slots ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range slots {
		delete(s.slots, slot)
	}
	return nil
}
