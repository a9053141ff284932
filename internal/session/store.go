package session

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultExpiry is the client-side lifetime of a stored credential.
const DefaultExpiry = 7 * 24 * time.Hour

// ErrInvalidSlot is returned when a slot name is blank.
var ErrInvalidSlot = errors.New("session slot name is empty")

// TokenStore persists named credential slots. Every call is atomic with
// respect to the others; missing and expired slots are omitted from Get.
type TokenStore interface {
	Get(slots ...string) (map[string]string, error)
	Set(values map[string]string) error
	Clear(slots ...string) error
}

// Pair is a snapshot of the current access and refresh tokens. Either field
// may be empty.
type Pair struct {
	Access  string
	Refresh string
}

// Credentials binds a TokenStore to the access and refresh slot names.
type Credentials struct {
	store       TokenStore
	accessSlot  string
	refreshSlot string
}

// NewCredentials builds Credentials over store using the given slot names.
func NewCredentials(store TokenStore, accessSlot, refreshSlot string) (*Credentials, error) {
	if store == nil {
		return nil, errors.New("session: token store is nil")
	}
	accessSlot = strings.TrimSpace(accessSlot)
	refreshSlot = strings.TrimSpace(refreshSlot)
	if accessSlot == "" || refreshSlot == "" {
		return nil, ErrInvalidSlot
	}
	if accessSlot == refreshSlot {
		return nil, fmt.Errorf("session: access and refresh slots must differ (%q)", accessSlot)
	}
	return &Credentials{store: store, accessSlot: accessSlot, refreshSlot: refreshSlot}, nil
}

// Pair reads both tokens in one store call.
func (c *Credentials) Pair() (Pair, error) {
	values, err := c.store.Get(c.accessSlot, c.refreshSlot)
	if err != nil {
		return Pair{}, fmt.Errorf("read session: %w", err)
	}
	return Pair{Access: values[c.accessSlot], Refresh: values[c.refreshSlot]}, nil
}

// Access returns the current access token or "" when none is stored.
func (c *Credentials) Access() (string, error) {
	pair, err := c.Pair()
	return pair.Access, err
}

// Replace stores a new access token and, when refresh is non-empty, a new
// refresh token in a single write. An empty refresh keeps the stored one.
func (c *Credentials) Replace(access, refresh string) error {
	if strings.TrimSpace(access) == "" {
		return errors.New("session: access token is empty")
	}
	values := map[string]string{c.accessSlot: access}
	if refresh != "" {
		values[c.refreshSlot] = refresh
	}
	if err := c.store.Set(values); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Set stores a complete pair in a single write. An empty refresh blanks the
// refresh slot, which then reads as absent.
func (c *Credentials) Set(access, refresh string) error {
	if strings.TrimSpace(access) == "" {
		return errors.New("session: access token is empty")
	}
	if err := c.store.Set(map[string]string{c.accessSlot: access, c.refreshSlot: refresh}); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear drops both tokens.
func (c *Credentials) Clear() error {
	if err := c.store.Clear(c.accessSlot, c.refreshSlot); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Authenticated reports whether an unexpired access token is stored.
func (c *Credentials) Authenticated() bool {
	access, err := c.Access()
	return err == nil && access != ""
}

type entry struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (e entry) live(now time.Time) bool {
	return e.Value != "" && (e.ExpiresAt.IsZero() || now.Before(e.ExpiresAt))
}

func validateSlots(slots []string) error {
	for _, slot := range slots {
		if strings.TrimSpace(slot) == "" {
			return ErrInvalidSlot
		}
	}
	return nil
}

func expiryFor(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}
