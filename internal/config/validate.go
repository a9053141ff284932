package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"api.request_timeout_seconds":   c.API.RequestTimeoutSeconds,
		"poll.interval_seconds":         c.Poll.IntervalSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("api.base_url is required. Set AVATARCTL_API_BASE_URL env var or edit %s (create with 'avatarctl config init')", defaultPath)
	}
	parsed, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("api.base_url must use http or https, got %q", c.API.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("api.base_url must include a host, got %q", c.API.BaseURL)
	}
	return nil
}

func (c *Config) validateSession() error {
	switch c.Session.Store {
	case SessionStoreFile, SessionStoreSQLite, SessionStoreMemory:
	default:
		return fmt.Errorf("session.store must be one of file, sqlite, memory (got %q)", c.Session.Store)
	}
	if c.Session.ExpiryDays < 0 {
		return errors.New("session.expiry_days must be positive")
	}
	if strings.EqualFold(c.Session.AccessSlot, c.Session.RefreshSlot) {
		return errors.New("session.access_slot and session.refresh_slot must differ")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
