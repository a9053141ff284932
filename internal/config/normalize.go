package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeAPI()
	c.normalizeSession()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.BaseURL = strings.TrimSpace(c.API.BaseURL)
	if c.API.BaseURL == "" {
		if value, ok := os.LookupEnv("AVATARCTL_API_BASE_URL"); ok {
			c.API.BaseURL = strings.TrimSpace(value)
		}
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.RequestTimeoutSeconds <= 0 {
		c.API.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
}

func (c *Config) normalizeSession() {
	c.Session.Store = strings.ToLower(strings.TrimSpace(c.Session.Store))
	if c.Session.Store == "" {
		c.Session.Store = defaultSessionStore
	}
	c.Session.AccessSlot = strings.TrimSpace(c.Session.AccessSlot)
	if value, ok := os.LookupEnv("AVATARCTL_ACCESS_SLOT"); ok && strings.TrimSpace(value) != "" {
		c.Session.AccessSlot = strings.TrimSpace(value)
	}
	if c.Session.AccessSlot == "" {
		c.Session.AccessSlot = defaultAccessSlot
	}
	c.Session.RefreshSlot = strings.TrimSpace(c.Session.RefreshSlot)
	if value, ok := os.LookupEnv("AVATARCTL_REFRESH_SLOT"); ok && strings.TrimSpace(value) != "" {
		c.Session.RefreshSlot = strings.TrimSpace(value)
	}
	if c.Session.RefreshSlot == "" {
		c.Session.RefreshSlot = defaultRefreshSlot
	}
	if c.Session.ExpiryDays == 0 {
		c.Session.ExpiryDays = defaultSessionExpiryDays
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
