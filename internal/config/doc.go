// Package config loads, normalizes, and validates avatarctl configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// AVATARCTL_API_BASE_URL. The Config type centralizes every knob the CLI
// needs: the API endpoint, where session tokens live, how often video status
// is polled, and where logs and downloads go.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
