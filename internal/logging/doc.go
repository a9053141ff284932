// Package logging assembles structured slog loggers and formatting helpers used
// across avatarctl.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so API and polling code can tag log lines
// with job IDs, command names, and correlation IDs. The package also provides
// a no-op logger for tests and wiring code that cannot fail.
package logging
