// Package services defines shared utilities consumed by the API client, the
// poller, and the CLI commands.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, command names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that separate bad input
//     from remote failures so the CLI can pick an exit code.
package services
