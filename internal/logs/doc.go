// Package logs reads back the JSON log file written when logging.to_file is
// enabled.
//
// It returns the last N records with bounded memory, optionally filtered to a
// single video job, and follows the file for new records until the caller's
// context ends. Lines that are not JSON records are passed through as-is so a
// hand-edited or truncated file still prints.
package logs
