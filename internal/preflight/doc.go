// Package preflight runs the environment checks behind `avatarctl doctor`.
//
// Each check returns a Result with a pass flag and a one-line detail so the
// CLI can render a uniform table: state and download directory access, API
// reachability, and whether the stored session is still accepted.
package preflight
