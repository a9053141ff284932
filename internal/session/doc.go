// Package session persists the bearer credentials that authenticate API calls.
//
// A TokenStore holds named credential slots (by default "access_token" and
// "refresh_token") with a client-side expiry that is independent of the
// server-side token lifetime. Credentials binds a store to the two slot names
// and gives the gateway atomic pair reads and replacements, so a request never
// attaches a half-updated token pair.
//
// Three backends are provided: MemoryStore for tests and throwaway sessions,
// FileStore for a JSON file guarded by a cross-process lock, and SQLiteStore
// for the local state database.
package session
