// Package journal persists a local record of video jobs submitted or watched
// from this machine.
//
// The journal lives in a SQLite database under the state directory. Every
// snapshot the poller observes is upserted, so an interrupted watch can be
// resumed with the pending list and completed jobs stay listed offline. The
// same database hosts the session_slots table used by the sqlite token store.
package journal
