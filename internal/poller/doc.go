// Package poller drives the client-side state machine of a video job.
//
// A Session fetches the job snapshot on a fixed wall-clock cadence and emits
// ordered events until the job reaches COMPLETED, FAILED, or CANCELED, or
// until a fetch fails (POLL_ERROR). Fetches never overlap: a tick that fires
// while a fetch is in flight is dropped. Cancel stops the session at once and
// discards the result of any fetch still in flight, so no event is delivered
// after Cancel returns.
//
// Flow owns at most one Session per creation flow and cancels the previous
// one whenever a new job is submitted or attached.
package poller
