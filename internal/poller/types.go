package poller

import (
	"context"
	"time"

	"avatarctl/internal/studio"
)

// Phase is the client-side state of a polled job.
type Phase string

const (
	PhaseSubmitting Phase = "SUBMITTING"
	PhaseInProgress Phase = "IN_PROGRESS"
	PhaseCompleted  Phase = "COMPLETED"
	PhaseFailed     Phase = "FAILED"
	PhaseCanceled   Phase = "CANCELED"
	// PhasePollError is entered when a status fetch itself fails.
	PhasePollError Phase = "POLL_ERROR"
)

// Terminal reports whether the phase ends the session.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseCompleted, PhaseFailed, PhaseCanceled, PhasePollError:
		return true
	}
	return false
}

func phaseFor(status studio.Status) Phase {
	if status == "" {
		return PhaseInProgress
	}
	return Phase(status)
}

// EventKind classifies an emitted event.
type EventKind int

const (
	// EventUpdate carries a snapshot whose status did not change.
	EventUpdate EventKind = iota
	// EventTransition carries a snapshot with a new non-terminal status.
	EventTransition
	// EventTerminal carries the final snapshot of a finished job.
	EventTerminal
	// EventPollError reports a failed fetch; Video is the last known snapshot.
	EventPollError
)

func (k EventKind) String() string {
	switch k {
	case EventTransition:
		return "transition"
	case EventTerminal:
		return "terminal"
	case EventPollError:
		return "poll_error"
	default:
		return "update"
	}
}

// Event is one observation delivered to the session owner.
type Event struct {
	Kind  EventKind
	Phase Phase
	// Tick is the 1-based tick that produced the event; 0 for events raised
	// from the initial snapshot.
	Tick  int
	Video studio.VideoDetail
	Err   error
	At    time.Time
}

// Final reports whether no event follows this one.
func (e Event) Final() bool {
	return e.Kind == EventTerminal || e.Kind == EventPollError
}

// Fetcher loads the latest snapshot of a job. *studio.Client satisfies it.
type Fetcher interface {
	GetVideo(ctx context.Context, id string) (studio.VideoDetail, error)
}

// Ticker is the subset of *time.Ticker the poller uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc builds a Ticker firing every interval.
type TickerFunc func(interval time.Duration) Ticker

type wallTicker struct {
	t *time.Ticker
}

func (w wallTicker) C() <-chan time.Time { return w.t.C }

func (w wallTicker) Stop() { w.t.Stop() }

// NewWallTicker wraps time.NewTicker. Its channel holds one pending tick, so
// ticks that fire during a slow fetch are dropped rather than queued.
func NewWallTicker(interval time.Duration) Ticker {
	return wallTicker{t: time.NewTicker(interval)}
}
