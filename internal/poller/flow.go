package poller

import (
	"context"
	"errors"
	"sync"

	"avatarctl/internal/studio"
)

// SubmitFunc performs the creation request and returns the initial snapshot.
type SubmitFunc func(ctx context.Context) (studio.VideoDetail, error)

// Flow owns at most one polling session at a time.
type Flow struct {
	poller *Poller

	mu      sync.Mutex
	current *Session
	phase   Phase
}

// NewFlow builds a Flow over p.
func NewFlow(p *Poller) (*Flow, error) {
	if p == nil {
		return nil, errors.New("poller: flow requires a poller")
	}
	return &Flow{poller: p}, nil
}

// Submit cancels any active session, runs submit while the flow is in the
// SUBMITTING phase, and starts polling the created job.
func (f *Flow) Submit(ctx context.Context, submit SubmitFunc) (*Session, error) {
	f.mu.Lock()
	f.cancelLocked()
	f.phase = PhaseSubmitting
	f.mu.Unlock()

	initial, err := submit(ctx)
	if err != nil {
		f.mu.Lock()
		if f.current == nil {
			f.phase = ""
		}
		f.mu.Unlock()
		return nil, err
	}
	return f.Attach(ctx, initial)
}

// Attach cancels any active session and starts polling initial.
func (f *Flow) Attach(ctx context.Context, initial studio.VideoDetail) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelLocked()
	s, err := f.poller.Start(ctx, initial)
	if err != nil {
		f.phase = ""
		return nil, err
	}
	f.current = s
	f.phase = ""
	return s, nil
}

// Current returns the active or most recent session, or nil.
func (f *Flow) Current() *Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Phase returns SUBMITTING while a creation request is pending, otherwise
// the phase of the current session ("" when there is none).
func (f *Flow) Phase() Phase {
	f.mu.Lock()
	phase, current := f.phase, f.current
	f.mu.Unlock()
	if phase != "" || current == nil {
		return phase
	}
	return current.Phase()
}

// Cancel stops the current session, if any.
func (f *Flow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelLocked()
}

func (f *Flow) cancelLocked() {
	if f.current != nil {
		f.current.Cancel()
		f.current = nil
	}
}
