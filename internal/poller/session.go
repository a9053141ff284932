package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"avatarctl/internal/logging"
	"avatarctl/internal/studio"
)

// Session is one live polling activity bound to a single job.
type Session struct {
	jobID  string
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	events chan Event
	done   chan struct{}

	// sendMu is held across a channel send so Cancel can wait it out.
	sendMu sync.Mutex

	// mu guards the fields below. It is never held while sending.
	mu      sync.Mutex
	last    studio.VideoDetail
	phase   Phase
	final   *Event
	fetches int
}

// JobID returns the polled job identifier.
func (s *Session) JobID() string {
	return s.jobID
}

// Events delivers events in tick order. The channel is closed after the
// final event, or after cancellation.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Done is closed once the polling goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Cancel stops the session. No event is delivered after Cancel returns, even
// if a fetch is still in flight; events still buffered are discarded.
// Cancel is idempotent.
func (s *Session) Cancel() {
	s.cancel()

	s.sendMu.Lock()
	for drained := false; !drained; {
		select {
		case _, ok := <-s.events:
			drained = !ok
		default:
			drained = true
		}
	}
	s.sendMu.Unlock()

	s.mu.Lock()
	if !s.phase.Terminal() && s.final == nil {
		s.logger.Debug("polling canceled", logging.Int("fetches", s.fetches))
	}
	s.mu.Unlock()
}

// Last returns the last known snapshot. A poll error does not replace it.
func (s *Session) Last() studio.VideoDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Phase returns the current client-side phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Fetches returns how many status fetches have been issued.
func (s *Session) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

// Result returns the final event once the session has ended on its own.
// ok is false while polling is active or when the session was canceled.
func (s *Session) Result() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.final == nil {
		return Event{}, false
	}
	return *s.final, true
}

func (s *Session) run(parent context.Context, p *Poller) {
	defer close(s.done)
	defer close(s.events)
	defer s.cancel()

	if s.last.Status.Terminal() {
		s.emit(Event{Kind: EventTerminal, Phase: Phase(s.last.Status), Video: s.last, At: time.Now()})
		return
	}

	ticker := p.newTicker(p.interval)
	defer ticker.Stop()

	s.logger.Debug("polling started", logging.Duration("interval", p.interval))
	for tick := 1; ; tick++ {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C():
		}

		s.mu.Lock()
		s.fetches++
		s.mu.Unlock()

		// The fetch runs on the parent context: Cancel does not abort it,
		// its result is discarded by emit instead.
		video, err := p.fetcher.GetVideo(parent, s.jobID)
		ev := s.evaluate(tick, video, err)
		if !s.emit(ev) || ev.Final() {
			return
		}
	}
}

// evaluate applies the transition rule to one fetch result.
func (s *Session) evaluate(tick int, video studio.VideoDetail, err error) Event {
	now := time.Now()
	if err != nil {
		return Event{Kind: EventPollError, Phase: PhasePollError, Tick: tick, Video: s.Last(), Err: err, At: now}
	}
	previous := s.Last().Status
	switch {
	case video.Status.Terminal():
		return Event{Kind: EventTerminal, Phase: Phase(video.Status), Tick: tick, Video: video, At: now}
	case video.Status == previous:
		return Event{Kind: EventUpdate, Phase: phaseFor(video.Status), Tick: tick, Video: video, At: now}
	default:
		return Event{Kind: EventTransition, Phase: phaseFor(video.Status), Tick: tick, Video: video, At: now}
	}
}

// emit applies ev to the session state and delivers it, unless the session
// was canceled first. It reports whether the event was delivered.
func (s *Session) emit(ev Event) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return false
	}
	prevPhase, prevLast, prevFinal := s.phase, s.last, s.final
	s.phase = ev.Phase
	if ev.Kind != EventPollError {
		s.last = ev.Video
	}
	if ev.Final() {
		final := ev
		s.final = &final
	}
	s.mu.Unlock()

	select {
	case s.events <- ev:
	case <-s.ctx.Done():
		s.mu.Lock()
		s.phase, s.last, s.final = prevPhase, prevLast, prevFinal
		s.mu.Unlock()
		return false
	}
	s.log(ev)
	return true
}

func (s *Session) log(ev Event) {
	switch ev.Kind {
	case EventTerminal:
		attrs := []logging.Attr{
			logging.String("status", string(ev.Video.Status)),
			logging.Int("tick", ev.Tick),
		}
		if msg := ev.Video.Error(); msg != "" {
			attrs = append(attrs, logging.String("error_message", msg))
		}
		s.logger.Info("video job finished", logging.Args(attrs...)...)
	case EventPollError:
		logging.ErrorWithContext(s.logger, "video status fetch failed", "poll_error",
			logging.Int("tick", ev.Tick),
			logging.Error(ev.Err),
			logging.String(logging.FieldErrorHint, "re-attach with 'avatarctl videos watch'"),
		)
	case EventTransition:
		s.logger.Info("video job status changed", logging.String("status", string(ev.Video.Status)), logging.Int("tick", ev.Tick))
	default:
		s.logger.Debug("video job unchanged", logging.String("status", string(ev.Video.Status)), logging.Int("tick", ev.Tick))
	}
}
