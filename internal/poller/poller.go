package poller

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"avatarctl/internal/logging"
	"avatarctl/internal/services"
	"avatarctl/internal/studio"
)

// DefaultInterval is the fixed polling cadence.
const DefaultInterval = 5 * time.Second

const eventBuffer = 16

// Option customises Poller construction.
type Option func(*Poller)

// WithInterval overrides the polling cadence.
func WithInterval(interval time.Duration) Option {
	return func(p *Poller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithTicker overrides the ticker factory (used in tests).
func WithTicker(fn TickerFunc) Option {
	return func(p *Poller) {
		if fn != nil {
			p.newTicker = fn
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		p.logger = logging.NewComponentLogger(logger, "poller")
	}
}

// Poller starts polling sessions against a Fetcher.
type Poller struct {
	fetcher   Fetcher
	interval  time.Duration
	newTicker TickerFunc
	logger    *slog.Logger
}

// New builds a Poller.
func New(fetcher Fetcher, opts ...Option) (*Poller, error) {
	if fetcher == nil {
		return nil, errors.New("poller: fetcher is nil")
	}
	p := &Poller{
		fetcher:   fetcher,
		interval:  DefaultInterval,
		newTicker: NewWallTicker,
		logger:    logging.NewComponentLogger(nil, "poller"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Interval returns the polling cadence.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start begins polling the job described by initial, normally the snapshot
// returned by the creation call. The first fetch happens one interval after
// Start. If initial is already terminal, a single terminal event is emitted
// and no fetch is made.
func (p *Poller) Start(ctx context.Context, initial studio.VideoDetail) (*Session, error) {
	jobID := strings.TrimSpace(initial.ID)
	if jobID == "" {
		return nil, services.Wrap(services.ErrValidation, "poller", "start", "job id is required", nil)
	}
	ctx = services.WithJobID(ctx, jobID)
	sessionCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		jobID:  jobID,
		ctx:    sessionCtx,
		cancel: cancel,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
		last:   initial,
		phase:  phaseFor(initial.Status),
		logger: logging.WithContext(ctx, p.logger),
	}
	go s.run(ctx, p)
	return s, nil
}
