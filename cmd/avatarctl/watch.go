package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"avatarctl/internal/gateway"
	"avatarctl/internal/journal"
	"avatarctl/internal/logging"
	"avatarctl/internal/notifications"
	"avatarctl/internal/poller"
	"avatarctl/internal/studio"
)

// errJobNotCompleted marks watches that ended in FAILED or CANCELED.
var errJobNotCompleted = errors.New("video did not complete")

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// follower drains poller sessions into the terminal, the journal and the
// notifier.
type follower struct {
	out      io.Writer
	colorize bool
	quiet    bool
	journal  *journal.Store
	notifier notifications.Service
	logger   *slog.Logger
}

func (c *commandContext) newFollower(cmd *cobra.Command) (*follower, error) {
	store, err := c.journalStore()
	if err != nil {
		return nil, err
	}
	out := cmd.OutOrStdout()
	return &follower{
		out:      &syncWriter{w: out},
		colorize: shouldColorize(out),
		quiet:    c.jsonFlag,
		journal:  store,
		notifier: c.notifications(),
		logger:   c.loggerFor("watch"),
	}, nil
}

// follow consumes s until it ends and returns the last known snapshot.
func (f *follower) follow(ctx context.Context, s *poller.Session) (studio.VideoDetail, error) {
	for ev := range s.Events() {
		if ev.Kind != poller.EventPollError {
			f.record(ctx, ev.Video)
		}
		if !f.quiet {
			fmt.Fprintln(f.out, eventLine(ev, f.colorize))
		}
		if ev.Final() {
			return ev.Video, f.finish(ctx, ev)
		}
	}
	<-s.Done()
	if err := ctx.Err(); err != nil {
		if !f.quiet {
			fmt.Fprintf(f.out, "Stopped watching %s; resume with 'avatarctl videos resume'\n", s.JobID())
		}
		return s.Last(), err
	}
	return s.Last(), fmt.Errorf("polling %s stopped", s.JobID())
}

func (f *follower) finish(ctx context.Context, ev poller.Event) error {
	payload := notifications.Payload{"id": ev.Video.ID, "title": ev.Video.Title}
	var (
		event notifications.Event
		err   error
	)
	switch {
	case ev.Kind == poller.EventPollError:
		event = notifications.EventPollError
		payload["error"] = errorSummary(ev.Err)
		err = fmt.Errorf("poll video %s: %w", ev.Video.ID, ev.Err)
	case ev.Video.Status == studio.StatusCompleted:
		event = notifications.EventVideoCompleted
		payload["url"] = ev.Video.URL()
	case ev.Video.Status == studio.StatusCanceled:
		event = notifications.EventVideoCanceled
		err = fmt.Errorf("%w: %s was canceled", errJobNotCompleted, ev.Video.ID)
	default:
		event = notifications.EventVideoFailed
		payload["error"] = ev.Video.Error()
		err = fmt.Errorf("%w: %s failed: %s", errJobNotCompleted, ev.Video.ID, orDash(ev.Video.Error()))
	}
	if notifyErr := f.notifier.Publish(context.WithoutCancel(ctx), event, payload); notifyErr != nil {
		logging.WarnWithContext(f.logger, "notification failed", "notification_failed",
			logging.Error(notifyErr),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
	return err
}

func (f *follower) record(ctx context.Context, video studio.VideoDetail) {
	if f.journal == nil {
		return
	}
	recordSnapshot(ctx, f.logger, f.journal, video, false)
}

type videoRecorder interface {
	Get(ctx context.Context, id string) (*journal.Entry, error)
	Record(ctx context.Context, video studio.VideoDetail) error
}

// recordVideo journals a snapshot taken outside a watch. With knownOnly set,
// jobs missing from the journal are left out.
func (c *commandContext) recordVideo(ctx context.Context, video studio.VideoDetail, knownOnly bool) {
	logger := c.loggerFor("journal")
	store, err := c.journalStore()
	if err != nil {
		logging.WarnWithContext(logger, "journal unavailable", "journal_open_failed",
			logging.String(logging.FieldJobID, video.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.state_dir is writable"),
		)
		return
	}
	recordSnapshot(ctx, logger, store, video, knownOnly)
}

func recordSnapshot(ctx context.Context, logger *slog.Logger, store videoRecorder, video studio.VideoDetail, knownOnly bool) {
	ctx = context.WithoutCancel(ctx)
	if knownOnly {
		_, err := store.Get(ctx, video.ID)
		if errors.Is(err, journal.ErrNotFound) {
			return
		}
		if err != nil {
			warnJournalWrite(logger, video.ID, err)
			return
		}
	}
	if err := store.Record(ctx, video); err != nil {
		warnJournalWrite(logger, video.ID, err)
	}
}

func warnJournalWrite(logger *slog.Logger, id string, err error) {
	logging.WarnWithContext(logger, "journal update failed", "journal_write_failed",
		logging.String(logging.FieldJobID, id),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the state directory is writable"),
	)
}

// errorSummary prefers the server-supplied message for API errors.
func errorSummary(err error) string {
	var apiErr *gateway.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return err.Error()
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
