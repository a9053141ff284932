package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"avatarctl/internal/config"
)

const userAgent = "avatarctl/0.1.0"

// pollErrorInterval bounds how often poll error alerts are sent.
const pollErrorInterval = time.Minute

// Event identifies a notification type.
type Event string

const (
	EventVideoCompleted Event = "video_completed"
	EventVideoFailed    Event = "video_failed"
	EventVideoCanceled  Event = "video_canceled"
	EventPollError      Event = "poll_error"
	EventSessionEnded   Event = "session_ended"
	EventTest           Event = "test"
)

// Payload carries event fields. Known keys: "title", "id", "url", "error",
// "reason".
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventVideoCompleted: cfg.Notifications.VideoCompleted,
			EventVideoFailed:    cfg.Notifications.VideoFailed,
			EventVideoCanceled:  cfg.Notifications.VideoFailed,
			EventPollError:      cfg.Notifications.PollErrors,
			EventSessionEnded:   cfg.Notifications.SessionEnded,
			EventTest:           true,
		},
		pollErrors: rate.NewLimiter(rate.Every(pollErrorInterval), 1),
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	enabled    map[Event]bool
	pollErrors *rate.Limiter
}

func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	if event == EventPollError && !n.pollErrors.Allow() {
		return nil
	}
	msg, ok := format(event, data)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, data Payload) (payload, bool) {
	title := strings.TrimSpace(valueString(data, "title"))
	if title == "" {
		title = valueString(data, "id")
	}
	switch event {
	case EventVideoCompleted:
		message := fmt.Sprintf("✅ Video ready: %s", title)
		if url := strings.TrimSpace(valueString(data, "url")); url != "" {
			message = fmt.Sprintf("%s\n%s", message, url)
		}
		return payload{
			title:    "avatarctl - Video Ready",
			message:  message,
			tags:     []string{"avatarctl", "video", "completed"},
			priority: "high",
		}, true
	case EventVideoFailed:
		reason := strings.TrimSpace(valueString(data, "error"))
		if reason == "" {
			reason = "unknown error"
		}
		return payload{
			title:    "avatarctl - Video Failed",
			message:  fmt.Sprintf("❌ Video failed: %s: %s", title, reason),
			tags:     []string{"avatarctl", "video", "failed"},
			priority: "high",
		}, true
	case EventVideoCanceled:
		return payload{
			title:   "avatarctl - Video Canceled",
			message: fmt.Sprintf("Video canceled: %s", title),
			tags:    []string{"avatarctl", "video", "canceled"},
		}, true
	case EventPollError:
		return payload{
			title:   "avatarctl - Polling Stopped",
			message: fmt.Sprintf("⚠️ Lost track of %s: %s", title, strings.TrimSpace(valueString(data, "error"))),
			tags:    []string{"avatarctl", "poll", "error"},
		}, true
	case EventSessionEnded:
		message := "🔒 Session ended, log in again"
		if reason := strings.TrimSpace(valueString(data, "reason")); reason != "" {
			message = fmt.Sprintf("%s (%s)", message, reason)
		}
		return payload{
			title:    "avatarctl - Signed Out",
			message:  message,
			tags:     []string{"avatarctl", "session", "ended"},
			priority: "high",
		}, true
	case EventTest:
		return payload{
			title:    "avatarctl - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"avatarctl", "test"},
			priority: "low",
		}, true
	}
	return payload{}, false
}

func valueString(data Payload, key string) string {
	if data == nil {
		return ""
	}
	switch v := data[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
