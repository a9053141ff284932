package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"avatarctl/internal/gateway"
	"avatarctl/internal/poller"
	"avatarctl/internal/services"
	"avatarctl/internal/studio"
)

func TestRenderStatusLine(t *testing.T) {
	got := renderStatusLine("Studio API", statusOK, "reachable", false)
	want := "  Studio API:          [OK] reachable"
	if got != want {
		t.Fatalf("renderStatusLine = %q, want %q", got, want)
	}

	colored := renderStatusLine("Session", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red status line, got %q", colored)
	}
	if !strings.Contains(colored, "[ERROR]") {
		t.Fatalf("expected bare status label, got %q", colored)
	}
}

func TestTruncateLabel(t *testing.T) {
	long := "An extremely long video title"
	got := truncateLabel(long)
	if len([]rune(got)) != statusLabelWidth-1 || !strings.HasSuffix(got, "…") {
		t.Fatalf("unexpected truncation %q", got)
	}
	if truncateLabel("Short") != "Short" {
		t.Fatal("short labels should be kept")
	}
}

func TestHumanize(t *testing.T) {
	cases := map[string]string{
		"IN_PROGRESS": "In Progress",
		"admin":       "Admin",
		"COMPLETED":   "Completed",
		"":            "-",
	}
	for in, want := range cases {
		if got := humanize(in); got != want {
			t.Errorf("humanize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEventLine(t *testing.T) {
	duration := 125.7
	done := poller.Event{
		Kind:  poller.EventTerminal,
		Phase: poller.PhaseCompleted,
		Video: studio.VideoDetail{ID: "v1", Title: "Demo", Status: studio.StatusCompleted, S3URL: strPtr("https://cdn/x.mp4"), DurationSeconds: &duration},
	}
	if got := eventLine(done, false); !strings.Contains(got, "[OK] Completed (2:05) https://cdn/x.mp4") {
		t.Fatalf("unexpected completed line %q", got)
	}

	progress := poller.Event{Kind: poller.EventUpdate, Phase: poller.PhaseInProgress, Tick: 3, Video: studio.VideoDetail{ID: "v1", Status: studio.StatusInProgress}}
	got := eventLine(progress, false)
	if !strings.Contains(got, "v1:") || !strings.Contains(got, "[INFO] In Progress (check 3)") {
		t.Fatalf("unexpected progress line %q", got)
	}

	pollErr := poller.Event{Kind: poller.EventPollError, Phase: poller.PhasePollError, Err: errors.New("boom"), Video: studio.VideoDetail{ID: "v1", Title: "Demo"}}
	if got := eventLine(pollErr, false); !strings.Contains(got, "[ERROR] Polling stopped: boom") {
		t.Fatalf("unexpected poll error line %q", got)
	}
}

func TestTokenExpiry(t *testing.T) {
	token := issueToken(t, 30*time.Minute)
	exp, ok := tokenExpiry(token)
	if !ok {
		t.Fatal("expected expiry")
	}
	if d := time.Until(exp); d < 29*time.Minute || d > 31*time.Minute {
		t.Fatalf("unexpected expiry %v", exp)
	}
	if _, ok := tokenExpiry("not-a-jwt"); ok {
		t.Fatal("expected malformed token to have no expiry")
	}
}

func TestVideoFileName(t *testing.T) {
	cases := []struct {
		video studio.VideoDetail
		want  string
	}{
		{studio.VideoDetail{ID: "v1", Title: "Hello, World!", S3URL: strPtr("https://cdn/a/b.MOV?sig=1")}, "hello-world-v1.mov"},
		{studio.VideoDetail{ID: "v2", Title: "  ", S3URL: strPtr("https://cdn/a/b")}, "v2.mp4"},
		{studio.VideoDetail{ID: "v3", Title: "Café update"}, "café-update-v3.mp4"},
	}
	for _, tc := range cases {
		if got := videoFileName(tc.video); got != tc.want {
			t.Errorf("videoFileName(%q) = %q, want %q", tc.video.Title, got, tc.want)
		}
	}
}

func TestUserRowShowsUnlimited(t *testing.T) {
	row := userRow(studio.User{ID: "u1", Email: "a@b", Role: studio.RoleUser, IsActive: true})
	if row[5] != "unlimited" {
		t.Fatalf("expected unlimited limit, got %q", row[5])
	}
	if row[4] != "N/A" || row[6] != "0%" {
		t.Fatalf("unexpected usage columns %v", row)
	}

	usage, limit := 1800, 3600
	row = userRow(studio.User{ID: "u2", MonthlyUsage: &usage, MonthlyLimit: &limit})
	if row[5] != "60" || row[6] != "50%" {
		t.Fatalf("unexpected quota columns %v", row)
	}
}

func TestFormatErrorAndExitCode(t *testing.T) {
	authErr := fmt.Errorf("%w: not logged in", gateway.ErrUnauthenticated)
	if got := formatError(authErr); !strings.Contains(got, "run 'avatarctl login'") {
		t.Fatalf("expected login hint, got %q", got)
	}
	if exitCode(authErr) != exitFailure {
		t.Fatal("auth errors are not usage errors")
	}

	usage := services.Wrap(services.ErrValidation, "videos", "create", "title required", nil)
	if got := formatError(usage); strings.Contains(got, "login") {
		t.Fatalf("unexpected login hint in %q", got)
	}
	if exitCode(usage) != exitUsage {
		t.Fatal("validation errors should exit with the usage code")
	}
	if exitCode(services.Wrap(services.ErrConfiguration, "config", "load", "", errors.New("bad"))) != exitUsage {
		t.Fatal("configuration errors should exit with the usage code")
	}
}

func TestErrorSummary(t *testing.T) {
	apiErr := &gateway.Error{Kind: gateway.KindNotFound, Status: 404, Method: "GET", Path: "/videos/x", Detail: "Video not found"}
	if got := errorSummary(fmt.Errorf("poll: %w", apiErr)); got != "Video not found" {
		t.Fatalf("errorSummary = %q", got)
	}
	if got := errorSummary(errors.New("dial tcp: refused")); got != "dial tcp: refused" {
		t.Fatalf("errorSummary = %q", got)
	}
}
