package gateway_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"avatarctl/internal/gateway"
	"avatarctl/internal/session"
)

type apiStub struct {
	mu             sync.Mutex
	refreshCalls   atomic.Int32
	dataCalls      atomic.Int32
	authHeaders    []string
	bodies         []string
	validAccess    string
	refreshStatus  int
	refreshAccess  string
	refreshRotated string
	refreshDelay   time.Duration
}

func (s *apiStub) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		s.refreshCalls.Add(1)
		if r.Header.Get("Authorization") != "" {
			t.Errorf("refresh call must not carry a bearer token")
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode refresh payload: %v", err)
		}
		if payload["refresh_token"] == "" {
			t.Errorf("refresh payload missing refresh_token")
		}
		if s.refreshDelay > 0 {
			time.Sleep(s.refreshDelay)
		}
		if s.refreshStatus != 0 && s.refreshStatus != http.StatusOK {
			w.WriteHeader(s.refreshStatus)
			_, _ = w.Write([]byte(`{"detail":"Invalid refresh token","timestamp":"2024-01-01T00:00:00Z"}`))
			return
		}
		resp := map[string]any{"access_token": s.refreshAccess, "token_type": "bearer"}
		if s.refreshRotated != "" {
			resp["refresh_token"] = s.refreshRotated
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		s.dataCalls.Add(1)
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.authHeaders = append(s.authHeaders, r.Header.Get("Authorization"))
		s.bodies = append(s.bodies, string(body))
		s.mu.Unlock()
		if r.Header.Get("X-Request-ID") == "" {
			t.Errorf("expected X-Request-ID header")
		}
		if s.validAccess != "" && r.Header.Get("Authorization") != "Bearer "+s.validAccess {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Token expired"}`))
			return
		}
		_, _ = w.Write([]byte(`{"videos":[]}`))
	})
	return mux
}

type harness struct {
	gw      *gateway.Gateway
	creds   *session.Credentials
	stub    *apiStub
	ended   atomic.Int32
	endedBy error
	logs    bytes.Buffer
}

func newHarness(t *testing.T, stub *apiStub, pair session.Pair) *harness {
	t.Helper()
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)

	creds, err := session.NewCredentials(session.NewMemoryStore(session.DefaultExpiry), "access_token", "refresh_token")
	if err != nil {
		t.Fatalf("NewCredentials: %v", err)
	}
	if pair.Access != "" {
		if err := creds.Replace(pair.Access, pair.Refresh); err != nil {
			t.Fatalf("seed tokens: %v", err)
		}
	}
	h := &harness{creds: creds, stub: stub}
	gw, err := gateway.New(srv.URL, creds,
		gateway.WithHTTPClient(srv.Client()),
		gateway.WithLogger(slog.New(slog.NewJSONHandler(&h.logs, nil))),
		gateway.WithSessionEnded(func(_ context.Context, cause error) {
			h.ended.Add(1)
			h.endedBy = cause
		}),
	)
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	h.gw = gw
	return h
}

func TestRequestWithoutTokenIsSentUnauthenticated(t *testing.T) {
	stub := &apiStub{}
	h := newHarness(t, stub, session.Pair{})

	if _, err := h.gw.Do(context.Background(), gateway.Request{Method: http.MethodGet, Path: "/videos"}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(stub.authHeaders) != 1 || stub.authHeaders[0] != "" {
		t.Fatalf("expected one request without Authorization, got %q", stub.authHeaders)
	}
}

func TestRequestAttachesBearerToken(t *testing.T) {
	stub := &apiStub{validAccess: "acc-1"}
	h := newHarness(t, stub, session.Pair{Access: "acc-1", Refresh: "ref-1"})

	if _, err := h.gw.Do(context.Background(), gateway.Request{Path: "/videos"}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if stub.authHeaders[0] != "Bearer acc-1" {
		t.Fatalf("unexpected Authorization %q", stub.authHeaders[0])
	}
	if stub.refreshCalls.Load() != 0 {
		t.Fatal("expected no refresh")
	}
}

func TestUnauthorizedRefreshesOnceAndRetriesWithNewToken(t *testing.T) {
	stub := &apiStub{validAccess: "acc-2", refreshAccess: "acc-2", refreshRotated: "ref-2"}
	h := newHarness(t, stub, session.Pair{Access: "acc-1", Refresh: "ref-1"})

	var out struct {
		Videos []any `json:"videos"`
	}
	err := h.gw.JSON(context.Background(), gateway.Request{
		Method: http.MethodPost,
		Path:   "/videos",
		Body:   map[string]string{"title": "Demo"},
	}, &out)
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if got := stub.refreshCalls.Load(); got != 1 {
		t.Fatalf("expected exactly one refresh, got %d", got)
	}
	if got := stub.dataCalls.Load(); got != 2 {
		t.Fatalf("expected original plus one retry, got %d", got)
	}
	if stub.authHeaders[1] != "Bearer acc-2" {
		t.Fatalf("retry must carry the new token, got %q", stub.authHeaders[1])
	}
	if stub.bodies[0] != stub.bodies[1] || !strings.Contains(stub.bodies[1], `"title":"Demo"`) {
		t.Fatalf("retry must replay the body, got %q", stub.bodies)
	}
	pair, _ := h.creds.Pair()
	if pair.Access != "acc-2" || pair.Refresh != "ref-2" {
		t.Fatalf("expected rotated pair to be stored, got %+v", pair)
	}
	if h.ended.Load() != 0 {
		t.Fatal("session must not end on successful refresh")
	}
}

func TestRefreshWithoutRotationKeepsRefreshToken(t *testing.T) {
	stub := &apiStub{validAccess: "acc-2", refreshAccess: "acc-2"}
	h := newHarness(t, stub, session.Pair{Access: "acc-1", Refresh: "ref-1"})

	if _, err := h.gw.Do(context.Background(), gateway.Request{Path: "/videos"}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	pair, _ := h.creds.Pair()
	if pair.Access != "acc-2" || pair.Refresh != "ref-1" {
		t.Fatalf("unexpected pair %+v", pair)
	}
}

func TestUnauthorizedWithoutRefreshTokenFailsWithoutRefreshCall(t *testing.T) {
	stub := &apiStub{validAccess: "other"}
	h := newHarness(t, stub, session.Pair{Access: "acc-1"})

	_, err := h.gw.Do(context.Background(), gateway.Request{Path: "/videos"})
	if !errors.Is(err, gateway.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if stub.refreshCalls.Load() != 0 {
		t.Fatal("refresh endpoint must not be called without a refresh token")
	}
	if h.ended.Load() != 1 {
		t.Fatalf("expected one session-ended signal, got %d", h.ended.Load())
	}
	if h.creds.Authenticated() {
		t.Fatal("expected tokens to be cleared")
	}
}

func TestRefreshFailureClearsTokensAndSignalsOnce(t *testing.T) {
	stub := &apiStub{validAccess: "acc-2", refreshStatus: http.StatusUnauthorized}
	h := newHarness(t, stub, session.Pair{Access: "acc-1", Refresh: "ref-1"})

	_, err := h.gw.Do(context.Background(), gateway.Request{Path: "/videos"})
	if !errors.Is(err, gateway.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	var apiErr *gateway.Error
	if !errors.As(err, &apiErr) || apiErr.Path != "/auth/refresh" || apiErr.Detail != "Invalid refresh token" {
		t.Fatalf("expected the refresh error to be returned, got %#v", err)
	}
	pair, _ := h.creds.Pair()
	if pair.Access != "" || pair.Refresh != "" {
		t.Fatalf("expected both tokens cleared, got %+v", pair)
	}
	if h.ended.Load() != 1 {
		t.Fatalf("expected exactly one session-ended signal, got %d", h.ended.Load())
	}
	if !errors.Is(h.endedBy, gateway.ErrUnauthenticated) {
		t.Fatalf("unexpected session-ended cause %v", h.endedBy)
	}
	logs := h.logs.String()
	if !strings.Contains(logs, `"level":"ERROR","msg":"session ended"`) || !strings.Contains(logs, `"event_type":"session_ended"`) {
		t.Fatalf("expected an error-level session_ended line, got:\n%s", logs)
	}
	if stub.dataCalls.Load() != 1 {
		t.Fatalf("original request must not be retried, got %d calls", stub.dataCalls.Load())
	}
}

func TestRetryIsNeverRepeated(t *testing.T) {
	// The refreshed token is still rejected: the second 401 is final.
	stub := &apiStub{validAccess: "never", refreshAccess: "acc-2"}
	h := newHarness(t, stub, session.Pair{Access: "acc-1", Refresh: "ref-1"})

	_, err := h.gw.Do(context.Background(), gateway.Request{Path: "/videos"})
	if !errors.Is(err, gateway.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if stub.refreshCalls.Load() != 1 || stub.dataCalls.Load() != 2 {
		t.Fatalf("expected 1 refresh and 2 calls, got %d and %d", stub.refreshCalls.Load(), stub.dataCalls.Load())
	}
	if h.ended.Load() != 0 {
		t.Fatal("a rejected retry does not end the session")
	}
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	stub := &apiStub{validAccess: "acc-2", refreshAccess: "acc-2", refreshDelay: 50 * time.Millisecond}
	h := newHarness(t, stub, session.Pair{Access: "acc-1", Refresh: "ref-1"})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.gw.Do(context.Background(), gateway.Request{Path: "/videos"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Do: %v", err)
		}
	}
	if got := stub.refreshCalls.Load(); got != 1 {
		t.Fatalf("expected a single shared refresh, got %d", got)
	}
}

func TestErrorsPassThroughWithoutRetry(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
		detail string
	}{
		{"forbidden", http.StatusForbidden, `{"detail":"Admin only"}`, gateway.ErrUnauthorized, "Admin only"},
		{"not found", http.StatusNotFound, `{"detail":"Video not found"}`, gateway.ErrNotFound, "Video not found"},
		{"validation", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","title"],"msg":"field required"}]}`, gateway.ErrValidation, "body.title: field required"},
		{"server", http.StatusBadGateway, `upstream down`, gateway.ErrServer, "upstream down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			creds, _ := session.NewCredentials(session.NewMemoryStore(0), "a", "r")
			_ = creds.Replace("acc", "ref")
			gw, err := gateway.New(srv.URL, creds)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			_, err = gw.Do(context.Background(), gateway.Request{Method: http.MethodDelete, Path: "/users/1"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var apiErr *gateway.Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *gateway.Error, got %T", err)
			}
			if apiErr.Status != tt.status || apiErr.Detail != tt.detail {
				t.Fatalf("unexpected error %#v", apiErr)
			}
			if calls.Load() != 1 {
				t.Fatalf("expected no retry, got %d calls", calls.Load())
			}
		})
	}
}

func TestTransportErrorIsTyped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	creds, _ := session.NewCredentials(session.NewMemoryStore(0), "a", "r")
	gw, err := gateway.New(url, creds, gateway.WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = gw.Do(context.Background(), gateway.Request{Path: "/videos"})
	if !errors.Is(err, gateway.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if gateway.KindOf(err) != gateway.KindTransport {
		t.Fatalf("unexpected kind %v", gateway.KindOf(err))
	}
}

func TestAnonymousRequestSkipsCredentialsAndRefresh(t *testing.T) {
	stub := &apiStub{validAccess: "acc-2", refreshAccess: "acc-2"}
	h := newHarness(t, stub, session.Pair{Access: "acc-1", Refresh: "ref-1"})

	_, err := h.gw.Do(context.Background(), gateway.Request{Path: "/videos", Anonymous: true})
	if !errors.Is(err, gateway.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if stub.authHeaders[0] != "" {
		t.Fatalf("anonymous request carried %q", stub.authHeaders[0])
	}
	if stub.refreshCalls.Load() != 0 {
		t.Fatal("anonymous request must not refresh")
	}
}
