package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"avatarctl/internal/gateway"
	"avatarctl/internal/studio"
	"avatarctl/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckAPI(t *testing.T) {
	tests := []struct {
		name   string
		status int
		passed bool
	}{
		{"ok", http.StatusOK, true},
		{"auth required still reachable", http.StatusUnauthorized, true},
		{"server error", http.StatusBadGateway, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/users/me" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			result := CheckAPI(context.Background(), srv.Client(), srv.URL+"/")
			if result.Passed != tc.passed {
				t.Fatalf("expected passed=%v, got %+v", tc.passed, result)
			}
		})
	}
}

func TestCheckAPI_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	result := CheckAPI(context.Background(), nil, url)
	if result.Passed || !strings.Contains(result.Detail, "unreachable") {
		t.Fatalf("expected unreachable failure, got %+v", result)
	}
	if missing := CheckAPI(context.Background(), nil, " "); missing.Passed {
		t.Fatal("expected failure for missing base url")
	}
}

type fakeProber struct {
	authenticated bool
	user          studio.User
	err           error
}

func (f fakeProber) IsAuthenticated() bool { return f.authenticated }

func (f fakeProber) Me(context.Context) (studio.User, error) { return f.user, f.err }

func TestCheckSession(t *testing.T) {
	if r := CheckSession(context.Background(), fakeProber{}); r.Passed || !strings.Contains(r.Detail, "login") {
		t.Fatalf("expected login hint, got %+v", r)
	}

	expired := fakeProber{authenticated: true, err: &gateway.Error{Kind: gateway.KindUnauthenticated}}
	if r := CheckSession(context.Background(), expired); r.Passed || !strings.Contains(r.Detail, "expired") {
		t.Fatalf("expected expired session, got %+v", r)
	}

	broken := fakeProber{authenticated: true, err: errors.New("boom")}
	if r := CheckSession(context.Background(), broken); r.Passed {
		t.Fatalf("expected failure, got %+v", r)
	}

	ok := fakeProber{authenticated: true, user: studio.User{Email: "ada@example.com", Role: studio.RoleAdmin}}
	r := CheckSession(context.Background(), ok)
	if !r.Passed || r.Detail != "logged in as ada@example.com (admin)" {
		t.Fatalf("unexpected result %+v", r)
	}
}

func TestRunAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL(srv.URL))
	if err := os.MkdirAll(cfg.Paths.StateDir, 0o755); err != nil {
		t.Fatalf("mkdir state: %v", err)
	}

	results := RunAll(context.Background(), cfg, Deps{Client: srv.Client(), Session: fakeProber{}})
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	names := []string{"State directory", "Download directory", "Studio API", "Session"}
	for i, name := range names {
		if results[i].Name != name {
			t.Fatalf("result %d: expected %s, got %s", i, name, results[i].Name)
		}
	}
	if !results[1].Passed {
		t.Fatalf("missing download dir should pass, got %+v", results[1])
	}
	if !Failed(results) {
		t.Fatal("expected signed-out session to fail the run")
	}
	if RunAll(context.Background(), nil, Deps{}) != nil {
		t.Fatal("expected nil results for nil config")
	}
}
