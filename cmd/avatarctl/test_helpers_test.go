package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"avatarctl/internal/studio"
)

// fakeStudio is an in-memory stand-in for the studio REST API plus an ntfy
// topic.
type fakeStudio struct {
	t *testing.T

	mu           sync.Mutex
	access       string
	refresh      string
	refreshOK    bool
	refreshCalls int
	videos       map[string]*fakeVideo
	videoOrder   []string
	videoPosts   int
	avatars      []studio.Avatar
	users        map[string]studio.User
	userBodies   []map[string]any
	usersQuery   string
	notices      []string
	files        map[string][]byte
}

type fakeVideo struct {
	detail studio.VideoDetail
	// script holds the statuses returned by successive GETs; the last one
	// repeats.
	script []studio.VideoDetail
}

func newFakeStudio(t *testing.T) *fakeStudio {
	return &fakeStudio{
		t:         t,
		refreshOK: true,
		videos:    map[string]*fakeVideo{},
		users: map[string]studio.User{
			"u-admin": {ID: "u-admin", Email: "ada@example.com", Role: studio.RoleAdmin, IsActive: true, MonthlyUsage: intPtr(125), MonthlyLimit: intPtr(3600)},
		},
		files: map[string][]byte{},
	}
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func issueToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-admin",
		"exp": time.Now().Add(ttl).Unix(),
		"jti": uuid.NewString(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func writeAPIJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeStudio) authorized(w http.ResponseWriter, r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.access == "" || r.Header.Get("Authorization") != "Bearer "+f.access {
		writeAPIJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
		return false
	}
	return true
}

// expireAccess invalidates the current access token so the next call gets 401.
func (f *fakeStudio) expireAccess() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = "expired-" + uuid.NewString()
}

func (f *fakeStudio) addVideo(script ...studio.VideoDetail) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := script[0].ID
	f.videos[id] = &fakeVideo{detail: script[0], script: script[1:]}
	f.videoOrder = append(f.videoOrder, id)
	return id
}

func (f *fakeStudio) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			f.t.Errorf("login must not carry a bearer token")
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "ada@example.com" || body["password"] != "secret" {
			writeAPIJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect email or password"})
			return
		}
		f.mu.Lock()
		f.access = issueToken(f.t, time.Hour)
		f.refresh = "refresh-" + uuid.NewString()
		resp := map[string]any{"access_token": f.access, "refresh_token": f.refresh, "token_type": "bearer"}
		f.mu.Unlock()
		writeAPIJSON(w, http.StatusOK, resp)
	})

	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.refreshCalls++
		if !f.refreshOK || body["refresh_token"] != f.refresh {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Invalid refresh token"}`))
			return
		}
		f.access = issueToken(f.t, time.Hour)
		writeAPIJSON(w, http.StatusOK, map[string]any{"access_token": f.access, "token_type": "bearer"})
	})

	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		writeAPIJSON(w, http.StatusOK, f.users["u-admin"])
	})

	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.usersQuery = r.URL.RawQuery
		users := make([]studio.User, 0, len(f.users))
		for _, id := range []string{"u-admin", "u-2"} {
			if u, ok := f.users[id]; ok {
				users = append(users, u)
			}
		}
		writeAPIJSON(w, http.StatusOK, map[string]any{"users": users})
	})

	mux.HandleFunc("POST /users", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.userBodies = append(f.userBodies, body)
		user := studio.User{ID: "u-2", Email: fmt.Sprint(body["email"]), Role: studio.Role(fmt.Sprint(body["role"])), IsActive: true}
		if limit, ok := body["monthly_limit"].(float64); ok {
			user.MonthlyLimit = intPtr(int(limit))
		}
		f.users[user.ID] = user
		writeAPIJSON(w, http.StatusOK, user)
	})

	mux.HandleFunc("PUT /users", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.userBodies = append(f.userBodies, body)
		user, ok := f.users[fmt.Sprint(body["id"])]
		if !ok {
			writeAPIJSON(w, http.StatusNotFound, map[string]string{"detail": "User not found"})
			return
		}
		if active, ok := body["is_active"].(bool); ok {
			user.IsActive = active
		}
		f.users[user.ID] = user
		writeAPIJSON(w, http.StatusOK, user)
	})

	mux.HandleFunc("GET /avatars", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		writeAPIJSON(w, http.StatusOK, map[string]any{"avatars": f.avatars})
	})

	mux.HandleFunc("POST /avatars", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		var avatar studio.Avatar
		_ = json.NewDecoder(r.Body).Decode(&avatar)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.avatars = append(f.avatars, avatar)
		writeAPIJSON(w, http.StatusOK, avatar)
	})

	mux.HandleFunc("POST /videos", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		var body studio.NewVideo
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.videoPosts++
		id := fmt.Sprintf("vid-%d", f.videoPosts)
		video := studio.VideoDetail{ID: id, Title: body.Title, Status: studio.StatusInProgress, AvatarID: strPtr(body.AvatarID), Text: strPtr(body.Text)}
		done := video
		done.Status = studio.StatusCompleted
		done.S3URL = strPtr("https://cdn.example/" + id + ".mp4")
		done.DurationSeconds = new(float64)
		*done.DurationSeconds = 65
		f.videos[id] = &fakeVideo{detail: video, script: []studio.VideoDetail{done}}
		f.videoOrder = append(f.videoOrder, id)
		writeAPIJSON(w, http.StatusOK, video)
	})

	mux.HandleFunc("GET /videos", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		videos := make([]studio.VideoDetail, 0, len(f.videoOrder))
		for _, id := range f.videoOrder {
			videos = append(videos, f.videos[id].detail)
		}
		writeAPIJSON(w, http.StatusOK, map[string]any{"videos": videos})
	})

	mux.HandleFunc("GET /videos/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		video, ok := f.videos[r.PathValue("id")]
		if !ok {
			writeAPIJSON(w, http.StatusNotFound, map[string]string{"detail": "Video not found"})
			return
		}
		current := video.detail
		if len(video.script) > 0 {
			video.detail = video.script[0]
			video.script = video.script[1:]
		}
		writeAPIJSON(w, http.StatusOK, current)
	})

	mux.HandleFunc("GET /files/{name}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		data, ok := f.files[r.PathValue("name")]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	})

	mux.HandleFunc("POST /ntfy", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.notices = append(f.notices, r.Header.Get("Title")+"|"+string(body))
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func (f *fakeStudio) noticeTitles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	titles := make([]string, 0, len(f.notices))
	for _, n := range f.notices {
		titles = append(titles, strings.SplitN(n, "|", 2)[0])
	}
	return titles
}

type cliTestEnv struct {
	api        *fakeStudio
	server     *httptest.Server
	configPath string
	stateDir   string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, extraConfig ...string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("AVATARCTL_API_BASE_URL", "")
	t.Setenv("AVATARCTL_ACCESS_SLOT", "")
	t.Setenv("AVATARCTL_REFRESH_SLOT", "")

	api := newFakeStudio(t)
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)

	env := &cliTestEnv{
		api:        api,
		server:     server,
		configPath: filepath.Join(base, "avatarctl.toml"),
		stateDir:   filepath.Join(base, "state"),
		baseDir:    base,
	}
	writeTestConfig(t, env, extraConfig...)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv, extra ...string) {
	t.Helper()
	content := fmt.Sprintf(
		"[api]\nbase_url = %q\n\n[paths]\nstate_dir = %q\ndownload_dir = %q\n\n[logging]\nlevel = \"error\"\n\n[notifications]\nntfy_topic = %q\n",
		env.server.URL,
		env.stateDir,
		filepath.Join(env.baseDir, "downloads"),
		env.server.URL+"/ntfy",
	)
	content += strings.Join(extra, "\n")
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, error) {
	t.Helper()
	return runCLIWithInput(t, env, "", args...)
}

func runCLIWithInput(t *testing.T, env *cliTestEnv, stdin string, args ...string) (string, error) {
	t.Helper()
	ctx := newCommandContext()
	ctx.pollInterval = 5 * time.Millisecond
	cmd := newRootCommandWithContext(ctx)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func mustLogin(t *testing.T, env *cliTestEnv) {
	t.Helper()
	out, err := runCLI(t, env, "login", "--email", "ada@example.com", "--password", "secret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	requireContains(t, out, "Logged in as ada@example.com (Admin)")
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}

func (f *fakeStudio) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func (f *fakeStudio) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.videoPosts
}

func (f *fakeStudio) lastUsersQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usersQuery
}

func (f *fakeStudio) addFile(name string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[name] = data
}

func (f *fakeStudio) failRefresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshOK = false
}
