package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"avatarctl/internal/gateway"
	"avatarctl/internal/studio"
)

// HTTPDoer is the client used for the reachability probe.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SessionProber reports the signed-in user. *studio.Client satisfies it.
type SessionProber interface {
	IsAuthenticated() bool
	Me(ctx context.Context) (studio.User, error)
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckAPI verifies the API answers HTTP at all. Any response, including
// 401, counts as reachable; only transport failures and 5xx fail.
func CheckAPI(ctx context.Context, client HTTPDoer, baseURL string) Result {
	const name = "Studio API"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing base_url"}
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/users/me", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Result{Name: name, Detail: fmt.Sprintf("%s answered %d", base, resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", base)}
}

// CheckSession reports whether the stored tokens are still accepted. Being
// signed out is reported as a failure with a login hint.
func CheckSession(ctx context.Context, prober SessionProber) Result {
	const name = "Session"

	if !prober.IsAuthenticated() {
		return Result{Name: name, Detail: "not logged in (run 'avatarctl login')"}
	}
	user, err := prober.Me(ctx)
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthenticated) {
			return Result{Name: name, Detail: "session expired (run 'avatarctl login')"}
		}
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("logged in as %s (%s)", user.Email, user.Role)}
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out (API unreachable)"
	}
	return fmt.Sprintf("unreachable (%v)", err)
}
