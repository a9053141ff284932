package preflight

import (
	"context"
	"os"

	"avatarctl/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Deps carries the collaborators needed by network checks. Nil fields skip
// the corresponding check.
type Deps struct {
	Client  HTTPDoer
	Session SessionProber
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, deps Deps) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))

	// The download directory is created on first download.
	if _, err := os.Stat(cfg.Paths.DownloadDir); err == nil {
		results = append(results, CheckDirectoryAccess("Download directory", cfg.Paths.DownloadDir))
	} else {
		results = append(results, Result{Name: "Download directory", Passed: true, Detail: cfg.Paths.DownloadDir + " (created on first download)"})
	}

	results = append(results, CheckAPI(ctx, deps.Client, cfg.API.BaseURL))

	if deps.Session != nil {
		results = append(results, CheckSession(ctx, deps.Session))
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
