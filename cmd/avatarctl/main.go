package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"avatarctl/internal/gateway"
	"avatarctl/internal/services"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, formatError(err))
		}
		os.Exit(exitCode(err))
	}
}

// formatError renders err as the single line shown to the operator.
func formatError(err error) string {
	if errors.Is(err, gateway.ErrUnauthenticated) {
		return fmt.Sprintf("Error: %v\nSession ended; run 'avatarctl login' to sign in again.", err)
	}
	return fmt.Sprintf("Error: %v", err)
}

func exitCode(err error) int {
	if services.IsUsageError(err) {
		return exitUsage
	}
	return exitFailure
}
