package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"avatarctl/internal/preflight"
)

var errDoctorFailed = errors.New("one or more checks failed")

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, state directories, API reachability and session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.studioClient()
			if err != nil {
				return err
			}
			deps := preflight.Deps{Client: &http.Client{Timeout: cfg.RequestTimeout()}, Session: client}
			if ctx.httpClient != nil {
				deps.Client = ctx.httpClient
			}
			results := preflight.RunAll(commandCtx(cmd), cfg, deps)

			if ctx.jsonFlag {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, r := range results {
					kind := statusOK
					if !r.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
			}
			if preflight.Failed(results) {
				return errDoctorFailed
			}
			return nil
		},
	}
}
