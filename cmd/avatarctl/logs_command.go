package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"avatarctl/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var jobID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent entries from the log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.LogPath()
			out := cmd.OutOrStdout()
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !follow {
				if !cfg.Logging.ToFile {
					fmt.Fprintln(out, "File logging is off; set logging.to_file = true to keep a log")
					return nil
				}
				fmt.Fprintf(out, "No log entries yet (%s)\n", path)
				return nil
			}

			filter := logs.Filter{JobID: strings.TrimSpace(jobID)}
			records, offset, err := logs.Last(path, lines, filter)
			if err != nil {
				return err
			}
			for _, r := range records {
				printLogRecord(out, r)
			}
			if !follow {
				return nil
			}
			return logs.Follow(commandCtx(cmd), path, offset, filter, 0, func(r logs.Record) {
				printLogRecord(out, r)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of entries to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new entries until interrupted")
	cmd.Flags().StringVar(&jobID, "job", "", "Only show entries for this video ID")
	return cmd
}

func printLogRecord(out io.Writer, r logs.Record) {
	if r.Message == "" {
		fmt.Fprintln(out, r.Raw)
		return
	}
	ts := "--:--:--"
	if !r.Time.IsZero() {
		ts = r.Time.Local().Format(time.TimeOnly)
	}
	line := fmt.Sprintf("%s %-5s ", ts, strings.ToUpper(r.Level))
	if r.Component != "" {
		line += r.Component + ": "
	}
	line += r.Message
	if r.JobID != "" {
		line += " job_id=" + r.JobID
	}
	fmt.Fprintln(out, line)
}
