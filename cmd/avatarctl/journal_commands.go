package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"avatarctl/internal/journal"
	"avatarctl/internal/services"
	"avatarctl/internal/studio"
)

const defaultPruneAge = 30 * 24 * time.Hour

func parseStatusFlag(value string) (studio.Status, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return "", nil
	}
	status := studio.Status(strings.ToUpper(strings.ReplaceAll(s, "-", "_")))
	switch status {
	case studio.StatusInProgress, studio.StatusCompleted, studio.StatusFailed, studio.StatusCanceled:
		return status, nil
	}
	return "", services.Wrap(services.ErrValidation, "videos", "", fmt.Sprintf("unknown status %q", value), nil)
}

func newVideoHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List jobs recorded on this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := parseStatusFlag(statusFilter)
			if err != nil {
				return err
			}
			store, err := ctx.journalStore()
			if err != nil {
				return err
			}
			var statuses []studio.Status
			if status != "" {
				statuses = append(statuses, status)
			}
			entries, err := store.List(commandCtx(cmd), limit, statuses...)
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSONList(cmd, entries)
			}
			printTable(cmd.OutOrStdout(), "No recorded videos",
				[]string{"ID", "Title", "Status", "Duration", "Saved To", "Updated"},
				historyRows(entries),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft})
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show (0 for all)")
	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Only show jobs in this status")
	return cmd
}

func historyRows(entries []*journal.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		saved := e.DownloadPath
		if saved == "" {
			saved = "-"
		}
		rows = append(rows, []string{
			e.ID,
			e.Title,
			humanize(string(e.Status)),
			studio.FormatDuration(e.DurationSeconds),
			saved,
			e.UpdatedAt.Local().Format(time.DateTime),
		})
	}
	return rows
}

func newVideoForgetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <id>",
		Short: "Drop a job from the local journal (the server copy is untouched)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireArg(args, "video id")
			if err != nil {
				return err
			}
			store, err := ctx.journalStore()
			if err != nil {
				return err
			}
			if err := store.Remove(commandCtx(cmd), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Forgot video %s\n", id)
			return nil
		},
	}
}

func newVideoPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove finished jobs from the local journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return services.Wrap(services.ErrValidation, "videos", "prune", "--older-than must not be negative", nil)
			}
			store, err := ctx.journalStore()
			if err != nil {
				return err
			}
			removed, err := store.Prune(commandCtx(cmd), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d finished job(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", defaultPruneAge, "Only remove jobs last updated before this age")
	return cmd
}
