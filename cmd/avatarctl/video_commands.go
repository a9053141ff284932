package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"avatarctl/internal/journal"
	"avatarctl/internal/poller"
	"avatarctl/internal/services"
	"avatarctl/internal/studio"
)

const resumeConcurrency = 4

func newVideosCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "videos",
		Aliases: []string{"video"},
		Short:   "Create, inspect and follow video jobs",
	}
	cmd.AddCommand(newVideoCreateCommand(ctx))
	cmd.AddCommand(newVideoGetCommand(ctx))
	cmd.AddCommand(newVideoListCommand(ctx))
	cmd.AddCommand(newVideoWatchCommand(ctx))
	cmd.AddCommand(newVideoPendingCommand(ctx))
	cmd.AddCommand(newVideoResumeCommand(ctx))
	cmd.AddCommand(newVideoDownloadCommand(ctx))
	cmd.AddCommand(newVideoHistoryCommand(ctx))
	cmd.AddCommand(newVideoForgetCommand(ctx))
	cmd.AddCommand(newVideoPruneCommand(ctx))
	return cmd
}

func newVideoCreateCommand(ctx *commandContext) *cobra.Command {
	var in studio.NewVideo
	var textFile string
	var wait bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit a new video job",
		RunE: func(cmd *cobra.Command, args []string) error {
			if textFile != "" {
				text, err := readTextSource(cmd.InOrStdin(), textFile)
				if err != nil {
					return err
				}
				in.Text = text
			}
			client, err := ctx.requireSession()
			if err != nil {
				return err
			}
			runCtx := commandCtx(cmd)

			if !wait {
				video, err := client.CreateVideo(runCtx, in)
				if err != nil {
					return err
				}
				ctx.recordVideo(runCtx, video, false)
				return printVideo(cmd, ctx, video)
			}

			p, err := ctx.newPoller(client)
			if err != nil {
				return err
			}
			flow, err := poller.NewFlow(p)
			if err != nil {
				return err
			}
			defer flow.Cancel()

			follower, err := ctx.newFollower(cmd)
			if err != nil {
				return err
			}
			session, err := flow.Submit(runCtx, func(submitCtx context.Context) (studio.VideoDetail, error) {
				video, err := client.CreateVideo(submitCtx, in)
				if err != nil {
					return video, err
				}
				follower.record(submitCtx, video)
				if !ctx.jsonFlag {
					fmt.Fprintf(cmd.OutOrStdout(), "Created video %s; checking every %s\n", video.ID, p.Interval())
				}
				return video, nil
			})
			if err != nil {
				return err
			}
			final, err := follower.follow(runCtx, session)
			if ctx.jsonFlag && final.ID != "" {
				if jsonErr := writeJSON(cmd, final); jsonErr != nil && err == nil {
					err = jsonErr
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&in.Title, "title", "t", "", "Video title")
	cmd.Flags().StringVarP(&in.AvatarID, "avatar", "a", "", "Avatar ID")
	cmd.Flags().StringVar(&in.Text, "text", "", "Script the avatar speaks")
	cmd.Flags().StringVarP(&textFile, "file", "f", "", "Read the script from a file (- for stdin)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the job finishes")
	return cmd
}

func readTextSource(stdin io.Reader, source string) (string, error) {
	var (
		data []byte
		err  error
	)
	if source == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "videos", "create", "read script", err)
	}
	return string(data), nil
}

func newVideoGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one video job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireArg(args, "video id")
			if err != nil {
				return err
			}
			client, err := ctx.requireSession()
			if err != nil {
				return err
			}
			video, err := client.GetVideo(commandCtx(cmd), id)
			if err != nil {
				return err
			}
			ctx.recordVideo(commandCtx(cmd), video, true)
			return printVideo(cmd, ctx, video)
		},
	}
}

func printVideo(cmd *cobra.Command, ctx *commandContext, video studio.VideoDetail) error {
	if ctx.jsonFlag {
		return writeJSON(cmd, video)
	}
	completed := "-"
	if ts, ok := video.CompletedTime(); ok {
		completed = ts.Local().Format(time.DateTime)
	}
	pairs := [][2]string{
		{"ID", video.ID},
		{"Title", video.Title},
		{"Status", humanize(string(video.Status))},
		{"Duration", studio.FormatDuration(video.DurationSeconds)},
		{"Completed", completed},
	}
	if video.AvatarID != nil {
		pairs = append(pairs, [2]string{"Avatar", *video.AvatarID})
	}
	if url := video.URL(); url != "" {
		pairs = append(pairs, [2]string{"URL", url})
	}
	if msg := video.Error(); msg != "" {
		pairs = append(pairs, [2]string{"Error", msg})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues(pairs))
	return nil
}

func newVideoListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List video jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			want, err := parseStatusFlag(statusFilter)
			if err != nil {
				return err
			}
			client, err := ctx.requireSession()
			if err != nil {
				return err
			}
			videos, err := client.ListVideos(commandCtx(cmd))
			if err != nil {
				return err
			}
			filtered := make([]studio.VideoDetail, 0, len(videos))
			for _, v := range videos {
				if want == "" || v.Status == want {
					filtered = append(filtered, v)
				}
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, filtered)
			}
			rows := make([][]string, 0, len(filtered))
			for _, v := range filtered {
				completed := "-"
				if ts, ok := v.CompletedTime(); ok {
					completed = ts.Local().Format(time.DateTime)
				}
				rows = append(rows, []string{v.ID, v.Title, humanize(string(v.Status)), studio.FormatDuration(v.DurationSeconds), completed})
			}
			printTable(cmd.OutOrStdout(), "No videos", []string{"ID", "Title", "Status", "Duration", "Completed"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft})
			return nil
		},
	}
	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Only show jobs in this status (in_progress, completed, failed, canceled)")
	return cmd
}

func newVideoWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <id>",
		Short: "Poll a video job until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireArg(args, "video id")
			if err != nil {
				return err
			}
			client, err := ctx.requireSession()
			if err != nil {
				return err
			}
			runCtx := commandCtx(cmd)
			initial, err := client.GetVideo(runCtx, id)
			if err != nil {
				return err
			}
			p, err := ctx.newPoller(client)
			if err != nil {
				return err
			}
			flow, err := poller.NewFlow(p)
			if err != nil {
				return err
			}
			defer flow.Cancel()

			follower, err := ctx.newFollower(cmd)
			if err != nil {
				return err
			}
			follower.record(runCtx, initial)
			session, err := flow.Attach(runCtx, initial)
			if err != nil {
				return err
			}
			final, err := follower.follow(runCtx, session)
			if ctx.jsonFlag {
				if jsonErr := writeJSON(cmd, final); jsonErr != nil && err == nil {
					err = jsonErr
				}
			}
			return err
		},
	}
}

func newVideoPendingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List jobs last seen in progress on this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.journalStore()
			if err != nil {
				return err
			}
			entries, err := store.Pending(commandCtx(cmd))
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSONList(cmd, entries)
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.ID, e.Title, humanize(string(e.Status)), e.UpdatedAt.Local().Format(time.DateTime)})
			}
			printTable(cmd.OutOrStdout(), "No pending videos", []string{"ID", "Title", "Status", "Last Seen"}, rows, nil)
			return nil
		},
	}
}

func newVideoResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume polling every pending job",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.journalStore()
			if err != nil {
				return err
			}
			runCtx := commandCtx(cmd)
			entries, err := store.Pending(runCtx)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending videos")
				return nil
			}
			client, err := ctx.requireSession()
			if err != nil {
				return err
			}
			p, err := ctx.newPoller(client)
			if err != nil {
				return err
			}
			follower, err := ctx.newFollower(cmd)
			if err != nil {
				return err
			}

			errs := make([]error, len(entries))
			var group errgroup.Group
			group.SetLimit(resumeConcurrency)
			for i, entry := range entries {
				group.Go(func() error {
					errs[i] = resumeEntry(runCtx, p, follower, entry)
					return nil
				})
			}
			_ = group.Wait()
			return errors.Join(errs...)
		},
	}
}

func resumeEntry(ctx context.Context, p *poller.Poller, f *follower, entry *journal.Entry) error {
	session, err := p.Start(ctx, entry.Video())
	if err != nil {
		return err
	}
	defer session.Cancel()
	_, err = f.follow(ctx, session)
	return err
}
