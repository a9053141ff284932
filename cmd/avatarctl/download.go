package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"avatarctl/internal/config"
	"avatarctl/internal/fileutil"
	"avatarctl/internal/services"
	"avatarctl/internal/studio"
)

func newVideoDownloadCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Save a completed video to disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := requireArg(args, "video id")
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.requireSession()
			if err != nil {
				return err
			}
			runCtx := commandCtx(cmd)
			video, err := client.GetVideo(runCtx, id)
			if err != nil {
				return err
			}
			if video.Status != studio.StatusCompleted || video.URL() == "" {
				return services.Wrap(services.ErrValidation, "videos", "download",
					fmt.Sprintf("video %s is %s and has no result yet", id, humanize(string(video.Status))), nil)
			}

			dest, err := downloadTarget(cfg, output, video)
			if err != nil {
				return err
			}
			httpClient := ctx.httpClient
			if httpClient == nil {
				httpClient = &http.Client{}
			}
			saved, err := downloadFile(runCtx, httpClient, video.URL(), dest)
			if err != nil {
				return err
			}

			ctx.recordVideo(runCtx, video, false)
			if store, err := ctx.journalStore(); err == nil {
				if err := store.MarkDownloaded(runCtx, video.ID, dest); err != nil {
					warnJournalWrite(ctx.loggerFor("journal"), video.ID, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes, sha256 %s)\n", dest, saved.Bytes, saved.SHA256)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (defaults to paths.download_dir)")
	return cmd
}

func downloadTarget(cfg *config.Config, output string, video studio.VideoDetail) (string, error) {
	if output = strings.TrimSpace(output); output != "" {
		return config.ExpandPath(output)
	}
	return filepath.Join(cfg.Paths.DownloadDir, videoFileName(video)), nil
}

// videoFileName builds "<title-slug>-<id><ext>", taking the extension from
// the result URL and defaulting to .mp4.
func videoFileName(video studio.VideoDetail) string {
	ext := ".mp4"
	if u, err := url.Parse(video.URL()); err == nil {
		if e := path.Ext(u.Path); e != "" && len(e) <= 5 {
			ext = strings.ToLower(e)
		}
	}
	slug := slugify(video.Title)
	if slug == "" {
		return video.ID + ext
	}
	return slug + "-" + video.ID + ext
}

func slugify(value string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func downloadFile(ctx context.Context, client *http.Client, source, dest string) (fileutil.WriteResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return fileutil.WriteResult{}, fmt.Errorf("build download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fileutil.WriteResult{}, fmt.Errorf("download video: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fileutil.WriteResult{}, fmt.Errorf("download video: unexpected status %d", resp.StatusCode)
	}
	return fileutil.WriteVerified(dest, resp.Body, resp.ContentLength)
}
