package studio

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"avatarctl/internal/gateway"
	"avatarctl/internal/logging"
	"avatarctl/internal/services"
)

// ListVideos returns the caller's videos.
func (c *Client) ListVideos(ctx context.Context) ([]VideoDetail, error) {
	var out struct {
		Videos []VideoDetail `json:"videos"`
	}
	if err := c.api.JSON(ctx, gateway.Request{Method: http.MethodGet, Path: "/videos"}, &out); err != nil {
		return nil, err
	}
	return out.Videos, nil
}

// GetVideo returns the latest snapshot of one video job.
func (c *Client) GetVideo(ctx context.Context, id string) (VideoDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return VideoDetail{}, services.Wrap(services.ErrValidation, "videos", "get", "video id is required", nil)
	}
	var video VideoDetail
	err := c.api.JSON(ctx, gateway.Request{Method: http.MethodGet, Path: "/videos/" + url.PathEscape(id)}, &video)
	return video, err
}

// CreateVideo submits a generation job. Title, avatar and text are trimmed
// and must be non-blank. The returned snapshot is normally IN_PROGRESS.
func (c *Client) CreateVideo(ctx context.Context, in NewVideo) (VideoDetail, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.AvatarID = strings.TrimSpace(in.AvatarID)
	in.Text = strings.TrimSpace(in.Text)
	var missing []string
	if in.Title == "" {
		missing = append(missing, "title")
	}
	if in.AvatarID == "" {
		missing = append(missing, "avatar")
	}
	if in.Text == "" {
		missing = append(missing, "text")
	}
	if len(missing) > 0 {
		return VideoDetail{}, services.Wrap(services.ErrValidation, "videos", "create", strings.Join(missing, ", ")+" required", nil)
	}

	var video VideoDetail
	if err := c.api.JSON(ctx, gateway.Request{Method: http.MethodPost, Path: "/videos", Body: in}, &video); err != nil {
		return VideoDetail{}, err
	}
	c.logger.Info("video submitted",
		logging.String(logging.FieldJobID, video.ID),
		logging.String("title", video.Title),
		logging.String("status", string(video.Status)),
	)
	return video, nil
}
