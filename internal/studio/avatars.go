package studio

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"avatarctl/internal/gateway"
	"avatarctl/internal/services"
)

// ListAvatars returns every avatar.
func (c *Client) ListAvatars(ctx context.Context) ([]Avatar, error) {
	var out struct {
		Avatars []Avatar `json:"avatars"`
	}
	if err := c.api.JSON(ctx, gateway.Request{Method: http.MethodGet, Path: "/avatars"}, &out); err != nil {
		return nil, err
	}
	return out.Avatars, nil
}

// GetAvatar returns one avatar.
func (c *Client) GetAvatar(ctx context.Context, id string) (Avatar, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Avatar{}, services.Wrap(services.ErrValidation, "avatars", "get", "avatar id is required", nil)
	}
	var avatar Avatar
	err := c.api.JSON(ctx, gateway.Request{Method: http.MethodGet, Path: "/avatars/" + url.PathEscape(id)}, &avatar)
	return avatar, err
}

// CreateAvatar registers a new avatar. All three fields are required.
func (c *Client) CreateAvatar(ctx context.Context, in Avatar) (Avatar, error) {
	in.AvatarID = strings.TrimSpace(in.AvatarID)
	in.Name = strings.TrimSpace(in.Name)
	in.VoiceID = strings.TrimSpace(in.VoiceID)
	if in.AvatarID == "" || in.Name == "" || in.VoiceID == "" {
		return Avatar{}, services.Wrap(services.ErrValidation, "avatars", "create", "avatar_id, name and voice_id are required", nil)
	}
	var avatar Avatar
	err := c.api.JSON(ctx, gateway.Request{Method: http.MethodPost, Path: "/avatars", Body: in}, &avatar)
	return avatar, err
}

// UpdateAvatar changes the non-nil fields of in.
func (c *Client) UpdateAvatar(ctx context.Context, in AvatarUpdate) (Avatar, error) {
	in.AvatarID = strings.TrimSpace(in.AvatarID)
	if in.AvatarID == "" {
		return Avatar{}, services.Wrap(services.ErrValidation, "avatars", "update", "avatar id is required", nil)
	}
	var avatar Avatar
	err := c.api.JSON(ctx, gateway.Request{Method: http.MethodPut, Path: "/avatars", Body: in}, &avatar)
	return avatar, err
}

// DeleteAvatar removes an avatar.
func (c *Client) DeleteAvatar(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return services.Wrap(services.ErrValidation, "avatars", "delete", "avatar id is required", nil)
	}
	return c.api.JSON(ctx, gateway.Request{Method: http.MethodDelete, Path: "/avatars/" + url.PathEscape(id)}, nil)
}
