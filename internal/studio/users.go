package studio

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"avatarctl/internal/gateway"
	"avatarctl/internal/services"
)

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (User, error) {
	var user User
	err := c.api.JSON(ctx, gateway.Request{Method: http.MethodGet, Path: "/users/me"}, &user)
	return user, err
}

// GetUser returns one user. month (YYYY-MM or MM.YYYY) selects the usage period.
func (c *Client) GetUser(ctx context.Context, id, month string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, services.Wrap(services.ErrValidation, "users", "get", "user id is required", nil)
	}
	query, err := monthQuery(month)
	if err != nil {
		return User{}, err
	}
	var user User
	err = c.api.JSON(ctx, gateway.Request{Method: http.MethodGet, Path: "/users/" + url.PathEscape(id), Query: query}, &user)
	return user, err
}

// ListUsers returns all users with usage for the given month.
func (c *Client) ListUsers(ctx context.Context, month string) ([]User, error) {
	query, err := monthQuery(month)
	if err != nil {
		return nil, err
	}
	var out struct {
		Users []User `json:"users"`
	}
	if err := c.api.JSON(ctx, gateway.Request{Method: http.MethodGet, Path: "/users", Query: query}, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

type createUserBody struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Role         Role   `json:"role,omitempty"`
	MonthlyLimit *int   `json:"monthly_limit"`
}

// CreateUser creates an account. The quota is given in minutes and sent in seconds.
func (c *Client) CreateUser(ctx context.Context, in NewUser) (User, error) {
	body := createUserBody{
		Email:        strings.TrimSpace(in.Email),
		Password:     in.Password,
		Role:         in.Role,
		MonthlyLimit: MinutesToSeconds(in.MonthlyLimitMinutes),
	}
	if body.Email == "" || body.Password == "" {
		return User{}, services.Wrap(services.ErrValidation, "users", "create", "email and password are required", nil)
	}
	var user User
	err := c.api.JSON(ctx, gateway.Request{Method: http.MethodPost, Path: "/users", Body: body}, &user)
	return user, err
}

type updateUserBody struct {
	ID           string  `json:"id"`
	Email        *string `json:"email"`
	Password     *string `json:"password"`
	Role         *Role   `json:"role"`
	MonthlyLimit *int    `json:"monthly_limit"`
	IsActive     *bool   `json:"is_active"`
}

// UpdateUser changes the non-nil fields of in. The quota is given in minutes.
func (c *Client) UpdateUser(ctx context.Context, in UserUpdate) (User, error) {
	body := updateUserBody{
		ID:           strings.TrimSpace(in.ID),
		Email:        in.Email,
		Password:     in.Password,
		Role:         in.Role,
		MonthlyLimit: MinutesToSeconds(in.MonthlyLimitMinutes),
		IsActive:     in.IsActive,
	}
	if body.ID == "" {
		return User{}, services.Wrap(services.ErrValidation, "users", "update", "user id is required", nil)
	}
	var user User
	err := c.api.JSON(ctx, gateway.Request{Method: http.MethodPut, Path: "/users", Body: body}, &user)
	return user, err
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return services.Wrap(services.ErrValidation, "users", "delete", "user id is required", nil)
	}
	return c.api.JSON(ctx, gateway.Request{Method: http.MethodDelete, Path: "/users/" + url.PathEscape(id)}, nil)
}

func monthQuery(month string) (url.Values, error) {
	normalized, err := NormalizeMonth(month)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "users", "date", "", err)
	}
	if normalized == "" {
		return nil, nil
	}
	return url.Values{"date": []string{normalized}}, nil
}
