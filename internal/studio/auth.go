package studio

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"avatarctl/internal/gateway"
	"avatarctl/internal/logging"
	"avatarctl/internal/services"
)

var errNoSession = errors.New("studio: no session store configured")

// Login exchanges credentials for a token pair and stores it. The call is
// made without credentials and never triggers a refresh.
func (c *Client) Login(ctx context.Context, email, password string) (TokenResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return TokenResponse{}, services.Wrap(services.ErrValidation, "auth", "login", "email and password are required", nil)
	}
	if c.session == nil {
		return TokenResponse{}, errNoSession
	}

	var tokens TokenResponse
	err := c.api.JSON(ctx, gateway.Request{
		Method:    http.MethodPost,
		Path:      "/auth/login",
		Body:      map[string]string{"email": email, "password": password},
		Anonymous: true,
	}, &tokens)
	if err != nil {
		return TokenResponse{}, err
	}
	if strings.TrimSpace(tokens.AccessToken) == "" {
		return TokenResponse{}, errors.New("login response carried no access token")
	}

	if err := c.session.Set(tokens.AccessToken, deref(tokens.RefreshToken)); err != nil {
		return TokenResponse{}, err
	}
	c.logger.Info("logged in",
		logging.String("email", email),
		logging.Bool("refresh_token_issued", deref(tokens.RefreshToken) != ""),
	)
	return tokens, nil
}

// Logout drops the stored tokens. The API has no logout endpoint.
func (c *Client) Logout() error {
	if c.session == nil {
		return errNoSession
	}
	return c.session.Clear()
}

// IsAuthenticated reports whether an access token is stored.
func (c *Client) IsAuthenticated() bool {
	return c.session != nil && c.session.Authenticated()
}
