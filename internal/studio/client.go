package studio

import (
	"context"
	"errors"
	"log/slog"

	"avatarctl/internal/gateway"
	"avatarctl/internal/logging"
)

// Caller is the gateway surface the client needs.
type Caller interface {
	JSON(ctx context.Context, req gateway.Request, out any) error
}

// Session is the token store surface used by login and logout.
type Session interface {
	Set(access, refresh string) error
	Clear() error
	Authenticated() bool
}

// Client exposes one method per API operation.
type Client struct {
	api     Caller
	session Session
	logger  *slog.Logger
}

// New builds a Client over api. session may be nil for clients that never
// log in or out.
func New(api Caller, session Session, logger *slog.Logger) (*Client, error) {
	if api == nil {
		return nil, errors.New("studio: api caller is nil")
	}
	return &Client{
		api:     api,
		session: session,
		logger:  logging.NewComponentLogger(logger, "studio"),
	}, nil
}
