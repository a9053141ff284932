package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"avatarctl/internal/config"
	"avatarctl/internal/gateway"
	"avatarctl/internal/journal"
	"avatarctl/internal/logging"
	"avatarctl/internal/notifications"
	"avatarctl/internal/poller"
	"avatarctl/internal/services"
	"avatarctl/internal/session"
	"avatarctl/internal/studio"
)

// commandContext lazily builds the collaborators shared by subcommands.
type commandContext struct {
	configFlag   string
	logLevelFlag string
	jsonFlag     bool

	// pollInterval overrides poll.interval_seconds when non-zero.
	pollInterval time.Duration
	// httpClient overrides the API transport when non-nil.
	httpClient *http.Client

	configOnce sync.Once
	config     *config.Config
	configErr  error

	mu       sync.Mutex
	logger   *slog.Logger
	journal  *journal.Store
	creds    *session.Credentials
	api      *gateway.Gateway
	client   *studio.Client
	notifier notifications.Service
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "load", "", err)
			return
		}
		if lvl := strings.TrimSpace(c.logLevelFlag); lvl != "" {
			cfg.Logging.Level = strings.ToLower(lvl)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) loggerFor(component string) *slog.Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.logger == nil {
		logger, err := logging.NewFromConfig(c.config)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	}
	return logging.NewComponentLogger(c.logger, component)
}

func (c *commandContext) journalStore() (*journal.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.journal == nil {
		store, err := journal.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		c.journal = store
	}
	return c.journal, nil
}

func (c *commandContext) credentials() (*session.Credentials, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	cached := c.creds
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	var store session.TokenStore
	switch cfg.Session.Store {
	case config.SessionStoreSQLite:
		js, err := c.journalStore()
		if err != nil {
			return nil, err
		}
		sqliteStore, err := session.NewSQLiteStore(js.DB(), cfg.SessionExpiry())
		if err != nil {
			return nil, err
		}
		store = sqliteStore
	case config.SessionStoreMemory:
		store = session.NewMemoryStore(cfg.SessionExpiry())
	default:
		store = session.NewFileStore(cfg.TokenFilePath(), cfg.SessionExpiry())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.creds == nil {
		creds, err := session.NewCredentials(store, cfg.Session.AccessSlot, cfg.Session.RefreshSlot)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "session", "open", "", err)
		}
		c.creds = creds
	}
	return c.creds, nil
}

func (c *commandContext) notifications() notifications.Service {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notifier == nil {
		c.notifier = notifications.NewService(c.config)
	}
	return c.notifier
}

func (c *commandContext) gateway() (*gateway.Gateway, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	creds, err := c.credentials()
	if err != nil {
		return nil, err
	}
	logger := c.loggerFor("gateway")
	notifier := c.notifications()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api != nil {
		return c.api, nil
	}
	opts := []gateway.Option{
		gateway.WithTimeout(cfg.RequestTimeout()),
		gateway.WithLogger(logger),
		gateway.WithSessionEnded(func(ctx context.Context, cause error) {
			reason := "login required"
			if cause != nil {
				reason = cause.Error()
			}
			if err := notifier.Publish(context.WithoutCancel(ctx), notifications.EventSessionEnded, notifications.Payload{"reason": reason}); err != nil {
				logging.WarnWithContext(logger, "session ended notification failed", "notification_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
				)
			}
		}),
	}
	if c.httpClient != nil {
		opts = append(opts, gateway.WithHTTPClient(c.httpClient))
	}
	api, err := gateway.New(cfg.API.BaseURL, creds, opts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "gateway", "init", "", err)
	}
	c.api = api
	return api, nil
}

func (c *commandContext) studioClient() (*studio.Client, error) {
	api, err := c.gateway()
	if err != nil {
		return nil, err
	}
	creds, err := c.credentials()
	if err != nil {
		return nil, err
	}
	logger := c.loggerFor("studio")

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		client, err := studio.New(api, creds, logger)
		if err != nil {
			return nil, err
		}
		c.client = client
	}
	return c.client, nil
}

// requireSession fails fast when no access token is stored.
func (c *commandContext) requireSession() (*studio.Client, error) {
	client, err := c.studioClient()
	if err != nil {
		return nil, err
	}
	if !client.IsAuthenticated() {
		return nil, fmt.Errorf("%w: not logged in", gateway.ErrUnauthenticated)
	}
	return client, nil
}

func (c *commandContext) newPoller(fetcher poller.Fetcher) (*poller.Poller, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	interval := cfg.PollInterval()
	if c.pollInterval > 0 {
		interval = c.pollInterval
	}
	return poller.New(fetcher, poller.WithInterval(interval), poller.WithLogger(c.loggerFor("poller")))
}

// Close releases the journal handle, if one was opened.
func (c *commandContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.journal == nil {
		return nil
	}
	err := c.journal.Close()
	c.journal = nil
	return err
}

// commandCtx tags the cobra context with the command path for logging.
func commandCtx(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return services.WithCommand(ctx, cmd.CommandPath())
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func requireArg(args []string, what string) (string, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", services.Wrap(services.ErrValidation, "cli", "", what+" is required", nil)
	}
	return strings.TrimSpace(args[0]), nil
}

var errNothingToDo = errors.New("nothing to update")

func usageError(component, operation string, err error) error {
	return services.Wrap(services.ErrValidation, component, operation, "", err)
}
