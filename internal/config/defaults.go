package config

const (
	defaultConfigPath            = "~/.config/avatarctl/config.toml"
	defaultStateDir              = "~/.local/share/avatarctl"
	defaultDownloadDir           = "~/Videos/avatarctl"
	defaultRequestTimeoutSeconds = 30
	defaultSessionStore          = SessionStoreFile
	defaultAccessSlot            = "access_token"
	defaultRefreshSlot           = "refresh_token"
	defaultSessionExpiryDays     = 7
	defaultPollIntervalSeconds   = 5
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultNotifyRequestTimeout  = 10
)

// Session store backends.
const (
	SessionStoreFile   = "file"
	SessionStoreSQLite = "sqlite"
	SessionStoreMemory = "memory"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Session: Session{
			Store:       defaultSessionStore,
			AccessSlot:  defaultAccessSlot,
			RefreshSlot: defaultRefreshSlot,
			ExpiryDays:  defaultSessionExpiryDays,
		},
		Poll: Poll{
			IntervalSeconds: defaultPollIntervalSeconds,
		},
		Paths: Paths{
			StateDir:    defaultStateDir,
			DownloadDir: defaultDownloadDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			VideoCompleted: true,
			VideoFailed:    true,
			PollErrors:     true,
			SessionEnded:   true,
		},
	}
}
