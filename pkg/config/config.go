package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// RefreshPolicy selects how a notification feed treats repeated loads.
// The two observed behaviors are configuration points of one engine, not
// separate implementations.
type RefreshPolicy string

const (
	// RefreshAlways refetches on every view.
	RefreshAlways RefreshPolicy = "always"
	// RefreshOnce fetches once and serves from cache until invalidated.
	RefreshOnce RefreshPolicy = "once"
)

// Config holds the full client configuration.
type Config struct {
	// ServerURL is the backend base URL for request/response calls.
	ServerURL string `yaml:"server_url"`

	// PushURL is the websocket endpoint of the push channel. Derived from
	// ServerURL when empty.
	PushURL string `yaml:"push_url"`

	// DataDir holds the local cache database.
	DataDir string `yaml:"data_dir"`

	// StatusAddr is the listen address of the local status/metrics server.
	// Empty disables it.
	StatusAddr string `yaml:"status_addr"`

	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`

	Presence struct {
		// RefreshInterval is the friend-list refresh period.
		RefreshInterval time.Duration `yaml:"refresh_interval"`
	} `yaml:"presence"`

	Tracking struct {
		// PollInterval is the location poll period.
		PollInterval time.Duration `yaml:"poll_interval"`
	} `yaml:"tracking"`

	Notifications struct {
		GeneralPolicy       RefreshPolicy `yaml:"general_policy"`
		FriendRequestPolicy RefreshPolicy `yaml:"friend_request_policy"`
	} `yaml:"notifications"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	var cfg Config
	cfg.ServerURL = "http://localhost:8000"
	cfg.DataDir = defaultDataDir()
	cfg.Log.Level = "info"
	cfg.Presence.RefreshInterval = 5 * time.Second
	cfg.Tracking.PollInterval = 5 * time.Second
	cfg.Notifications.GeneralPolicy = RefreshAlways
	cfg.Notifications.FriendRequestPolicy = RefreshOnce
	return cfg
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in increasing precedence. A .env file in the
// working directory is honored when present.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required fields and interval sanity.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	if c.Presence.RefreshInterval <= 0 {
		return fmt.Errorf("presence.refresh_interval must be positive")
	}
	if c.Tracking.PollInterval <= 0 {
		return fmt.Errorf("tracking.poll_interval must be positive")
	}
	switch c.Notifications.GeneralPolicy {
	case RefreshAlways, RefreshOnce:
	default:
		return fmt.Errorf("unknown notifications.general_policy %q", c.Notifications.GeneralPolicy)
	}
	switch c.Notifications.FriendRequestPolicy {
	case RefreshAlways, RefreshOnce:
	default:
		return fmt.Errorf("unknown notifications.friend_request_policy %q", c.Notifications.FriendRequestPolicy)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GUILDME_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("GUILDME_PUSH_URL"); v != "" {
		cfg.PushURL = v
	}
	if v := os.Getenv("GUILDME_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("GUILDME_STATUS_ADDR"); v != "" {
		cfg.StatusAddr = v
	}
	if v := os.Getenv("GUILDME_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("GUILDME_TRACKING_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Tracking.PollInterval = d
		}
	}
	if v := os.Getenv("GUILDME_PRESENCE_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Presence.RefreshInterval = d
		}
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".guildme"
	}
	return home + "/.guildme"
}
