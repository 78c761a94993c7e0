package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestDefaults tests the zero-input configuration.
func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:8000", cfg.ServerURL)
	assert.Empty(t, cfg.PushURL)
	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 5*time.Second, cfg.Presence.RefreshInterval)
	assert.Equal(t, 5*time.Second, cfg.Tracking.PollInterval)
	assert.Equal(t, RefreshAlways, cfg.Notifications.GeneralPolicy)
	assert.Equal(t, RefreshOnce, cfg.Notifications.FriendRequestPolicy)
	assert.NoError(t, cfg.Validate())
}

// TestLoadFileOverridesDefaults tests the YAML layer.
func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server_url: https://guildme.example.com
status_addr: 127.0.0.1:9090
log:
  level: debug
  json: true
tracking:
  poll_interval: 2s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://guildme.example.com", cfg.ServerURL)
	assert.Equal(t, "127.0.0.1:9090", cfg.StatusAddr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, 2*time.Second, cfg.Tracking.PollInterval)
	// Untouched fields keep their defaults.
	assert.Equal(t, 5*time.Second, cfg.Presence.RefreshInterval)
	assert.Equal(t, RefreshOnce, cfg.Notifications.FriendRequestPolicy)
}

// TestEnvOverridesFile tests precedence: env beats the YAML file.
func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server_url: https://from-file.example.com
`)
	t.Setenv("GUILDME_SERVER_URL", "https://from-env.example.com")
	t.Setenv("GUILDME_TRACKING_POLL_INTERVAL", "250ms")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://from-env.example.com", cfg.ServerURL)
	assert.Equal(t, 250*time.Millisecond, cfg.Tracking.PollInterval)
}

// TestLoadMissingFile tests the explicit-path error.
func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

// TestValidate tests each rejection.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing server url",
			mutate:  func(c *Config) { c.ServerURL = "" },
			wantErr: "server_url",
		},
		{
			name:    "non-positive presence interval",
			mutate:  func(c *Config) { c.Presence.RefreshInterval = 0 },
			wantErr: "presence.refresh_interval",
		},
		{
			name:    "non-positive poll interval",
			mutate:  func(c *Config) { c.Tracking.PollInterval = -time.Second },
			wantErr: "tracking.poll_interval",
		},
		{
			name:    "unknown general policy",
			mutate:  func(c *Config) { c.Notifications.GeneralPolicy = "sometimes" },
			wantErr: "general_policy",
		},
		{
			name:    "unknown friend request policy",
			mutate:  func(c *Config) { c.Notifications.FriendRequestPolicy = "" },
			wantErr: "friend_request_policy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
