package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/clanrelay/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvClanLogURL, EnvMessageChannel, EnvDonationChannel, EnvDataDir, EnvLogLevel} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clanrelay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://query.idleclans.com/api/Clan/logs/clan/KlutzCo", cfg.Upstream.URL)
	assert.Equal(t, 3, cfg.Upstream.Attempts)
	assert.Equal(t, time.Second, cfg.Upstream.Backoff)
	assert.Equal(t, "now", cfg.Upstream.TimestampPolicy)
	assert.Equal(t, 24*time.Hour, cfg.Pollers.Bulk.Interval)
	assert.Equal(t, 500, cfg.Pollers.Bulk.Limit)
	assert.Equal(t, time.Minute, cfg.Pollers.Recent.Interval)
	assert.Equal(t, 10, cfg.Pollers.Recent.Limit)
	assert.Equal(t, 30*time.Second, cfg.Delivery.Interval)
	assert.Equal(t, "corporate-oversight", cfg.Delivery.Channel)
	assert.Equal(t, 150*time.Millisecond, cfg.Delivery.SendInterval)
	assert.Equal(t, "general", cfg.Donation.Channel)
	assert.Equal(t, int64(1_000_000), cfg.Donation.MinAmount)
	assert.Equal(t, "Gagnon54", cfg.Donation.Members["Charlster"])
	assert.Equal(t, ":9090", cfg.API.Addr)
	assert.False(t, cfg.Delivery.TriggerOnInsert)

	suppressed, err := cfg.SuppressedCategories()
	require.NoError(t, err)
	assert.Nil(t, suppressed)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
upstream:
  url: https://example.com/api/Clan/logs/clan/Other?limit=50
  timeout: 5s
  timestamp_policy: skip
pollers:
  recent:
    interval: 30s
delivery:
  channel: clan-log
  send_interval: 250ms
  timezone: Europe/Paris
  suppress: [event-started]
  trigger_on_insert: true
donation:
  enabled: false
  members:
    Newbie: NewDisplay
channels:
  clan-log: https://chat.example.com/webhooks/1/abc
storage:
  data_dir: /var/lib/clanrelay
api:
  addr: ""
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/api/Clan/logs/clan/Other?limit=50", cfg.Upstream.URL)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, "skip", cfg.Upstream.TimestampPolicy)
	assert.Equal(t, 30*time.Second, cfg.Pollers.Recent.Interval)
	// Untouched values keep their defaults
	assert.Equal(t, 10, cfg.Pollers.Recent.Limit)
	assert.Equal(t, 24*time.Hour, cfg.Pollers.Bulk.Interval)
	assert.Equal(t, "clan-log", cfg.Delivery.Channel)
	assert.Equal(t, 250*time.Millisecond, cfg.Delivery.SendInterval)
	assert.True(t, cfg.Delivery.TriggerOnInsert)
	assert.False(t, cfg.Donation.Enabled)
	assert.Equal(t, "NewDisplay", cfg.Donation.Members["Newbie"])
	assert.Equal(t, "Morax", cfg.Donation.Members["moraxam"])
	assert.Equal(t, "https://chat.example.com/webhooks/1/abc", cfg.Channels["clan-log"])
	assert.Equal(t, "/var/lib/clanrelay", cfg.Storage.DataDir)
	assert.Empty(t, cfg.API.Addr)

	suppressed, err := cfg.SuppressedCategories()
	require.NoError(t, err)
	assert.Equal(t, []types.Category{types.CategoryEventStarted}, suppressed)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", loc.String())
}

func TestLoadEmptySuppressList(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "delivery:\n  suppress: []\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	suppressed, err := cfg.SuppressedCategories()
	require.NoError(t, err)
	assert.NotNil(t, suppressed)
	assert.Empty(t, suppressed)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvClanLogURL, "http://localhost:8080/logs")
	t.Setenv(EnvMessageChannel, "relay")
	t.Setenv(EnvDonationChannel, "treasury")
	t.Setenv(EnvDataDir, "/tmp/relay")
	t.Setenv(EnvLogLevel, "debug")

	path := writeConfig(t, "delivery:\n  channel: from-file\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/logs", cfg.Upstream.URL)
	assert.Equal(t, "relay", cfg.Delivery.Channel)
	assert.Equal(t, "treasury", cfg.Donation.Channel)
	assert.Equal(t, "/tmp/relay", cfg.Storage.DataDir)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"bad url", func(c *Config) { c.Upstream.URL = "ftp://example.com" }, "upstream.url"},
		{"zero attempts", func(c *Config) { c.Upstream.Attempts = 0 }, "upstream.attempts"},
		{"bad policy", func(c *Config) { c.Upstream.TimestampPolicy = "guess" }, "upstream.timestamp_policy"},
		{"zero poll interval", func(c *Config) { c.Pollers.Recent.Interval = 0 }, "pollers.recent.interval"},
		{"zero bulk limit", func(c *Config) { c.Pollers.Bulk.Limit = 0 }, "pollers.bulk.limit"},
		{"empty channel", func(c *Config) { c.Delivery.Channel = "" }, "delivery.channel"},
		{"bad timezone", func(c *Config) { c.Delivery.Timezone = "Mars/Olympus" }, "delivery.timezone"},
		{"bad category", func(c *Config) { c.Delivery.Suppress = []string{"boss-kill"} }, "delivery.suppress"},
		{"bad webhook", func(c *Config) { c.Channels["general"] = "not a url" }, "channels.general"},
		{"missing data dir", func(c *Config) { c.Storage.DataDir = "" }, "storage.data_dir"},
		{"disabled donation ignores amount", func(c *Config) {
			c.Donation.Enabled = false
			c.Donation.MinAmount = 0
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "upstream: [not, a, map]\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "upstream:\n  timeout: soon\n"))
	assert.Error(t, err)
}
