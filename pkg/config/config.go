package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/cuemby/clanrelay/pkg/delivery"
	"github.com/cuemby/clanrelay/pkg/donation"
	"github.com/cuemby/clanrelay/pkg/parser"
	"github.com/cuemby/clanrelay/pkg/poller"
	"github.com/cuemby/clanrelay/pkg/types"
	"github.com/cuemby/clanrelay/pkg/upstream"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values
const (
	EnvClanLogURL       = "CLAN_LOG_URL"
	EnvMessageChannel   = "CLAN_MESSAGE_CHANNEL"
	EnvDonationChannel  = "GOLD_DONATION_CHANNEL"
	EnvDataDir          = "CLANRELAY_DATA_DIR"
	EnvLogLevel         = "CLANRELAY_LOG_LEVEL"
	defaultDataDir      = "./clanrelay-data"
	defaultAPIAddr      = ":9090"
	defaultDeliveryTick = 30 * time.Second
)

type UpstreamConfig struct {
	URL             string        `yaml:"url"`
	Timeout         time.Duration `yaml:"timeout"`
	Attempts        int           `yaml:"attempts"`
	Backoff         time.Duration `yaml:"backoff"` // delay before the second attempt, doubled after
	UserAgent       string        `yaml:"user_agent"`
	TimestampPolicy string        `yaml:"timestamp_policy"` // now | skip
}

type PollerConfig struct {
	Interval time.Duration `yaml:"interval"`
	Limit    int           `yaml:"limit"`
}

type PollersConfig struct {
	Bulk   PollerConfig `yaml:"bulk"`
	Recent PollerConfig `yaml:"recent"`
}

type DeliveryConfig struct {
	Interval     time.Duration `yaml:"interval"`
	BatchSize    int           `yaml:"batch_size"`
	Channel      string        `yaml:"channel"`
	SendInterval time.Duration `yaml:"send_interval"`
	Timezone     string        `yaml:"timezone"`
	Suppress     []string      `yaml:"suppress"` // categories checkpointed without sending; omit for the default set
	// TriggerOnInsert runs an extra delivery tick whenever a poller stores new entries
	TriggerOnInsert bool `yaml:"trigger_on_insert"`
}

type DonationConfig struct {
	Enabled   bool              `yaml:"enabled"`
	Channel   string            `yaml:"channel"`
	MinAmount int64             `yaml:"min_amount"`
	OrgName   string            `yaml:"org_name"`
	Members   map[string]string `yaml:"members"` // in-game name -> chat display name, merged over the defaults
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type APIConfig struct {
	Addr string `yaml:"addr"` // empty disables the health/metrics server
}

type Config struct {
	Upstream UpstreamConfig    `yaml:"upstream"`
	Pollers  PollersConfig     `yaml:"pollers"`
	Delivery DeliveryConfig    `yaml:"delivery"`
	Donation DonationConfig    `yaml:"donation"`
	Channels map[string]string `yaml:"channels"` // channel name -> webhook URL
	Storage  StorageConfig     `yaml:"storage"`
	Log      LogConfig         `yaml:"log"`
	API      APIConfig         `yaml:"api"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			URL:             upstream.DefaultURL,
			Timeout:         15 * time.Second,
			Attempts:        3,
			Backoff:         time.Second,
			TimestampPolicy: string(parser.TimestampPolicyNow),
		},
		Pollers: PollersConfig{
			Bulk:   PollerConfig{Interval: 24 * time.Hour, Limit: poller.BulkLimit},
			Recent: PollerConfig{Interval: time.Minute, Limit: poller.RecentLimit},
		},
		Delivery: DeliveryConfig{
			Interval:     defaultDeliveryTick,
			BatchSize:    delivery.DefaultBatchSize,
			Channel:      delivery.DefaultChannel,
			SendInterval: delivery.DefaultSendInterval,
			Timezone:     delivery.DefaultTimezone,
		},
		Donation: DonationConfig{
			Enabled:   true,
			Channel:   donation.DefaultChannel,
			MinAmount: donation.DefaultMinAmount,
			OrgName:   "KlutzCo",
			Members: map[string]string{
				"ImaKlutz":  "ImaKlutz",
				"guildan":   "Guildan",
				"Charlster": "Gagnon54",
				"moraxam":   "Morax",
				"yothos":    "yothos",
				"Choufleur": "Steph",
				"g4m3f4c3":  "g4m3f4c3",
				"Oliiviier": "oli",
			},
		},
		Channels: map[string]string{},
		Storage:  StorageConfig{DataDir: defaultDataDir},
		Log:      LogConfig{Level: "info"},
		API:      APIConfig{Addr: defaultAPIAddr},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	c.ApplyEnv(os.LookupEnv)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyEnv overrides file values with any set environment variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvClanLogURL); ok && v != "" {
		c.Upstream.URL = v
	}
	if v, ok := lookup(EnvMessageChannel); ok && v != "" {
		c.Delivery.Channel = v
	}
	if v, ok := lookup(EnvDonationChannel); ok && v != "" {
		c.Donation.Channel = v
	}
	if v, ok := lookup(EnvDataDir); ok && v != "" {
		c.Storage.DataDir = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
}

// Validate checks the configuration for values the relay cannot run with
func (c *Config) Validate() error {
	var errs []error

	if _, err := upstream.BaseURL(c.Upstream.URL); err != nil {
		errs = append(errs, fmt.Errorf("upstream.url: %w", err))
	}
	if c.Upstream.Timeout <= 0 {
		errs = append(errs, errors.New("upstream.timeout must be positive"))
	}
	if c.Upstream.Attempts < 1 {
		errs = append(errs, errors.New("upstream.attempts must be at least 1"))
	}
	if c.Upstream.Backoff < 0 {
		errs = append(errs, errors.New("upstream.backoff must not be negative"))
	}
	if _, err := parser.ParseTimestampPolicy(c.Upstream.TimestampPolicy); err != nil {
		errs = append(errs, fmt.Errorf("upstream.timestamp_policy: %w", err))
	}

	for name, p := range map[string]PollerConfig{"bulk": c.Pollers.Bulk, "recent": c.Pollers.Recent} {
		if p.Interval <= 0 {
			errs = append(errs, fmt.Errorf("pollers.%s.interval must be positive", name))
		}
		if p.Limit <= 0 {
			errs = append(errs, fmt.Errorf("pollers.%s.limit must be positive", name))
		}
	}

	if c.Delivery.Interval <= 0 {
		errs = append(errs, errors.New("delivery.interval must be positive"))
	}
	if c.Delivery.BatchSize <= 0 {
		errs = append(errs, errors.New("delivery.batch_size must be positive"))
	}
	if c.Delivery.Channel == "" {
		errs = append(errs, errors.New("delivery.channel is required"))
	}
	if c.Delivery.SendInterval < 0 {
		errs = append(errs, errors.New("delivery.send_interval must not be negative"))
	}
	if _, err := time.LoadLocation(c.Delivery.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("delivery.timezone: %w", err))
	}
	if _, err := c.SuppressedCategories(); err != nil {
		errs = append(errs, fmt.Errorf("delivery.suppress: %w", err))
	}

	if c.Donation.Enabled && c.Donation.MinAmount <= 0 {
		errs = append(errs, errors.New("donation.min_amount must be positive"))
	}

	for name, hook := range c.Channels {
		u, err := url.Parse(hook)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("channels.%s: invalid webhook url %q", name, hook))
		}
	}

	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("storage.data_dir is required"))
	}

	return errors.Join(errs...)
}

// SuppressedCategories parses delivery.suppress. A nil result selects the
// delivery worker's default set.
func (c *Config) SuppressedCategories() ([]types.Category, error) {
	if c.Delivery.Suppress == nil {
		return nil, nil
	}
	out := make([]types.Category, 0, len(c.Delivery.Suppress))
	for _, s := range c.Delivery.Suppress {
		cat, err := types.ParseCategory(s)
		if err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, nil
}

// Location returns the delivery time zone
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Delivery.Timezone)
}
