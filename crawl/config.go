// Package crawl orchestrates crawl sessions: browser lifecycle per
// session, the two enumeration pipelines, progress checkpoints, pacing,
// and cancellation.
package crawl

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/netweave/store"
)

// Config is the top-level crawl configuration.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path"`

	// Listen is the control-surface address.
	Listen string `yaml:"listen"`

	// BrowserRemote is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local one.
	BrowserRemote string `yaml:"browser_remote"`

	// Headless runs Chrome without a window. Default: true.
	Headless bool `yaml:"headless"`

	// RateLimitMs is the pause between paced operations. Floor: 1000.
	RateLimitMs int `yaml:"rate_limit_ms"`

	// MaxConnections caps profile visits per session. Default: 50.
	MaxConnections int `yaml:"max_connections"`

	// ScrollIterations is how many times a results page is scrolled to
	// trigger lazy loading. Default: 5.
	ScrollIterations int `yaml:"scroll_iterations"`

	// NavTimeout bounds a single navigation. Default: 30s.
	NavTimeout time.Duration `yaml:"nav_timeout"`
}

// minRateLimitMs is the hard floor on pacing. Values below it hammer the
// upstream site and get the account flagged.
const minRateLimitMs = 1000

func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = "netweave.db"
	}
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.RateLimitMs < minRateLimitMs {
		c.RateLimitMs = 2000
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 50
	}
	if c.ScrollIterations <= 0 {
		c.ScrollIterations = 5
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	c := Config{Headless: true}
	c.applyDefaults()
	return c
}

// LoadConfigFile reads a YAML configuration file and applies defaults.
func LoadConfigFile(path string) (Config, error) {
	cfg := Config{Headless: true}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("crawl: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("crawl: parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// withSettings overlays the persisted settings table on top of the file
// config. Settings edited from the UI win; parse failures keep the file
// value.
func (c Config) withSettings(ctx context.Context, st *store.Store) Config {
	out := c
	if v, err := st.GetSetting(ctx, store.SettingRateLimitMs, ""); err == nil && v != "" {
		if ms, perr := strconv.Atoi(v); perr == nil && ms >= minRateLimitMs {
			out.RateLimitMs = ms
		}
	}
	if v, err := st.GetSetting(ctx, store.SettingMaxConnections, ""); err == nil && v != "" {
		if n, perr := strconv.Atoi(v); perr == nil && n > 0 {
			out.MaxConnections = n
		}
	}
	if v, err := st.GetSetting(ctx, store.SettingHeadless, ""); err == nil && v != "" {
		if b, perr := strconv.ParseBool(v); perr == nil {
			out.Headless = b
		}
	}
	return out
}

// rateLimit returns the pacing delay as a duration.
func (c Config) rateLimit() time.Duration {
	return time.Duration(c.RateLimitMs) * time.Millisecond
}
